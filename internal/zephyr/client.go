// Package zephyr reads cycles and executions from ZAPI and applies status transitions.
// Every call goes through an authenticated session.State; the package keeps no copy of
// remote state between calls.
package zephyr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/loykin/zephyrrun/internal/common"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/loykin/zephyrrun/internal/session"
)

// Client issues ZAPI calls on behalf of one session. Not safe for concurrent use.
type Client struct {
	st     *session.State
	tr     httpc.Transport
	logger *common.Logger
}

func New(st *session.State, tr httpc.Transport, logger *common.Logger) *Client {
	return &Client{st: st, tr: tr, logger: common.OrDefault(logger).WithComponent("zephyr")}
}

// call sends one request and turns non-2xx answers into *RemoteRejectedError.
// Transport failures are returned unchanged.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any) (*httpc.Response, error) {
	req := httpc.NewRequest(method, c.st.URL(path))
	req.Header.Set("Accept", "application/json")
	req.Query = query
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("zephyr: encode %s body: %w", path, err)
		}
		req.Body = b
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.st.Do(ctx, c.tr, req)
	if err != nil {
		c.logger.WithRequest(method, path).Error("request failed", "error", err)
		return nil, err
	}
	if !resp.IsSuccess() {
		c.logger.WithRequest(method, path).Warn("request rejected", "status", resp.StatusCode)
		return resp, &RemoteRejectedError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	c.logger.WithRequest(method, path).Debug("request ok", "status", resp.StatusCode)
	return resp, nil
}

func requireJSON(resp *httpc.Response, what string) error {
	if len(resp.Body) == 0 || !json.Valid(resp.Body) {
		return fmt.Errorf("zephyr: %s: expected JSON, got %d bytes of %q", what, len(resp.Body), resp.Header.Get("Content-Type"))
	}
	return nil
}

