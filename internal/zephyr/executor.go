package zephyr

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/httpc"
	"github.com/tidwall/gjson"
)

type statusPayload struct {
	Executions []string `json:"executions,omitempty"`
	Status     int      `json:"status"`
	Comment    *string  `json:"comment,omitempty"`
}

// SetStatus moves one execution to statusName. A nil comment leaves the field out; a
// non-nil one is sent verbatim.
func (c *Client) SetStatus(ctx context.Context, executionID, statusName string, comment *string) (UpdatedExecution, error) {
	code, err := ParseStatus(statusName)
	if err != nil {
		return UpdatedExecution{}, err
	}
	id := strings.TrimSpace(executionID)
	if id == "" {
		return UpdatedExecution{}, ErrEmptyExecutionID
	}
	path := fmt.Sprintf(constants.ExecuteOnePathFmt, id)
	resp, err := c.call(ctx, http.MethodPut, path, nil, statusPayload{Status: int(code), Comment: comment})
	if err != nil {
		return UpdatedExecution{}, err
	}
	out := UpdatedExecution{ID: id, Status: code, StatusCode: resp.StatusCode, Raw: resp.Body}
	if comment != nil {
		out.Comment = *comment
	}
	doc, ok := jsonObject(resp)
	if !ok {
		out.Acknowledged = true
		return out, nil
	}
	if v := doc.Get("id").String(); v != "" {
		out.ID = v
	}
	if v := doc.Get("executionStatus"); v.Exists() {
		out.Status = StatusCode(v.Int())
	}
	if v := doc.Get("comment"); v.Exists() {
		out.Comment = v.String()
	}
	c.logger.Info("execution updated", "execution_id", out.ID, "status", out.Status.String())
	return out, nil
}

// SetStatusBulk moves every listed execution in one request; the remote service fans out.
func (c *Client) SetStatusBulk(ctx context.Context, executionIDs []string, statusName string, comment *string) (BulkResult, error) {
	code, err := ParseStatus(statusName)
	if err != nil {
		return BulkResult{}, err
	}
	ids := make([]string, 0, len(executionIDs))
	for _, id := range executionIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return BulkResult{}, ErrEmptyExecutionList
	}
	resp, err := c.call(ctx, http.MethodPut, constants.ExecuteBulkPath, nil, statusPayload{Executions: ids, Status: int(code), Comment: comment})
	if err != nil {
		return BulkResult{}, err
	}
	out := BulkResult{IDs: ids, Status: code, StatusCode: resp.StatusCode, Raw: resp.Body}
	doc, ok := jsonObject(resp)
	if !ok {
		out.Acknowledged = true
	} else {
		out.JobToken = doc.Get("jobProgressToken").String()
	}
	c.logger.Info("executions updated", "count", len(ids), "status", code.String(), "job", out.JobToken)
	return out, nil
}

// jsonObject parses a success body. Empty, non-JSON and non-object bodies report false.
func jsonObject(resp *httpc.Response) (gjson.Result, bool) {
	if len(strings.TrimSpace(string(resp.Body))) == 0 || !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, false
	}
	doc := gjson.ParseBytes(resp.Body)
	return doc, doc.IsObject()
}
