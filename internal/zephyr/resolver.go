package zephyr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/loykin/zephyrrun/internal/constants"
	"github.com/loykin/zephyrrun/internal/util"
	"github.com/tidwall/gjson"
)

// ListExecutions fetches every execution of a cycle in one call. versionID is optional.
func (c *Client) ListExecutions(ctx context.Context, cycleID, projectID, versionID string) ([]Execution, error) {
	cycleID, projectID = strings.TrimSpace(cycleID), strings.TrimSpace(projectID)
	if cycleID == "" || projectID == "" {
		return nil, fmt.Errorf("zephyr: cycle id and project id are required")
	}
	q := url.Values{}
	q.Set("cycleId", cycleID)
	q.Set("projectId", projectID)
	if v := strings.TrimSpace(versionID); v != "" {
		q.Set("versionId", v)
	}
	resp, err := c.call(ctx, http.MethodGet, constants.ExecutionPath, q, nil)
	if err != nil {
		return nil, err
	}
	if err := requireJSON(resp, "execution listing"); err != nil {
		return nil, err
	}
	return parseExecutions(resp.Body, cycleID), nil
}

// parseExecutions accepts "executions" as an array of records or as an object keyed by
// execution id. Document order is kept in both cases.
func parseExecutions(body []byte, cycleID string) []Execution {
	node := gjson.GetBytes(body, "executions")
	var out []Execution
	switch {
	case node.IsArray():
		node.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				out = append(out, executionFrom(v.Get("id").String(), v, cycleID))
			}
			return true
		})
	case node.IsObject():
		node.ForEach(func(k, v gjson.Result) bool {
			if v.IsObject() {
				out = append(out, executionFrom(k.String(), v, cycleID))
			}
			return true
		})
	}
	return out
}

func executionFrom(id string, v gjson.Result, cycleID string) Execution {
	status := v.Get("executionStatus")
	if !status.Exists() {
		status = v.Get("status")
	}
	if cid := v.Get("cycleId").String(); cid != "" {
		cycleID = cid
	}
	return Execution{
		ID:       id,
		IssueKey: v.Get("issueKey").String(),
		Status:   StatusCode(status.Int()),
		Comment:  v.Get("comment").String(),
		CycleID:  cycleID,
	}
}

// FindExecution returns the first execution of the cycle whose test key is testKey.
// A miss is found=false with a nil error.
func (c *Client) FindExecution(ctx context.Context, testKey, cycleID, projectID string) (Execution, bool, error) {
	key := strings.TrimSpace(testKey)
	if key == "" {
		return Execution{}, false, fmt.Errorf("zephyr: test key is required")
	}
	execs, err := c.ListExecutions(ctx, cycleID, projectID, "")
	if err != nil {
		return Execution{}, false, err
	}
	e, ok := util.Find(execs, func(e Execution) bool { return e.IssueKey == key })
	if !ok {
		c.logger.Warn("no execution for test key", "test_key", key, "cycle_id", cycleID, "scanned", len(execs))
	}
	return e, ok, nil
}
