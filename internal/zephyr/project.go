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

// ResolveProjectID turns a project key such as "TEST" into its numeric id.
func (c *Client) ResolveProjectID(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("zephyr: project key is required")
	}
	resp, err := c.call(ctx, http.MethodGet, fmt.Sprintf(constants.ProjectPathFmt, url.PathEscape(key)), nil, nil)
	if err != nil {
		return "", err
	}
	if err := requireJSON(resp, "project lookup"); err != nil {
		return "", err
	}
	id := gjson.GetBytes(resp.Body, "id").String()
	if id == "" {
		return "", fmt.Errorf("zephyr: project %s: response carries no id", key)
	}
	return id, nil
}

// ListCycles returns the cycles of a project, optionally limited to one version.
func (c *Client) ListCycles(ctx context.Context, projectID, versionID string) ([]Cycle, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("zephyr: project id is required")
	}
	q := url.Values{}
	q.Set("projectId", projectID)
	if v := strings.TrimSpace(versionID); v != "" {
		q.Set("versionId", v)
	}
	resp, err := c.call(ctx, http.MethodGet, constants.CyclePath, q, nil)
	if err != nil {
		return nil, err
	}
	if err := requireJSON(resp, "cycle listing"); err != nil {
		return nil, err
	}
	return parseCycles(gjson.ParseBytes(resp.Body), projectID), nil
}

// parseCycles walks an object keyed by cycle id. Some deployments group cycles per version
// as arrays of such objects; those are flattened in order. recordsCount is skipped.
func parseCycles(node gjson.Result, projectID string) []Cycle {
	var out []Cycle
	node.ForEach(func(k, v gjson.Result) bool {
		switch {
		case k.String() == "recordsCount":
		case v.IsArray():
			v.ForEach(func(_, el gjson.Result) bool {
				out = append(out, parseCycles(el, projectID)...)
				return true
			})
		case v.IsObject() && v.Get("name").Exists():
			cy := Cycle{
				ID:          k.String(),
				Name:        v.Get("name").String(),
				ProjectID:   v.Get("projectId").String(),
				VersionID:   v.Get("versionId").String(),
				Description: v.Get("description").String(),
			}
			if cy.ProjectID == "" {
				cy.ProjectID = projectID
			}
			out = append(out, cy)
		}
		return true
	})
	return out
}

// FindCycleByName returns the first cycle named name, compared case-insensitively.
func (c *Client) FindCycleByName(ctx context.Context, projectID, versionID, name string) (Cycle, bool, error) {
	cycles, err := c.ListCycles(ctx, projectID, versionID)
	if err != nil {
		return Cycle{}, false, err
	}
	name = strings.TrimSpace(name)
	cy, ok := util.Find(cycles, func(cy Cycle) bool { return strings.EqualFold(cy.Name, name) })
	return cy, ok, nil
}
