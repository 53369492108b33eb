package sdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/the-livingstone/sdb-options/internal/model"
)

// batch envelope: one JSON document per element, concatenated, posted as
// application/x-ld-json. Not retried: partial application is possible.
type batchEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Type   string          `json:"type"`
	Action string          `json:"action"`
}

// BatchCreate posts a list of new nodes in one request. Service fields,
// including any pre-set ID, are stripped: the catalog assigns them.
func (c *Client) BatchCreate(ctx context.Context, nodes []*model.TreeNode) (*WriteResult, error) {
	return c.batch(ctx, nodes, "create")
}

// BatchUpdate posts changes to a list of existing nodes in one request.
func (c *Client) BatchUpdate(ctx context.Context, nodes []*model.TreeNode) (*WriteResult, error) {
	return c.batch(ctx, nodes, "update")
}

func (c *Client) batch(ctx context.Context, nodes []*model.TreeNode, action string) (*WriteResult, error) {
	if len(nodes) == 0 {
		return &WriteResult{}, nil
	}

	var body bytes.Buffer
	for _, node := range nodes {
		n := node
		if action == "create" && n.ID != "" {
			n = n.Clone()
			n.ID = ""
			n.Revision = ""
		}
		data, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("batch %s: marshal %s: %w", action, node.Name, err)
		}
		env, err := json.Marshal(batchEnvelope{
			Data:   data,
			Type:   "instrument",
			Action: action,
		})
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", action, err)
		}
		body.Write(env)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/batch", &body)
	if err != nil {
		return nil, fmt.Errorf("batch %s: create request: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-ld-json")
	if c.sessionID != "" {
		req.Header.Set("X-Auth-SessionId", c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("batch %s: read response: %w", action, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       data,
		}
	}

	var res WriteResult
	if len(data) > 0 {
		if err := json.Unmarshal(data, &res); err != nil {
			// The batch endpoint sometimes answers with plain text.
			res.Message = string(data)
		}
	}
	return &res, nil
}
