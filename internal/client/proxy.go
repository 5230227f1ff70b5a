package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProxyRequest is forwarded by the service to the inference API.
type ProxyRequest struct {
	EndpointPath string `json:"endpoint_path"`
	Payload      any    `json:"payload"`
}

// Call forwards a single request to the inference API through the service
// and returns the raw JSON answer. Nothing is polled or retried.
func (c *Client) Call(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	path = strings.TrimSpace(path)
	if len(path) == 0 {
		return nil, fmt.Errorf("endpoint path is required")
	}

	var result json.RawMessage
	err := c.Post(ctx, OpenAIEndpoint, &ProxyRequest{
		EndpointPath: path,
		Payload:      payload,
	}, &result)

	if err != nil {
		return nil, err
	}

	return result, nil
}
