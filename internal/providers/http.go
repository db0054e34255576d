package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Mohsinsiddi/dustvault/internal/config"
)

var httpClient = &http.Client{Timeout: config.ProviderTimeout}

// getJSON performs a GET and decodes a 200 response into out.
func getJSON(ctx context.Context, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	return do(req, out)
}

// postRPC sends one JSON-RPC request to an indexer endpoint.
func postRPC(ctx context.Context, url, method string, params, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := do(req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%s", resp.Error.msg)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return fmt.Errorf("empty result")
	}
	return json.Unmarshal(resp.Result, out)
}

func do(req *http.Request, out interface{}) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

// rpcError handles both string and object error formats.
type rpcError struct{ msg string }

func (e *rpcError) UnmarshalJSON(b []byte) error {
	var obj struct{ Message string }
	if json.Unmarshal(b, &obj) == nil && obj.Message != "" {
		e.msg = obj.Message
		return nil
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		e.msg = s
		return nil
	}
	e.msg = string(b)
	return nil
}
