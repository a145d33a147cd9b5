// Package integration drives a running tasks API over HTTP. The scenarios in
// this package only run with the integration build tag.
package integration

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// Client wraps http.Client with helpers for JSON requests.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a new Client.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// GetJSON issues a GET request and decodes the JSON response.
func (c *Client) GetJSON(path string, out any) (*http.Response, error) {
	return c.do(http.MethodGet, path, nil, out)
}

// PostJSON issues a POST request with a JSON body and decodes the response.
func (c *Client) PostJSON(path string, body, out any) (*http.Response, error) {
	return c.do(http.MethodPost, path, body, out)
}

// PutJSON issues a PUT request with a JSON body and decodes the response.
func (c *Client) PutJSON(path string, body, out any) (*http.Response, error) {
	return c.do(http.MethodPut, path, body, out)
}

// Delete issues a DELETE request and discards the response body.
func (c *Client) Delete(path string) (*http.Response, error) {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *Client) do(method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp, nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp, err
	}
	return resp, nil
}
