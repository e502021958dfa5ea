package network

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

// NetworkController is a thin JSON HTTP client shared by integrations
// that talk to external providers.
type NetworkController struct {
	BaseUrl string
	Timeout time.Duration

	client *http.Client
}

func (nc *NetworkController) httpClient() *http.Client {
	if nc.client == nil {
		timeout := nc.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		nc.client = &http.Client{Timeout: timeout}
	}
	return nc.client
}

func (nc *NetworkController) Post(ctx context.Context, path string, headers *map[string]string, body map[string]any) (*[]byte, *int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, nc.BaseUrl+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}
	return nc.do(req)
}

func (nc *NetworkController) Get(ctx context.Context, path string, headers *map[string]string, query map[string]string) (*[]byte, *int, error) {
	target := nc.BaseUrl + path
	if len(query) != 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		target += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}
	return nc.do(req)
}

func (nc *NetworkController) do(req *http.Request) (*[]byte, *int, error) {
	res, err := nc.httpClient().Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &res.StatusCode, err
	}
	return &payload, &res.StatusCode, nil
}
