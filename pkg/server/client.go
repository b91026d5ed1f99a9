package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	terrors "github.com/vango-dev/signaltower/internal/errors"
	"github.com/vango-dev/signaltower/pkg/snapshot"
	"github.com/vango-dev/signaltower/pkg/tower"
)

// Client calls a running Server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Channels lists every channel.
func (c *Client) Channels(ctx context.Context) ([]tower.ChannelInfo, error) {
	var infos []tower.ChannelInfo
	err := c.do(ctx, http.MethodGet, "/channels", nil, &infos)
	return infos, err
}

// Channel describes one channel, including its latest payload.
func (c *Client) Channel(ctx context.Context, name string) (snapshot.ChannelSnapshot, error) {
	var cs snapshot.ChannelSnapshot
	err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(name), nil, &cs)
	return cs, err
}

// Dispatch dispatches the JSON payload on the named channel.
func (c *Client) Dispatch(ctx context.Context, name string, payload json.RawMessage) (DispatchResponse, error) {
	var resp DispatchResponse
	err := c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(name)+"/dispatch", payload, &resp)
	return resp, err
}

// SetLogLevel sets every channel's log level. tower.ResetLevel restores
// the original levels.
func (c *Client) SetLogLevel(ctx context.Context, level tower.LogLevel) ([]tower.ChannelInfo, error) {
	body, err := json.Marshal(LogLevelRequest{Level: &level})
	if err != nil {
		return nil, err
	}
	var infos []tower.ChannelInfo
	err = c.do(ctx, http.MethodPut, "/log-level", body, &infos)
	return infos, err
}

// ResetLogLevels restores every channel's original log level.
func (c *Client) ResetLogLevels(ctx context.Context) ([]tower.ChannelInfo, error) {
	var infos []tower.ChannelInfo
	err := c.do(ctx, http.MethodDelete, "/log-level", nil, &infos)
	return infos, err
}

// Snapshot captures the server's registry.
func (c *Client) Snapshot(ctx context.Context) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	err := c.do(ctx, http.MethodGet, "/snapshot", nil, &snap)
	return snap, err
}

// Archive captures and archives the server's registry.
func (c *Client) Archive(ctx context.Context) (ArchiveResponse, error) {
	var resp ArchiveResponse
	err := c.do(ctx, http.MethodPost, "/snapshot", nil, &resp)
	return resp, err
}

// remoteError is the JSON body of an error response.
type remoteError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail"`
	Cause      string `json:"cause"`
	Suggestion string `json:"suggestion"`
	DocURL     string `json:"docUrl"`
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return terrors.New("T160").Wrap(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return terrors.New("T160").Wrap(err).
			WithSuggestion("Start a server with 'tower serve' or pass --server")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return terrors.New("T160").Wrap(err)
	}

	if resp.StatusCode >= 400 {
		var re remoteError
		if json.Unmarshal(data, &re) != nil || re.Code == "" {
			return terrors.New("T160").
				WithDetail(fmt.Sprintf("%s %s: %s", method, path, resp.Status))
		}
		e := terrors.New(re.Code)
		if re.Cause != "" {
			e.Detail = re.Cause
		}
		e.Suggestion = re.Suggestion
		return e
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return terrors.New("T160").Wrap(err)
	}
	return nil
}
