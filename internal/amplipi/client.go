package amplipi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client talks to an AmpliPi controller's REST API. All device communication
// in the hub goes through this client; the wire format is owned here.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the controller at baseURL (e.g.
// "http://amplipi.local/api"). Uses connection pooling since every entity
// refresh hits the same host.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetStatus fetches a full status snapshot: all sources, zones, groups, and
// streams in one consistent read.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.do(ctx, http.MethodGet, "/", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetSources fetches the current source list.
func (c *Client) GetSources(ctx context.Context) ([]Source, error) {
	var payload struct {
		Sources []Source `json:"sources"`
	}
	if err := c.do(ctx, http.MethodGet, "/sources", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Sources, nil
}

// GetZones fetches the current zone list.
func (c *Client) GetZones(ctx context.Context) ([]Zone, error) {
	var payload struct {
		Zones []Zone `json:"zones"`
	}
	if err := c.do(ctx, http.MethodGet, "/zones", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Zones, nil
}

// SetSource applies a partial update to a source.
func (c *Client) SetSource(ctx context.Context, id int, update SourceUpdate) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/sources/%d", id), update, nil)
}

// SetZone applies a partial update to a single zone.
func (c *Client) SetZone(ctx context.Context, id int, update ZoneUpdate) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/zones/%d", id), update, nil)
}

// SetZones applies one update to a set of zones and groups.
func (c *Client) SetZones(ctx context.Context, update MultiZoneUpdate) error {
	return c.do(ctx, http.MethodPatch, "/zones", update, nil)
}

// SetGroup applies a partial update to a group.
func (c *Client) SetGroup(ctx context.Context, id int, update GroupUpdate) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/groups/%d", id), update, nil)
}

// PlayStream resumes playback on a stream.
func (c *Client) PlayStream(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/streams/%d/play", id), nil, nil)
}

// PauseStream pauses playback on a stream.
func (c *Client) PauseStream(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/streams/%d/pause", id), nil, nil)
}

// StopStream stops playback on a stream.
func (c *Client) StopStream(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/streams/%d/stop", id), nil, nil)
}

// PreviousStream skips to the previous track on a stream.
func (c *Client) PreviousStream(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/streams/%d/prev", id), nil, nil)
}

// NextStream skips to the next track on a stream.
func (c *Client) NextStream(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/streams/%d/next", id), nil, nil)
}

// PlayMedia plays a URL on a source.
func (c *Client) PlayMedia(ctx context.Context, media PlayMedia) error {
	return c.do(ctx, http.MethodPost, "/play", media, nil)
}

// Announce triggers a one-shot announcement.
func (c *Client) Announce(ctx context.Context, announcement Announcement) error {
	return c.do(ctx, http.MethodPost, "/announce", announcement, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: op}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &TimeoutError{Op: op}
		}
		return &UnreachableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail := readErrorDetail(resp.Body)
		return &RejectedError{Op: op, StatusCode: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func readErrorDetail(body io.Reader) string {
	payload, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return strings.TrimSpace(string(payload))
}
