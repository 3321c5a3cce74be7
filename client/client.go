package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"BerryBox/model"
)

// Client talks to the kiosk backend's REST surface. It is the transport
// the carousel reconciler drives; the rendering layer never issues raw
// HTTP itself.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a backend client. timeout bounds every control call; play
// requests block server-side until confirmation, so callers should pass
// something comfortably above the confirmation window.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Play requests playback of a context and returns the typed outcome.
// A non-nil result with Success == false is a normal answer, not an
// error; the error return covers transport problems only.
func (c *Client) Play(uri string, fromBeginning bool) (*model.PlayResult, error) {
	body := model.PlayRequest{URI: uri, FromBeginning: fromBeginning}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+"/api/play", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result model.PlayResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode play result: %w", err)
	}
	return &result, nil
}

// Pause pauses playback.
func (c *Client) Pause() error { return c.control("/api/pause") }

// Resume resumes playback.
func (c *Client) Resume() error { return c.control("/api/resume") }

// Next skips forward.
func (c *Client) Next() error { return c.control("/api/next") }

// Prev skips backward.
func (c *Client) Prev() error { return c.control("/api/prev") }

// Seek seeks within the current track.
func (c *Client) Seek(positionMs int64) error {
	payload, err := json.Marshal(model.SeekRequest{Position: positionMs})
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+"/api/seek", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkSimple(resp)
}

// NowPlaying fetches the current snapshot.
func (c *Client) NowPlaying() (*model.NowPlaying, error) {
	resp, err := c.http.Get(c.baseURL + "/api/now-playing")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("now-playing: status %d", resp.StatusCode)
	}
	var np model.NowPlaying
	if err := json.NewDecoder(resp.Body).Decode(&np); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &np, nil
}

// Catalog fetches the saved items.
func (c *Client) Catalog() ([]*model.CatalogItem, error) {
	resp, err := c.http.Get(c.baseURL + "/api/catalog")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: status %d", resp.StatusCode)
	}
	var items []*model.CatalogItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return items, nil
}

func (c *Client) control(path string) error {
	resp, err := c.http.Post(c.baseURL+path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkSimple(resp)
}

func checkSimple(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("control: status %d", resp.StatusCode)
	}
	var result model.SimpleResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("control rejected")
	}
	return nil
}
