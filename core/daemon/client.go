package daemon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"BerryBox/config"
	"BerryBox/logger"
)

// Sentinel errors used to classify play failures at the API boundary.
var (
	// ErrUnavailable: the daemon rejected the content with a client error
	// (not licensed, geo-restricted, removed).
	ErrUnavailable = errors.New("content unavailable")
	// ErrNetwork: transport-level failure reaching the daemon.
	ErrNetwork = errors.New("daemon unreachable")
	// ErrRequestFailed: any other non-success daemon response.
	ErrRequestFailed = errors.New("daemon request failed")
)

// StatusTrack is the track section of the daemon's status response.
type StatusTrack struct {
	URI           string   `json:"uri"`
	Name          string   `json:"name"`
	ArtistNames   []string `json:"artist_names"`
	AlbumName     string   `json:"album_name"`
	AlbumCoverURL string   `json:"album_cover_url"`
	Position      int64    `json:"position"`
	Duration      int64    `json:"duration"`
}

// Status is the daemon's playback status response.
type Status struct {
	Stopped    bool         `json:"stopped"`
	Paused     bool         `json:"paused"`
	Buffering  bool         `json:"buffering"`
	ContextURI string       `json:"context_uri"`
	PlayOrigin string       `json:"play_origin"`
	Volume     *int         `json:"volume,omitempty"`
	Track      *StatusTrack `json:"track,omitempty"`
}

// Client is the REST client for the go-librespot playback daemon.
type Client struct {
	baseURL    string
	statusHTTP *http.Client // short timeout, status/control calls
	playHTTP   *http.Client // longer timeout, play requests
}

// NewClient creates a daemon client from the application config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.DaemonURL,
		statusHTTP: &http.Client{Timeout: cfg.ControlTimeout},
		playHTTP:   &http.Client{Timeout: cfg.PlayTimeout},
	}
}

// Status returns the daemon's current playback status, or nil when the
// daemon has no active session (204) or is unreachable. This call fails
// soft: the broadcast path depends on it never returning a hard error
// for connectivity problems.
func (c *Client) Status() (*Status, error) {
	resp, err := c.statusHTTP.Get(c.baseURL + "/status")
	if err != nil {
		logger.Debug("daemon status request failed", logger.ErrorField(err))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// Play starts playback of a context URI, optionally skipping to a
// specific track for resume.
func (c *Client) Play(uri, skipToURI string) error {
	body := map[string]string{"uri": uri}
	if skipToURI != "" {
		body["skip_to_uri"] = skipToURI
		logger.Info("resuming at track", logger.String("track", skipToURI))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := c.playHTTP.Post(c.baseURL+"/player/play", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	logger.Warn("play request rejected",
		logger.Int("status", resp.StatusCode),
		logger.String("body", string(text)))

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
}

// Pause pauses playback.
func (c *Client) Pause() error {
	return c.control("/player/pause", nil)
}

// Resume resumes playback.
func (c *Client) Resume() error {
	return c.control("/player/resume", nil)
}

// Next skips to the next track.
func (c *Client) Next() error {
	return c.control("/player/next", nil)
}

// Prev skips to the previous track.
func (c *Client) Prev() error {
	return c.control("/player/prev", nil)
}

// Seek seeks to a position in milliseconds.
func (c *Client) Seek(positionMs int64) error {
	return c.control("/player/seek", map[string]int64{"position": positionMs})
}

// SetVolume sets the volume level (0-100).
func (c *Client) SetVolume(level int) error {
	return c.control("/player/volume", map[string]int{"volume": level})
}

// IsConnected reports whether the daemon is reachable.
func (c *Client) IsConnected() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(c.baseURL + "/status")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
}

// control issues a short-timeout POST to a player endpoint.
func (c *Client) control(path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := c.statusHTTP.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("%w: %s status %d", ErrRequestFailed, path, resp.StatusCode)
}
