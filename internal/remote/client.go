// Package remote is the HTTP client of the global highscore API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/model"
)

const highscoresPath = "/api/highscores"

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// SubmitRequest is the body of a highscore submission.
type SubmitRequest struct {
	Game     string `json:"game"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

// SubmitResponse is the body returned for an accepted submission.
type SubmitResponse struct {
	Success   bool                   `json:"success"`
	Highscore *model.GlobalHighscore `json:"highscore,omitempty"`
}

// ListResponse is the body returned by the highscore listing.
type ListResponse struct {
	Highscores []model.GlobalHighscore `json:"highscores"`
}

// Client talks to the global highscore server.
type Client struct {
	http *resty.Client
	now  func() time.Time
}

// NewClient creates a client for the server at cfg.BaseURL.
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: cli, now: time.Now}
}

// Submit posts a score to the global highscore list.
func (c *Client) Submit(ctx context.Context, game, username string, score int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(SubmitRequest{Game: game, Username: username, Score: score}).
		SetResult(&SubmitResponse{}).
		Post(highscoresPath)
	if err != nil {
		return fmt.Errorf("submit highscore request: %w", err)
	}
	if !resp.IsSuccess() {
		return statusError(resp)
	}
	return nil
}

// List fetches the global highscores of a game, or of every game when game
// is empty. Responses are never served from a cache.
func (c *Client) List(ctx context.Context, game string) ([]model.GlobalHighscore, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-store").
		SetHeader("Pragma", "no-cache").
		SetQueryParam("t", strconv.FormatInt(c.now().UnixMilli(), 10)).
		SetResult(&ListResponse{})
	if game != "" {
		req.SetQueryParam("game", game)
	}

	resp, err := req.Get(highscoresPath)
	if err != nil {
		return nil, fmt.Errorf("list highscores request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError(resp)
	}

	result, ok := resp.Result().(*ListResponse)
	if !ok || result.Highscores == nil {
		return []model.GlobalHighscore{}, nil
	}
	return result.Highscores, nil
}

func statusError(resp *resty.Response) error {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("%w: http %d: %s", ErrUnexpectedStatus, resp.StatusCode(), body)
}
