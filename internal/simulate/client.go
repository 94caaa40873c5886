package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/duel/internal/domain/types"
)

// Outcome of a single vote submission.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

// ErrUnexpectedStatus is returned for responses outside the documented set.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to a running duel service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
	return nil
}

// Pair draws two competitors via GET /api/pair.
func (c *Client) Pair(ctx context.Context) (string, string, error) {
	resp, err := c.get(ctx, "/api/pair")
	if err != nil {
		return "", "", err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("pair returned %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
	var pair []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", "", fmt.Errorf("decode pair: %w", err)
	}
	if len(pair) != 2 {
		return "", "", fmt.Errorf("pair has %d entries: %w", len(pair), ErrUnexpectedStatus)
	}
	return pair[0].Name, pair[1].Name, nil
}

// Vote posts v to /api/vote.
func (c *Client) Vote(ctx context.Context, v Vote) (Outcome, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshal vote: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/vote", bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("build vote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("post vote: %w", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return OutcomeAccepted, nil
	case http.StatusOK:
		return OutcomeDuplicate, nil
	default:
		return OutcomeFailed, fmt.Errorf("vote returned %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
}

// Rankings fetches GET /api/rankings. A limit of 0 omits the parameter.
func (c *Client) Rankings(ctx context.Context, limit int) (types.Rankings, error) {
	path := "/api/rankings"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return types.Rankings{}, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return types.Rankings{}, fmt.Errorf("rankings returned %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
	var r types.Rankings
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return types.Rankings{}, fmt.Errorf("decode rankings: %w", err)
	}
	return r, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
