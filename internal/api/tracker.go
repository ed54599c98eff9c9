package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"ranked-engine/internal/config"
	"ranked-engine/internal/domain"
)

// TrackerClient talks to the external stat API used to verify a linked game
// account and read its current rank. Its output feeds initial placement
// only; post-match rating updates never touch it.
type TrackerClient struct {
	apiKey      string
	baseURL     string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

// VerifiedRank is the external ladder position reported for a linked
// account: a rank label plus an elo-like value inside that label's bracket.
type VerifiedRank struct {
	Account   string `json:"account"`
	RankLabel string `json:"rank_label"`
	Elo       int    `json:"elo"`
}

type verifiedRankResponse struct {
	Data VerifiedRank `json:"data"`
}

func NewTrackerClient(cfg *config.Config) *TrackerClient {
	return &TrackerClient{
		apiKey:  cfg.TrackerAPIKey,
		baseURL: cfg.TrackerBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     90,
			Remaining: 90,
			Reset:     60,
			UpdatedAt: time.Now(),
		},
	}
}

func (c *TrackerClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

// GetVerifiedRank fetches the external rank for a linked account in one
// title. The title selects the upstream endpoint since each game exposes a
// different ladder.
func (c *TrackerClient) GetVerifiedRank(ctx context.Context, title domain.GameTitle, account string) (*VerifiedRank, error) {
	url := fmt.Sprintf("%s/ranked/v1/%s/by-account/%s", c.baseURL, title, account)
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *TrackerClient) doRequest(ctx context.Context, url string) (*verifiedRankResponse, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", c.apiKey)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	c.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("tracker API returned status %d", resp.StatusCode())
	}

	var out verifiedRankResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode tracker response: %w", err)
	}
	return &out, nil
}

func (c *TrackerClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}
