package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

// DefaultEndpoint is the X API v2 create-post endpoint.
const DefaultEndpoint = "https://api.twitter.com/2/tweets"

// TwitterConfig configures the X/Twitter API client (OAuth 1.0a user context).
type TwitterConfig struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string

	Endpoint string        // default DefaultEndpoint
	Timeout  time.Duration // per request; default 30s
}

// Twitter publishes posts with the X API v2.
type Twitter struct {
	endpoint string
	http     *http.Client
}

func NewTwitter(cfg TwitterConfig) (*Twitter, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.AccessToken == "" || cfg.AccessTokenSecret == "" {
		return nil, errors.New("twitter credentials are incomplete")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	oc := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	hc := oc.Client(context.Background(), oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	hc.Timeout = timeout

	return &Twitter{endpoint: endpoint, http: hc}, nil
}

type createRequest struct {
	Text string `json:"text"`
}

type createResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// apiProblem covers both the v2 problem format and the legacy errors array.
type apiProblem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (t *Twitter) Publish(ctx context.Context, text string) (PostID, error) {
	body, err := json.Marshal(createRequest{Text: text})
	if err != nil {
		return "", &Error{Kind: KindUnknown, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnknown, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var cr createResponse
		if err := json.Unmarshal(raw, &cr); err != nil || cr.Data.ID == "" {
			return "", &Error{Kind: KindUnknown, Status: resp.StatusCode, Detail: "unexpected response body", Err: err}
		}
		return PostID(cr.Data.ID), nil
	}
	return "", classify(resp, raw)
}

func classify(resp *http.Response, raw []byte) *Error {
	var p apiProblem
	_ = json.Unmarshal(raw, &p)
	detail := strings.TrimSpace(p.Detail)
	if detail == "" && len(p.Errors) > 0 {
		detail = strings.TrimSpace(p.Errors[0].Message)
	}
	if detail == "" {
		detail = strings.TrimSpace(p.Title)
	}
	if detail == "" {
		detail = truncate(strings.TrimSpace(string(raw)), 300)
	}

	e := &Error{Status: resp.StatusCode, Detail: detail}
	switch {
	case isDuplicateDetail(detail, p):
		e.Kind = KindDuplicate
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.ResetAt = rateLimitReset(resp.Header)
	case resp.StatusCode == http.StatusForbidden:
		e.Kind = KindForbidden
	case resp.StatusCode >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
	}
	return e
}

// legacy v1.1 code for "Status is a duplicate."
const codeDuplicateStatus = 187

func isDuplicateDetail(detail string, p apiProblem) bool {
	if strings.Contains(strings.ToLower(detail), "duplicate content") {
		return true
	}
	for _, e := range p.Errors {
		if e.Code == codeDuplicateStatus {
			return true
		}
	}
	return false
}

func rateLimitReset(h http.Header) time.Time {
	v := strings.TrimSpace(h.Get("x-rate-limit-reset"))
	if v == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// truncate cuts s to at most maxN runes, never inside a UTF-8 sequence.
func truncate(s string, maxN int) string {
	r := []rune(s)
	if len(r) <= maxN {
		return s
	}
	return string(r[:maxN-3]) + "..."
}

var _ Publisher = (*Twitter)(nil)
var _ Publisher = (*DryRun)(nil)

func (t *Twitter) String() string { return fmt.Sprintf("twitter(%s)", t.endpoint) }
