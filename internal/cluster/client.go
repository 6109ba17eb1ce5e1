package cluster

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dreamware/pollshard/internal/coordinator"
	"github.com/dreamware/pollshard/internal/polls"
	"github.com/dreamware/pollshard/internal/storage"
)

// Client talks to a running middleware over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for the middleware at baseURL. A nil hc uses a
// client with a 5 second timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = defaultHTTPClient
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// Health returns the middleware's health report. A degraded cluster answers
// 503 with a full report; that is not an error.
func (c *Client) Health(ctx context.Context) (coordinator.HealthReport, error) {
	var report coordinator.HealthReport
	err := getJSONAllowing(ctx, c.http, c.url("health"), &report, http.StatusServiceUnavailable)
	return report, err
}

// ShardInfo asks which shard owns key.
func (c *Client) ShardInfo(ctx context.Context, key string) (coordinator.ShardInfo, error) {
	var info coordinator.ShardInfo
	err := GetJSON(ctx, c.http, c.url("shard-info", key), &info)
	return info, err
}

// Query runs req on the shard owning shardKey.
func (c *Client) Query(ctx context.Context, shardKey string, req storage.QueryRequest) (storage.QueryResult, error) {
	var res storage.QueryResult
	err := PostJSON(ctx, c.http, c.url("query", shardKey), req, &res)
	return res, err
}

// QueryShard runs req on the shard at index.
func (c *Client) QueryShard(ctx context.Context, index int, req storage.QueryRequest) (storage.QueryResult, error) {
	var res storage.QueryResult
	err := PostJSON(ctx, c.http, c.url("query", "shard", strconv.Itoa(index)), req, &res)
	return res, err
}

// QueryAll runs req on every shard.
func (c *Client) QueryAll(ctx context.Context, req storage.QueryRequest) (coordinator.FanOutResult, error) {
	var out coordinator.FanOutResult
	err := PostJSON(ctx, c.http, c.url("query", "all"), req, &out)
	return out, err
}

// PollResults fetches the tally for pollID.
func (c *Client) PollResults(ctx context.Context, pollID string) (polls.PollResults, error) {
	var res polls.PollResults
	err := GetJSON(ctx, c.http, c.url("polls", pollID, "results"), &res)
	return res, err
}

// ClosePoll closes pollID on behalf of its creator userID and returns the
// updated poll.
func (c *Client) ClosePoll(ctx context.Context, pollID, userID string) (polls.Poll, error) {
	var p polls.Poll
	body := struct {
		UserID string `json:"userId"`
	}{userID}
	err := PutJSON(ctx, c.http, c.url("polls", pollID, "close"), body, &p)
	return p, err
}

// CastVote records userID's vote for the option at optionIndex.
func (c *Client) CastVote(ctx context.Context, pollID, userID string, optionIndex int) (polls.Vote, error) {
	var v polls.Vote
	body := struct {
		UserID      string `json:"userId"`
		OptionIndex int    `json:"optionIndex"`
	}{userID, optionIndex}
	err := PostJSON(ctx, c.http, c.url("polls", pollID, "votes"), body, &v)
	return v, err
}
