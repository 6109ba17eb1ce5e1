package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// HTTPError is returned for any response outside the 2xx range. Message
// carries the server's {"error": ...} text when present.
type HTTPError struct {
	URL        string
	Message    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %s: %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %s: %d", e.URL, e.StatusCode)
}

type errorBody struct {
	Error string `json:"error"`
}

var defaultHTTPClient = &http.Client{Timeout: 5 * time.Second}

// PostJSON sends body as JSON with POST and decodes the response into out.
func PostJSON(ctx context.Context, hc *http.Client, url string, body any, out any) error {
	return sendJSON(ctx, hc, http.MethodPost, url, body, out)
}

// PutJSON sends body as JSON with PUT and decodes the response into out.
func PutJSON(ctx context.Context, hc *http.Client, url string, body any, out any) error {
	return sendJSON(ctx, hc, http.MethodPut, url, body, out)
}

// GetJSON fetches url and decodes the response into out.
func GetJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return do(hc, req, out)
}

// getJSONAllowing is GetJSON that also decodes the listed non-2xx statuses
// into out, returning no error for them.
func getJSONAllowing(ctx context.Context, hc *http.Client, url string, out any, statuses ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return do(hc, req, out, statuses...)
}

func sendJSON(ctx context.Context, hc *http.Client, method, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return do(hc, req, out)
}

func do(hc *http.Client, req *http.Request, out any, allowed ...int) error {
	if hc == nil {
		hc = defaultHTTPClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && !slices.Contains(allowed, resp.StatusCode) {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		herr := &HTTPError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			herr.Message = eb.Error
		}
		return herr
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
