package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"onboarding-pr-miner/internal/common"

	"github.com/google/go-querystring/query"
)

// ErrorResponse is a non-2xx answer from the GitLab API.
type ErrorResponse struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

type ListOptions struct {
	PerPage int `url:"per_page,omitempty"`
	Page    int `url:"page,omitempty"`
}

type mergeRequestListOptions struct {
	State   string `url:"state,omitempty"`
	OrderBy string `url:"order_by,omitempty"`
	Sort    string `url:"sort,omitempty"`
	ListOptions
}

// get issues a GET against baseURL+path and decodes the JSON body into out.
// The response headers are returned for pagination.
func (f *Fetcher) get(ctx context.Context, path string, opts any, out any) (http.Header, error) {
	endpoint := f.baseURL + path
	if opts != nil {
		values, err := query.Values(opts)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("PRIVATE-TOKEN", f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.Header, &ErrorResponse{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.Header, nil
}

func wrapError(op string, err error) error {
	var apiErr *ErrorResponse
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return common.WrapError(common.ErrCodeUnauthorized, "GitLab "+op, err)
		}
	}
	return common.WrapError(common.ErrCodeGitLabAPI, "GitLab "+op, err)
}

func isNotFound(err error) bool {
	var apiErr *ErrorResponse
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
