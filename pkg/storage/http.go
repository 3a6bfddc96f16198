package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/version"
)

// ErrUnsupportedKey is returned by HTTPStore for keys that are not review keys.
var ErrUnsupportedKey = errors.New("storage: key not served by this backend")

// HTTPStore implements BlobStore against a review API exposing
// GET and PUT /jobs/{jobId}/review. It only serves review keys.
type HTTPStore struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusError is a non-success response from the review API.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (s *HTTPStore) reviewURL(key string) (string, error) {
	jobID, ok := JobIDFromReviewKey(key)
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrUnsupportedKey)
	}
	return s.BaseURL + "/jobs/" + url.PathEscape(jobID) + "/review", nil
}

func (s *HTTPStore) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach review api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func (s *HTTPStore) Put(ctx context.Context, key string, data []byte) error {
	target, err := s.reviewURL(key)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPut, target, data)
	return err
}

func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	target, err := s.reviewURL(key)
	if err != nil {
		return nil, err
	}
	data, err := s.do(ctx, http.MethodGet, target, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	}
	return data, err
}

// List is not offered by the review API.
func (s *HTTPStore) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, fmt.Errorf("list %q: %w", prefix, errors.ErrUnsupported)
}

func (s *HTTPStore) String() string {
	return s.BaseURL
}
