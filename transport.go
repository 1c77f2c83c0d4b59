package atrium

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atrium-app/atrium/domain"
)

// FetchResult is the outcome of a read served by the transport or the cache proxy.
type FetchResult struct {
	Key         string    // Request identity the result was produced for
	ContentType string    // Response content type
	Body        []byte    // Response body bytes
	FromCache   bool      // Whether the body came from the local cache
	FetchedAt   time.Time // When the body was originally fetched
}

// Transport is the network boundary of the sync core. Replay delivers a queued
// mutation to its target endpoint; Fetch performs a read. Both respect context
// cancellation. Implementations other than HTTPTransport exist only in tests.
type Transport interface {
	// Replay delivers a queued action to its endpoint. A failure wraps
	// domain.ErrReplayFailed; the caller decides retry policy.
	Replay(ctx context.Context, action *domain.OfflineAction) error

	// Fetch performs a read against the given URL and returns the response body.
	Fetch(ctx context.Context, method, url string) (*FetchResult, error)
}

// HTTPTransport implements Transport over net/http. Mutating actions map their
// kind to an HTTP method and post their payload verbatim as JSON.
type HTTPTransport struct {
	Client  *http.Client // HTTP client used for all traffic
	BaseURL string       // Prefix for relative endpoints and URLs
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates an HTTPTransport with a default client.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// methodForKind maps an action kind to the HTTP method used to replay it.
func methodForKind(kind string) string {
	switch kind {
	case "create":
		return http.MethodPost
	case "update":
		return http.MethodPut
	case "patch":
		return http.MethodPatch
	case "delete":
		return http.MethodDelete
	default:
		return http.MethodPost
	}
}

func (t *HTTPTransport) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return t.BaseURL + "/" + strings.TrimPrefix(target, "/")
}

// Replay delivers the action's payload to its target endpoint. The original
// payload is sent unmodified, no matter how many replays the action has been
// through. Any transport error or non-2xx status wraps domain.ErrReplayFailed.
func (t *HTTPTransport) Replay(ctx context.Context, action *domain.OfflineAction) error {
	req, err := http.NewRequestWithContext(ctx, methodForKind(action.Kind), t.resolve(action.Endpoint), bytes.NewReader(action.Payload))
	if err != nil {
		return fmt.Errorf("building replay request for action %s : %w", action.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("replaying action %s : %w : %v", action.ID, domain.ErrReplayFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("replaying action %s : remote returned %s : %w", action.ID, resp.Status, domain.ErrReplayFailed)
	}
	return nil
}

// Fetch performs a read and returns the response body along with its declared
// content type. Non-2xx statuses are errors.
func (t *HTTPTransport) Fetch(ctx context.Context, method, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.resolve(url), nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request for %s : %w", url, err)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s : %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetching %s : remote returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body for %s : %w", url, err)
	}

	return &FetchResult{
		Key:         method + " " + url,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}
