// SPDX-License-Identifier: MIT

package paperless

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/cache"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/log"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/platform/httpx"
	"github.com/Flameeyes/flameeyes-paperless-automation/internal/resilience"
	"golang.org/x/time/rate"
)

// MaxAPIVersion is the newest API version the client speaks.
const MaxAPIVersion = 4

// lookupTTL bounds how long default owner, group and custom field lookups
// are reused within a session.
const lookupTTL = 10 * time.Minute

// Session is an open connection to a Paperless-ngx instance. It is safe for
// concurrent use.
type Session struct {
	baseURL *url.URL
	apiRoot *url.URL

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	username  string
	password  string
	token     string
	userAgent string

	objectOwner    string
	allAccessGroup string

	apiVersion int
	closed     atomic.Bool

	rnd *rand.Rand
	mu  sync.Mutex

	users        *cache.Memory[User]
	groups       *cache.Memory[Group]
	customFields *cache.Memory[CustomField]
}

// Open connects to the instance and negotiates the API version from the
// X-Api-Version header of the API root, capped at MaxAPIVersion.
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts = normalizeOptions(opts)

	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid Paperless URL %q", opts.BaseURL)
	}
	if base.User != nil && opts.Username == "" && opts.Token == "" {
		opts.Username = base.User.Username()
		opts.Password, _ = base.User.Password()
	}
	base.User = nil
	base.Path = strings.TrimRight(base.Path, "/") + "/"
	apiRoot := base.ResolveReference(&url.URL{Path: "api/"})

	client := opts.HTTPClient
	if client == nil {
		if opts.Traced {
			client = httpx.NewTracedClient(opts.Timeout)
		} else {
			client = httpx.NewClient(opts.Timeout)
		}
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker()
	}

	s := &Session{
		baseURL:        base,
		apiRoot:        apiRoot,
		httpClient:     client,
		limiter:        rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		breaker:        breaker,
		maxRetries:     opts.MaxRetries,
		backoff:        opts.Backoff,
		maxBackoff:     opts.MaxBackoff,
		username:       opts.Username,
		password:       opts.Password,
		token:          opts.Token,
		userAgent:      opts.UserAgent,
		objectOwner:    opts.ObjectOwner,
		allAccessGroup: opts.AllAccessGroup,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
		users:          cache.NewMemory[User](0),
		groups:         cache.NewMemory[Group](0),
		customFields:   cache.NewMemory[CustomField](0),
	}

	v, err := s.negotiateVersion(ctx)
	if err != nil {
		return nil, err
	}
	s.apiVersion = v

	logger := log.FromContext(ctx)
	logger.Debug().
		Str(log.FieldBaseURL, base.String()).
		Int(log.FieldAPIVersion, v).
		Msg("paperless session opened")
	return s, nil
}

func (s *Session) negotiateVersion(ctx context.Context) (int, error) {
	resp, err := s.do(ctx, request{method: http.MethodGet, url: s.apiRoot, accept: "application/json"})
	if err != nil {
		return 0, err
	}
	drainAndClose(resp)

	header := resp.Header.Get("X-Api-Version")
	v, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || v < 1 {
		return 0, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: "GET " + s.apiRoot.Path,
			Status:    resp.StatusCode,
			Body:      fmt.Sprintf("missing or invalid X-Api-Version header %q", header),
		}
	}
	return min(MaxAPIVersion, v), nil
}

// Close releases idle connections. Further calls fail with ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.httpClient.CloseIdleConnections()
	s.users.Close()
	s.groups.Close()
	s.customFields.Close()
	return nil
}

// APIVersion returns the negotiated API version.
func (s *Session) APIVersion() int { return s.apiVersion }

// BaseURL returns the instance URL with a trailing slash.
func (s *Session) BaseURL() string { return s.baseURL.String() }

// Ping checks that the API root answers.
func (s *Session) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, request{method: http.MethodGet, url: s.apiRoot, accept: "application/json"})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// resolve turns an API reference into an absolute URL. Plain collection
// paths ("tags/") resolve against the API root; absolute paths (as found in
// pagination links) against the host. Anything outside the API root is
// rejected.
func (s *Session) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPath, ref, err)
	}
	target := s.apiRoot.ResolveReference(u)
	if target.Scheme != s.apiRoot.Scheme || target.Host != s.apiRoot.Host ||
		!strings.HasPrefix(target.Path, s.apiRoot.Path) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, target.Redacted())
	}
	return target, nil
}

// nextRef reduces a pagination link to its path and query. Paperless builds
// these links with http:// even when it is served over https behind a proxy.
func nextRef(next *string) string {
	if next == nil || *next == "" {
		return ""
	}
	u, err := url.Parse(*next)
	if err != nil {
		return ""
	}
	ref := url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery}
	return ref.String()
}

func (s *Session) versionAccept() string {
	return fmt.Sprintf("application/json; version=%d", s.apiVersion)
}
