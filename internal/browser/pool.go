package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var ErrPoolClosed = errors.New("session pool is closed")

type Options struct {
	BaseURL       string
	FailureDir    string
	RecordingsDir string
	Record        bool
	Timeout       time.Duration
	Retries       int
	Logger        *slog.Logger
}

// Pool hands out sessions for one suite run. Each scenario owns at most one
// session; Close shuts down whatever is still open.
type Pool struct {
	opts    Options
	base    *url.URL
	logger  *slog.Logger
	mu      sync.Mutex
	open    map[*Session]struct{}
	closed  bool
	newHTTP func() *http.Client
}

func NewPool(opts Options) (*Pool, error) {
	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base url: %w", err)
		}
		base = u
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{
		opts:   opts,
		base:   base,
		logger: logger,
		open:   make(map[*Session]struct{}),
		newHTTP: func() *http.Client {
			return &http.Client{Timeout: opts.Timeout}
		},
	}, nil
}

// Open starts a session for one scenario. featurePath is used to resolve
// relative fixture paths.
func (p *Pool) Open(ctx context.Context, featureTitle, scenarioTitle, featurePath string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	hc := p.newHTTP()
	hc.Jar = jar

	client := retryablehttp.NewClient()
	client.HTTPClient = hc
	client.RetryMax = p.opts.Retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.CheckRetry = retryPolicy

	rec, err := newRecorder(p.opts, featureTitle, scenarioTitle)
	if err != nil {
		return nil, err
	}

	s := &Session{
		pool:        p,
		client:      client,
		base:        p.base,
		feature:     featureTitle,
		scenario:    scenarioTitle,
		featurePath: featurePath,
		rec:         rec,
		fields:      make(map[string]string),
		files:       make(map[string]string),
		logger:      p.logger.With("feature", featureTitle, "scenario", scenarioTitle),
	}
	p.open[s] = struct{}{}
	s.logger.Debug("session opened")
	return s, nil
}

type noRetryKey struct{}

// withoutRetry marks a request context so the request is sent once.
func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// retryPolicy follows the default policy for GET and HEAD. A form post is
// never replayed: the application may already have acted on it.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, nil
	}
	if resp != nil && resp.Request != nil {
		switch resp.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			return false, nil
		}
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (p *Pool) release(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.open, s)
}

// Len is the number of sessions not yet closed.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.open)
}

// Close closes every session still open and refuses new ones.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	leftover := make([]*Session, 0, len(p.open))
	for s := range p.open {
		leftover = append(leftover, s)
	}
	p.mu.Unlock()

	var errs []error
	for _, s := range leftover {
		p.logger.Warn("closing leaked session", "feature", s.feature, "scenario", s.scenario)
		if err := s.Close(true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
