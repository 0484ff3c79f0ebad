package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/okian/quizboard/internal/domain/model"
	"github.com/okian/quizboard/pkg/logger"
	"github.com/okian/quizboard/pkg/metrics"
)

// Default fetch settings.
const (
	defaultTimeout    = 10 * time.Second
	defaultAttempts   = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultMaxJitter  = 250 * time.Millisecond
	minJitter         = time.Millisecond
	maxBodyBytes      = 32 << 20
)

// FirebaseOption applies a configuration option to Firebase.
type FirebaseOption func(*Firebase)

// WithAuthToken appends ?auth=<token> to every request.
func WithAuthToken(token string) FirebaseOption {
	return func(f *Firebase) {
		f.token = token
	}
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(f *Firebase) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds one quiz fetch including its retries.
func WithTimeout(d time.Duration) FirebaseOption {
	return func(f *Firebase) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRetry sets the attempt count and the base delay between attempts.
func WithRetry(attempts int, delay time.Duration) FirebaseOption {
	return func(f *Firebase) {
		if attempts > 0 {
			f.attempts = uint(attempts)
		}
		if delay >= 0 {
			f.delay = delay
			f.maxJitter = max(delay/2, minJitter)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) FirebaseOption {
	return func(f *Firebase) {
		if l != nil {
			f.logger = l
		}
	}
}

// Firebase reads quiz boards from <baseURL>/leaderboard/<quizID>.json, one quiz at a time.
type Firebase struct {
	baseURL   string
	quizIDs   []string
	token     string
	client    *http.Client
	timeout   time.Duration
	attempts  uint
	delay     time.Duration
	maxJitter time.Duration
	logger    logger.Logger
}

// NewFirebase creates a Firebase source for quizIDs.
func NewFirebase(baseURL string, quizIDs []string, opts ...FirebaseOption) *Firebase {
	f := &Firebase{
		baseURL:   strings.TrimRight(baseURL, "/"),
		quizIDs:   append([]string(nil), quizIDs...),
		client:    http.DefaultClient,
		timeout:   defaultTimeout,
		attempts:  defaultAttempts,
		delay:     defaultRetryDelay,
		maxJitter: defaultMaxJitter,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads every configured quiz sequentially. A failing quiz is recorded as missing
// and the others proceed; only a cancelled context stops the loop.
func (f *Firebase) Fetch(ctx context.Context) (model.Snapshot, error) {
	snap := model.Snapshot{
		QuizIDs: append([]string(nil), f.quizIDs...),
		Quizzes: make(map[string]map[string]model.RawEntry, len(f.quizIDs)),
	}

	var errs []error
	for _, quizID := range f.quizIDs {
		if err := ctx.Err(); err != nil {
			return snap, fmt.Errorf("%w: %w", ErrFetch, err)
		}

		board, err := f.FetchQuiz(ctx, quizID)
		if err != nil {
			snap.Missing = append(snap.Missing, quizID)
			errs = append(errs, &QuizError{QuizID: quizID, Err: err})
			if errors.Is(err, ErrAuthRequired) {
				f.logger.Warn(ctx, "quiz requires auth", logger.String("quiz", quizID))
			} else {
				f.logger.Error(ctx, "quiz fetch failed", logger.String("quiz", quizID), logger.Error(err))
			}
			continue
		}
		snap.Quizzes[quizID] = board
		f.logger.Info(ctx, "quiz fetched", logger.String("quiz", quizID), logger.Int("entries", len(board)))
	}
	return snap, errors.Join(errs...)
}

// FetchQuiz reads one quiz board. Transient failures (network errors, 429, 5xx) are
// retried; 401 and 403 fail fast with ErrAuthRequired.
func (f *Firebase) FetchQuiz(ctx context.Context, quizID string) (map[string]model.RawEntry, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.quizURL(quizID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	var lastErr error
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			b, err := f.do(req)
			lastErr = err
			return b, err
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.MaxJitter(f.maxJitter),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			metrics.RecordFetchRetry()
			f.logger.Debug(ctx, "retrying quiz fetch",
				logger.String("quiz", quizID), logger.Int("attempt", int(n)+1), logger.Error(err))
		}),
	)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		var httpErr *HTTPError
		switch {
		case errors.As(lastErr, &httpErr) && isAuthStatus(httpErr.StatusCode):
			metrics.RecordSnapshotFetch(quizID, metrics.OutcomeAuthRequired)
			return nil, fmt.Errorf("%w: %w", ErrAuthRequired, lastErr)
		case ctx.Err() != nil && !errors.Is(lastErr, ctx.Err()):
			lastErr = fmt.Errorf("%w (last attempt: %w)", ctx.Err(), lastErr)
		}
		metrics.RecordSnapshotFetch(quizID, metrics.OutcomeError)
		metrics.RecordError("source", "fetch")
		return nil, fmt.Errorf("%w: %w", ErrFetch, lastErr)
	}

	board, skipped, err := decodeQuiz(quizID, body)
	if err != nil {
		metrics.RecordSnapshotFetch(quizID, metrics.OutcomeError)
		metrics.RecordError("source", "decode")
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn(ctx, "skipped malformed submissions", logger.String("quiz", quizID), logger.Int("skipped", skipped))
	}
	metrics.RecordSnapshotFetch(quizID, metrics.OutcomeOK)
	return board, nil
}

func (f *Firebase) quizURL(quizID string) string {
	u := f.baseURL + "/leaderboard/" + url.PathEscape(quizID) + ".json"
	if f.token != "" {
		u += "?auth=" + url.QueryEscape(f.token)
	}
	return u
}

func (f *Firebase) do(req *http.Request) ([]byte, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(urlErr.URL)
		}
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: redact(req.URL.String())}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// redact drops the query string so tokens never reach logs.
func redact(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
