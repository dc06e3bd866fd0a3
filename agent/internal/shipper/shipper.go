package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fitpoint/fitpoint/agent/internal/config"
	"github.com/fitpoint/fitpoint/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	// breakerTrips is the number of consecutive failed posts that open the breaker.
	breakerTrips   = 5
	breakerTimeout = 30 * time.Second
)

// permanentError marks a response the server will never accept, so the batch
// is discarded instead of retried.
type permanentError struct {
	status int
	body   string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("server rejected rows: %d %s", e.status, e.body)
}

// errSessionLost reports that the server no longer knows an auto-created
// session, usually because it expired or the server restarted.
var errSessionLost = errors.New("session lost")

// IsPermanent reports whether err is a rejection that retrying cannot fix.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

func statusOf(err error) int {
	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.status
	}
	return 0
}

// Shipper buffers rows and posts them to a fitpoint-server session.
// Ship is non-blocking; when the buffer is full the oldest rows are evicted.
// Run must be called in a goroutine to drain the buffer.
type Shipper struct {
	cfg    config.AgentConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker

	// flushMu keeps batches in order when Run and a final Flush overlap.
	flushMu sync.Mutex

	mu        sync.Mutex
	buf       []types.RawRow
	sessionID string
}

// New creates a Shipper for cfg. client may be nil.
func New(cfg config.AgentConfig, client *http.Client) *Shipper {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	s := &Shipper{
		cfg:       cfg,
		client:    client,
		sessionID: cfg.SessionID,
	}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fitpoint-server",
		Timeout: breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		// A rejected batch still proves the server is up.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("shipper: circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// SessionID returns the session rows are posted to, empty until one is known.
func (s *Shipper) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Pending returns the number of buffered rows.
func (s *Shipper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Ship enqueues rows. If the buffer overflows the oldest rows are dropped.
func (s *Shipper) Ship(rows ...types.RawRow) {
	if len(rows) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, rows...)
	if over := len(s.buf) - s.cfg.BufferSize; over > 0 {
		s.buf = append([]types.RawRow(nil), s.buf[over:]...)
		slog.Warn("shipper: buffer full, evicted oldest rows",
			"evicted", over, "buffer_cap", s.cfg.BufferSize)
	}
}

// Run flushes the buffer every ShipInterval until ctx is cancelled and returns
// once no flush of its own is in progress. After a
// transient failure the next attempt waits out a truncated exponential
// backoff instead of the regular interval.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()
	wait := s.cfg.ShipInterval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		err := s.Flush(ctx)
		switch {
		case err == nil:
			bo.reset()
			wait = s.cfg.ShipInterval
		case ctx.Err() != nil:
			return
		default:
			wait = bo.next()
			slog.Warn("shipper: flush failed, will retry",
				"server", s.cfg.ServerURL, "err", err, "retry_in", wait, "pending", s.Pending())
		}
	}
}

// Flush posts every buffered row in one batch. On a transient failure the
// batch goes back to the front of the buffer; on a permanent one it is
// dropped and Flush returns nil. When an auto-created session has vanished
// from the server, Flush creates a new one and posts the batch there. A
// configured SessionID is never replaced. Calls are serialized.
func (s *Shipper) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	err := s.flush(ctx)
	if errors.Is(err, errSessionLost) {
		err = s.flush(ctx)
	}
	return err
}

func (s *Shipper) flush(ctx context.Context) error {
	id, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, s.postRows(ctx, id, batch)
	})
	switch {
	case err == nil:
		slog.Debug("shipper: rows delivered", "session", id, "rows", len(batch))
		return nil
	case statusOf(err) == http.StatusNotFound && s.cfg.SessionID == "":
		slog.Warn("shipper: session gone from server, creating a new one",
			"session", id, "rows", len(batch))
		s.mu.Lock()
		if s.sessionID == id {
			s.sessionID = ""
		}
		s.mu.Unlock()
		s.requeue(batch)
		return fmt.Errorf("post to %s: %w", id, errSessionLost)
	case IsPermanent(err):
		slog.Error("shipper: permanent send error, discarding rows",
			"session", id, "rows", len(batch), "err", err)
		return nil
	default:
		s.requeue(batch)
		return err
	}
}

func (s *Shipper) requeue(batch []types.RawRow) {
	s.mu.Lock()
	pending := s.buf
	s.buf = batch
	s.mu.Unlock()
	s.Ship(pending...)
}

// ensureSession creates a session named SessionName when none is configured.
func (s *Shipper) ensureSession(ctx context.Context) (string, error) {
	if id := s.SessionID(); id != "" {
		return id, nil
	}

	res, err := s.cb.Execute(func() (interface{}, error) {
		body, err := json.Marshal(map[string]string{"name": s.cfg.SessionName})
		if err != nil {
			return nil, err
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := s.do(ctx, http.MethodPost, "/api/v1/sessions", body, &created); err != nil {
			return nil, err
		}
		if created.ID == "" {
			return nil, errors.New("server returned no session id")
		}
		return created.ID, nil
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	id := res.(string)
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
	slog.Info("shipper: session created", "session", id, "name", s.cfg.SessionName)
	return id, nil
}

func (s *Shipper) postRows(ctx context.Context, id string, rows []types.RawRow) error {
	body, err := json.Marshal(struct {
		Rows []types.RawRow `json:"rows"`
	}{rows})
	if err != nil {
		return &permanentError{status: 0, body: err.Error()}
	}
	return s.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/rows", body, nil)
}

// do sends one JSON request and decodes the response into out when non-nil.
func (s *Shipper) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.ServerURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.ServerAuth.Mode == "apikey" {
		req.Header.Set(s.cfg.ServerAuth.EffectiveHeader(), s.cfg.ServerAuth.Key())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if isPermanentStatus(resp.StatusCode) {
			return &permanentError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
