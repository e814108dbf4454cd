package storage

import (
	"context"
	"log"
	"sync"
	"time"
)

// State is the display state of a Refresher
type State int

const (
	Unloaded State = iota
	Loading
	Displayed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Displayed:
		return "displayed"
	default:
		return "unknown"
	}
}

// Snapshot is the observable state of a Refresher at one point in time
type Snapshot struct {
	State     State
	Path      string
	URL       string
	ExpiresAt time.Time
}

type timer interface {
	Stop() bool
}

// Option configures a Refresher
type Option func(*Refresher)

// WithTTL sets how long each signed locator is valid.
func WithTTL(ttl time.Duration) Option {
	return func(r *Refresher) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithOnChange registers a callback invoked after state transitions.
// Callbacks are delivered one at a time and in transition order; a snapshot
// superseded before it could be delivered is skipped. The callback may read
// the Refresher but must not call SetPath, ReportError or Close.
func WithOnChange(fn func(Snapshot)) Option {
	return func(r *Refresher) {
		r.onChange = fn
	}
}

// Refresher keeps a signed locator for one stored object current. It
// requests a locator when given a path, renews it shortly before expiry and
// re-requests when the displayed locator fails. Signing failures resolve to
// no locator and are only logged.
//
// A Refresher owns at most one renewal timer. Changing the path or closing
// the Refresher stops the timer and cancels any in-flight request; results
// that arrive afterwards are discarded.
type Refresher struct {
	signer    Signer
	ttl       time.Duration
	now       func() time.Time
	afterFunc func(time.Duration, func()) timer
	onChange  func(Snapshot)

	notifyMu  sync.Mutex
	delivered uint64

	mu        sync.Mutex
	path      string
	state     State
	url       string
	expiresAt time.Time
	timer     timer
	cancel    context.CancelFunc
	gen       uint64
	seq       uint64
	closed    bool
}

// NewRefresher creates an idle Refresher backed by signer.
func NewRefresher(signer Signer, opts ...Option) *Refresher {
	r := &Refresher{
		signer: signer,
		ttl:    DefaultTTL,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPath switches the Refresher to path. An empty path clears the locator
// before returning and makes no request. Setting the current path again is a
// no-op.
func (r *Refresher) SetPath(path string) {
	r.mu.Lock()
	if r.closed || (path == r.path && path != "") {
		r.mu.Unlock()
		return
	}

	r.reset()
	r.path = path
	if path == "" {
		r.state = Unloaded
	} else {
		r.startLoad()
	}
	snap, seq := r.transition()
	r.mu.Unlock()

	r.notify(snap, seq)
}

// ReportError signals that the displayed locator failed to load and requests
// a fresh one.
func (r *Refresher) ReportError() {
	r.mu.Lock()
	if r.closed || r.state != Displayed {
		r.mu.Unlock()
		return
	}
	r.stopTimer()
	r.startLoad()
	snap, seq := r.transition()
	r.mu.Unlock()

	r.notify(snap, seq)
}

// Close tears the Refresher down. It is safe to call more than once.
func (r *Refresher) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.reset()
	r.path = ""
	r.state = Unloaded
	snap, seq := r.transition()
	r.mu.Unlock()

	r.notify(snap, seq)
}

// Snapshot returns the current state.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// URL returns the locator to display, or "" when there is none.
func (r *Refresher) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

// startLoad must be called with mu held.
func (r *Refresher) startLoad() {
	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state = Loading

	go r.load(ctx, gen, r.path)
}

func (r *Refresher) load(ctx context.Context, gen uint64, path string) {
	issued := r.now()
	var (
		locator string
		err     error
	)
	if r.signer == nil {
		err = ErrNotConfigured
	} else {
		locator, err = r.signer.SignURL(ctx, path, r.ttl)
	}

	r.mu.Lock()
	if gen != r.gen || r.closed {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if err != nil {
		log.Printf("failed to resolve signed URL for %s: %v", path, err)
		r.state = Unloaded
		r.url = ""
		r.expiresAt = time.Time{}
	} else {
		r.state = Displayed
		r.url = WithCacheBuster(locator, issued)
		r.expiresAt = issued.Add(r.ttl)
		r.timer = r.afterFunc(RefreshDelay(r.ttl), func() { r.refresh(gen) })
	}
	snap, seq := r.transition()
	r.mu.Unlock()

	r.notify(snap, seq)
}

func (r *Refresher) refresh(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.closed || r.state != Displayed {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.startLoad()
	snap, seq := r.transition()
	r.mu.Unlock()

	r.notify(snap, seq)
}

// reset drops the timer, the in-flight request and the locator. mu must be held.
func (r *Refresher) reset() {
	r.stopTimer()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	r.url = ""
	r.expiresAt = time.Time{}
}

func (r *Refresher) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Refresher) snapshot() Snapshot {
	return Snapshot{State: r.state, Path: r.path, URL: r.url, ExpiresAt: r.expiresAt}
}

// transition records a state change and returns its snapshot and sequence
// number. mu must be held.
func (r *Refresher) transition() (Snapshot, uint64) {
	r.seq++
	return r.snapshot(), r.seq
}

// notify delivers s unless a later transition has already been delivered.
func (r *Refresher) notify(s Snapshot, seq uint64) {
	if r.onChange == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if seq <= r.delivered {
		return
	}
	r.delivered = seq
	r.onChange(s)
}
