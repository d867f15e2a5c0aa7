// Package notifications keeps the unread security alert count fresh while a
// session is active and offers the alert actions that change it.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/ferretcontrol-console/metrics"
	"github.com/jrsteele09/ferretcontrol-console/session"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// DefaultInterval is the unread count refresh cadence.
const DefaultInterval = 15 * time.Second

// UnreadCounter fetches the unread notification count from the backend.
type UnreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Poller owns the unread alert count. It starts polling when a session identity
// appears and stops, resetting the count to zero, when it goes away.
//
// Refreshes may overlap; the last response to arrive wins. Responses that
// belong to an ended session are discarded.
type Poller struct {
	api       UnreadCounter
	interval  time.Duration
	newTicker TickerFunc
	metrics   metrics.Recorder
	trigger   chan struct{}

	mu         sync.Mutex
	count      int
	active     bool
	closed     bool
	generation uint64
	owner      session.Identity
	sessionCtx context.Context
	cancel     context.CancelFunc
	wg         *conc.WaitGroup
}

var _ session.Observer = (*Poller)(nil)

// PollerOption configures a Poller.
type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTicker replaces the real ticker (primarily for testing)
func WithTicker(f TickerFunc) PollerOption {
	return func(p *Poller) {
		p.newTicker = f
	}
}

func WithMetrics(r metrics.Recorder) PollerOption {
	return func(p *Poller) {
		p.metrics = r
	}
}

func NewPoller(api UnreadCounter, options ...PollerOption) *Poller {
	p := &Poller{
		api:       api,
		interval:  DefaultInterval,
		newTicker: newTimeTicker,
		metrics:   metrics.Nop{},
		trigger:   make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// UnreadCount returns the last known unread count; 0 when no session is active.
func (p *Poller) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// IdentityChanged implements session.Observer.
func (p *Poller) IdentityChanged(identity *session.Identity) {
	if identity == nil {
		p.stop()
		return
	}

	// a different actor gets a fresh generation and count
	p.mu.Lock()
	switched := p.active && p.owner != *identity
	p.mu.Unlock()
	if switched {
		p.stop()
	}
	p.start(*identity)
}

// Refresh fetches the unread count now. It does nothing without an active
// session. Failures are logged and the previous count is kept.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	sessionCtx := p.sessionCtx
	p.mu.Unlock()

	// the call is abandoned as soon as the session ends
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, cancel)
	defer stop()

	count, err := p.api.UnreadCount(ctx)
	if err != nil {
		if sessionCtx.Err() != nil {
			return
		}
		p.metrics.RecordPoll(false)
		log.Err(err).Msg("Error checking notifications")
		return
	}

	p.mu.Lock()
	if !p.active || p.generation != gen {
		p.mu.Unlock()
		return
	}
	p.count = count
	p.mu.Unlock()

	p.metrics.RecordPoll(true)
	p.metrics.SetUnreadCount(count)
}

// NotifyMutation asks for an immediate refresh after a caller changed
// notification state. It never blocks; bursts collapse into one refresh.
func (p *Poller) NotifyMutation() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Close stops polling for good. The count is reset and later identity changes are ignored.
func (p *Poller) Close() {
	p.stop()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Poller) start(owner session.Identity) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.active {
		p.mu.Unlock()
		p.NotifyMutation()
		return
	}

	p.active = true
	p.owner = owner
	p.generation++
	ctx, cancel := context.WithCancel(context.Background())
	p.sessionCtx = ctx
	p.cancel = cancel

	// drop a trigger left over from a previous session
	select {
	case <-p.trigger:
	default:
	}

	ticker := p.newTicker(p.interval)
	wg := conc.NewWaitGroup()
	p.wg = wg
	wg.Go(func() { p.run(ctx, ticker) })
	p.mu.Unlock()

	log.Debug().Dur("interval", p.interval).Msg("Notification polling started")
}

// stop cancels the polling task and resets the count before returning.
func (p *Poller) stop() {
	p.mu.Lock()
	p.count = 0
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.generation++
	cancel, wg := p.cancel, p.wg
	p.cancel, p.wg = nil, nil
	p.mu.Unlock()

	p.metrics.SetUnreadCount(0)
	cancel()
	wg.Wait()

	log.Debug().Msg("Notification polling stopped")
}

func (p *Poller) run(ctx context.Context, ticker Ticker) {
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.Refresh(ctx)
		case <-p.trigger:
			p.Refresh(ctx)
		}
	}
}
