package onboarding

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller re-checks the backend status while the user is away in Meta's flow.
// It stops on a terminal step or when the wall-clock cap is exceeded,
// whichever comes first.
type Poller struct {
	Session     *Session
	Interval    time.Duration
	MaxDuration time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewPoller(session *Session, interval, maxDuration time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if maxDuration <= 0 {
		maxDuration = 5 * time.Minute
	}
	return &Poller{
		Session:     session,
		Interval:    interval,
		MaxDuration: maxDuration,
	}
}

// Start begins polling. The deadline is stamped here, at the moment polling
// actually starts, never earlier. Starting an already-running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	startedAt := time.Now()
	log.Printf("Status polling started (interval=%s, max=%s)", p.Interval, p.MaxDuration)
	go p.run(ctx, startedAt)
}

// Stop cancels polling. Safe to call multiple times and after teardown.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
}

func (p *Poller) run(ctx context.Context, startedAt time.Time) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	defer p.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Session.Step().IsTerminal() {
				log.Println("Status polling stopped: terminal step reached")
				return
			}
			if time.Since(startedAt) > p.MaxDuration {
				log.Println("Status polling stopped: max duration exceeded")
				p.Session.setPollTimeout()
				return
			}
			p.Session.pollTick(ctx)
			if p.Session.Step().IsTerminal() {
				log.Println("Status polling stopped: terminal step reached")
				return
			}
		}
	}
}

// Running reports whether a poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
