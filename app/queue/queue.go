// Package queue implements per-platform request pacing: FIFO dispatch with
// minimum inter-request spacing, an in-flight cap, and front-of-queue retry
// with exponential backoff. Each platform gets its own processing loop and
// the loops never interact, so a stalled platform cannot starve another.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limits configures pacing for a single platform.
type Limits struct {
	MinDelay      time.Duration
	MaxConcurrent int
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultLimits is the politeness baseline applied when a platform has no
// explicit configuration.
var DefaultLimits = Limits{
	MinDelay:      2 * time.Second,
	MaxConcurrent: 1,
	MaxRetries:    3,
	RetryDelay:    time.Second,
}

// RequestFunc is the unit of work submitted to the queue. The queue owns
// when it runs; the function owns what it does.
type RequestFunc func(ctx context.Context) error

type request struct {
	fn        RequestFunc
	ctx       context.Context
	retries   int
	notBefore time.Time
	lastErr   error
	reply     chan error
}

type completion struct {
	req *request
	err error
}

// platformLoop owns all mutable pacing state for one platform. The state is
// only ever touched from run(), so no locking is needed around it.
type platformLoop struct {
	name         string
	limits       Limits
	submitCh     chan *request
	doneCh       chan completion
	pending      []*request
	inFlight     int
	lastDispatch time.Time
}

type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	loops  map[string]*platformLoop
	limits map[string]Limits
}

func New() *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		ctx:    ctx,
		cancel: cancel,
		loops:  make(map[string]*platformLoop),
		limits: make(map[string]Limits),
	}
}

// Configure sets the pacing limits for a platform. Must be called before
// the first Submit for that platform to take effect.
func (q *Queue) Configure(platform string, limits Limits) {
	if limits.MinDelay <= 0 {
		limits.MinDelay = DefaultLimits.MinDelay
	}
	if limits.MaxConcurrent <= 0 {
		limits.MaxConcurrent = DefaultLimits.MaxConcurrent
	}
	if limits.MaxRetries <= 0 {
		limits.MaxRetries = DefaultLimits.MaxRetries
	}
	if limits.RetryDelay <= 0 {
		limits.RetryDelay = DefaultLimits.RetryDelay
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.limits[platform] = limits
}

// Submit enqueues fn on the platform's queue and blocks until the request
// reaches a terminal outcome: success, retry exhaustion, or cancellation.
func (q *Queue) Submit(ctx context.Context, platform string, fn RequestFunc) error {
	loop := q.loop(platform)

	req := &request{
		fn:    fn,
		ctx:   ctx,
		reply: make(chan error, 1),
	}

	select {
	case loop.submitCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return fmt.Errorf("queue is shut down")
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down all platform loops and rejects pending work.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) loop(platform string) *platformLoop {
	q.mu.Lock()
	defer q.mu.Unlock()

	if loop, ok := q.loops[platform]; ok {
		return loop
	}

	limits, ok := q.limits[platform]
	if !ok {
		limits = DefaultLimits
	}

	loop := &platformLoop{
		name:     platform,
		limits:   limits,
		submitCh: make(chan *request),
		doneCh:   make(chan completion),
	}
	q.loops[platform] = loop

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		loop.run(q.ctx)
	}()

	return loop
}

func (p *platformLoop) run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		p.dispatch(ctx)

		var timerC <-chan time.Time
		if wait, ok := p.nextWait(); ok {
			timer.Reset(wait)
			timerC = timer.C
		}

		select {
		case req := <-p.submitCh:
			p.pending = append(p.pending, req)
		case done := <-p.doneCh:
			p.inFlight--
			p.settle(done)
		case <-timerC:
			timerC = nil
			continue
		case <-ctx.Done():
			p.drain()
			return
		}

		if timerC != nil && !timer.Stop() {
			<-timer.C
		}
	}
}

// dispatch starts as many head-of-queue requests as pacing allows.
func (p *platformLoop) dispatch(ctx context.Context) {
	for len(p.pending) > 0 && p.inFlight < p.limits.MaxConcurrent {
		now := time.Now()
		head := p.pending[0]

		if head.ctx.Err() != nil {
			head.reply <- head.ctx.Err()
			p.pending = p.pending[1:]
			continue
		}
		if now.Before(head.notBefore) {
			return
		}
		if elapsed := now.Sub(p.lastDispatch); elapsed < p.limits.MinDelay && !p.lastDispatch.IsZero() {
			return
		}

		p.pending = p.pending[1:]
		p.inFlight++
		p.lastDispatch = now

		go func(req *request) {
			err := req.fn(req.ctx)
			select {
			case p.doneCh <- completion{req: req, err: err}:
			case <-ctx.Done():
				req.reply <- fmt.Errorf("queue is shut down")
			}
		}(head)
	}
}

// settle resolves a finished request: success replies immediately, failure
// re-inserts the request at the front of the queue with doubled delay until
// retries are exhausted.
func (p *platformLoop) settle(done completion) {
	req := done.req

	if done.err == nil {
		req.reply <- nil
		return
	}

	req.retries++
	req.lastErr = done.err

	if req.retries >= p.limits.MaxRetries {
		slog.Warn("Request failed after maximum retries", "platform", p.name, "retries", req.retries, "error", done.err)
		req.reply <- fmt.Errorf("failed after %d attempts: %w", req.retries, req.lastErr)
		return
	}

	backoff := p.limits.RetryDelay * time.Duration(1<<uint(req.retries-1))
	req.notBefore = time.Now().Add(backoff)

	slog.Debug("Request retry scheduled", "platform", p.name, "retries", req.retries, "delay", backoff.String())

	// Retries go to the front so they take priority over newer arrivals.
	p.pending = append([]*request{req}, p.pending...)
}

// nextWait reports how long the loop should sleep before the head request
// becomes dispatchable, if there is one waiting on pacing.
func (p *platformLoop) nextWait() (time.Duration, bool) {
	if len(p.pending) == 0 || p.inFlight >= p.limits.MaxConcurrent {
		return 0, false
	}

	now := time.Now()
	wait := time.Duration(0)

	if !p.lastDispatch.IsZero() {
		if spacing := p.limits.MinDelay - now.Sub(p.lastDispatch); spacing > wait {
			wait = spacing
		}
	}
	if until := p.pending[0].notBefore.Sub(now); until > wait {
		wait = until
	}

	if wait <= 0 {
		// Became dispatchable between dispatch and here; re-check promptly.
		wait = time.Millisecond
	}
	return wait, true
}

func (p *platformLoop) drain() {
	for _, req := range p.pending {
		req.reply <- fmt.Errorf("queue is shut down")
	}
	p.pending = nil
}
