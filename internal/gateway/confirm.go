package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

// ConfirmBroker implements interfaces.Confirmer by routing confirmation
// prompts to connected operator consoles and waiting for a decision. A
// prompt with no connected operators, an expired context, or a broker
// shutdown all resolve to "not confirmed".
type ConfirmBroker struct {
	mu      sync.RWMutex
	pending map[string]*pendingConfirm
	subs    map[*Subscriber]struct{}
	closed  bool
	logger  *slog.Logger
}

type pendingConfirm struct {
	req   interfaces.ConfirmRequest
	decCh chan interfaces.ConfirmDecision
}

// Subscriber is one connected operator console.
type Subscriber struct {
	broker *ConfirmBroker
	reqCh  chan interfaces.ConfirmRequest
}

// NewConfirmBroker creates an empty broker.
func NewConfirmBroker(logger *slog.Logger) *ConfirmBroker {
	return &ConfirmBroker{
		pending: make(map[string]*pendingConfirm),
		subs:    make(map[*Subscriber]struct{}),
		logger:  logger.With("component", "confirm"),
	}
}

// Confirm registers the request, fans it out to all operator consoles, and
// blocks until a decision arrives or ctx expires. It satisfies
// interfaces.Confirmer; the caller bounds the wait via ctx.
func (b *ConfirmBroker) Confirm(ctx context.Context, req interfaces.ConfirmRequest) (bool, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false, fmt.Errorf("confirmation channel is shut down")
	}
	pc := &pendingConfirm{req: req, decCh: make(chan interfaces.ConfirmDecision, 1)}
	b.pending[req.ID] = pc
	subs := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	if len(subs) == 0 {
		b.logger.Warn("confirmation requested with no operator connected", "id", req.ID)
		return false, fmt.Errorf("no operator console connected")
	}

	for _, s := range subs {
		select {
		case s.reqCh <- req:
		default:
			b.logger.Warn("operator console queue full, skipping", "id", req.ID)
		}
	}
	b.logger.Info("confirmation pending", "id", req.ID, "summary", req.Summary)

	select {
	case dec := <-pc.decCh:
		b.logger.Info("confirmation resolved", "id", req.ID, "approved", dec.Approved)
		return dec.Approved, nil
	case <-ctx.Done():
		b.logger.Info("confirmation expired", "id", req.ID)
		return false, nil
	}
}

// Decide resolves a pending confirmation. Unknown IDs are rejected so a
// stale console cannot approve a request that already expired.
func (b *ConfirmBroker) Decide(dec interfaces.ConfirmDecision) error {
	b.mu.RLock()
	pc, ok := b.pending[dec.ID]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no pending confirmation %q", dec.ID)
	}

	select {
	case pc.decCh <- dec:
		return nil
	default:
		return fmt.Errorf("confirmation %q already decided", dec.ID)
	}
}

// Pending lists the currently open confirmation requests.
func (b *ConfirmBroker) Pending() []interfaces.ConfirmRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]interfaces.ConfirmRequest, 0, len(b.pending))
	for _, pc := range b.pending {
		out = append(out, pc.req)
	}
	return out
}

// Subscribe attaches an operator console. The caller must Unsubscribe when
// the connection closes.
func (b *ConfirmBroker) Subscribe() *Subscriber {
	sub := &Subscriber{
		broker: b,
		reqCh:  make(chan interfaces.ConfirmRequest, 16),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug("operator console subscribed")
	return sub
}

// Requests delivers confirmation prompts to this console.
func (s *Subscriber) Requests() <-chan interfaces.ConfirmRequest {
	return s.reqCh
}

// Unsubscribe detaches the console from the broker.
func (s *Subscriber) Unsubscribe() {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()
	s.broker.logger.Debug("operator console unsubscribed")
}

// Close shuts the broker down; all pending confirmations resolve as
// declined when their contexts expire.
func (b *ConfirmBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
	}
}
