// Package pending lets callers wait for unspent outputs that do not
// exist yet. Each awaited outpoint gets one single-fire broadcast that
// every waiter shares. It is created on first use and removed when it
// fires.
package pending

import (
	"context"
	"sync"

	"github.com/blkchain/chainstate"
)

type broadcast struct {
	done chan struct{}
	utxo *chainstate.UTXO

	// Number of subscriptions that have not been cancelled.
	subscribers int
}

// Outputs is the registry of awaited outpoints. It is safe for
// concurrent use.
type Outputs struct {
	mu      sync.Mutex
	waiting map[chainstate.OutPoint]*broadcast
}

func New() *Outputs {
	return &Outputs{
		waiting: make(map[chainstate.OutPoint]*broadcast),
	}
}

// Subscription is one caller's interest in an outpoint.
type Subscription struct {
	outputs  *Outputs
	outpoint chainstate.OutPoint
	b        *broadcast
	once     sync.Once
}

// Subscribe registers interest in outpoint. The subscription fires
// when Respond or CheckAgainst reports the output.
func (o *Outputs) Subscribe(outpoint chainstate.OutPoint) *Subscription {
	o.mu.Lock()
	b, ok := o.waiting[outpoint]
	if !ok {
		b = &broadcast{done: make(chan struct{})}
		o.waiting[outpoint] = b
	}
	b.subscribers++
	o.mu.Unlock()

	return &Subscription{outputs: o, outpoint: outpoint, b: b}
}

// Done is closed once the output has arrived.
func (s *Subscription) Done() <-chan struct{} {
	return s.b.done
}

// UTXO returns the output. Only valid after Done is closed.
func (s *Subscription) UTXO() *chainstate.UTXO {
	return s.b.utxo
}

// Cancel withdraws the subscription. The broadcast is left for Prune to
// reclaim once nobody is subscribed.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.outputs.mu.Lock()
		s.b.subscribers--
		s.outputs.mu.Unlock()
	})
}

// Wait blocks until the output arrives or ctx is done. A cancelled
// wait also cancels the subscription.
func (s *Subscription) Wait(ctx context.Context) (*chainstate.UTXO, error) {
	select {
	case <-s.b.done:
		return s.b.utxo, nil
	case <-ctx.Done():
	}

	// Prefer the output if both happened.
	select {
	case <-s.b.done:
		return s.b.utxo, nil
	default:
	}
	s.Cancel()
	return nil, ctx.Err()
}

// Await waits for the output at outpoint to be reported.
func (o *Outputs) Await(ctx context.Context, outpoint chainstate.OutPoint) (*chainstate.UTXO, error) {
	return o.Subscribe(outpoint).Wait(ctx)
}

// Respond hands utxo to everybody waiting on outpoint. It is a no-op
// if nobody is.
func (o *Outputs) Respond(outpoint chainstate.OutPoint, utxo *chainstate.UTXO) {
	o.mu.Lock()
	o.respond(outpoint, utxo)
	o.mu.Unlock()
}

// CheckAgainst responds for every outpoint in utxos that has waiters.
func (o *Outputs) CheckAgainst(utxos map[chainstate.OutPoint]*chainstate.UTXO) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.waiting) == 0 {
		return
	}
	for outpoint, utxo := range utxos {
		o.respond(outpoint, utxo)
	}
}

func (o *Outputs) respond(outpoint chainstate.OutPoint, utxo *chainstate.UTXO) {
	b, ok := o.waiting[outpoint]
	if !ok {
		return
	}
	delete(o.waiting, outpoint)

	// Firing with no subscribers left is fine, they gave up.
	log.Tracef("Found pending UTXO %v", outpoint)
	b.utxo = utxo
	close(b.done)
}

// Prune drops broadcasts whose subscribers have all cancelled.
func (o *Outputs) Prune() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for outpoint, b := range o.waiting {
		if b.subscribers <= 0 {
			delete(o.waiting, outpoint)
		}
	}
}

// Len returns the number of outpoints being waited on.
func (o *Outputs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.waiting)
}
