// Package lender implements single-producer/many-consumer handoff of
// shared, immutable assets (typically a freshly rebuilt
// wavetable.BandLimitedWaveTables) from the configuration thread to
// every realtime cluster that samples from one. Go's garbage collector
// already makes a stale asset's memory safe to drop the moment nothing
// references it; SharedLender's refcount exists for a different reason
// — knowing when every consumer has actually observed a hot-swapped
// asset, which Lend's caller needs to decide when it is safe to reuse a
// slot (see DESIGN.md).
package lender

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Ref is a reference-counted handle to a lent asset. The lender itself
// holds one implicit reference (created by NewRef, released once
// UpdateDropQueue observes every receiver has moved on); callers that
// receive one from a Receiver must call Release when they are done with
// it. Version tags the asset for log messages and test assertions only —
// it never drives control flow.
type Ref[T any] struct {
	Value   T
	Version uuid.UUID
	refs    int32
}

// NewRef wraps v in a Ref with one reference already held by the caller
// and a fresh version id.
func NewRef[T any](v T) *Ref[T] {
	return &Ref[T]{Value: v, Version: uuid.New(), refs: 1}
}

// Retain adds one reference.
func (r *Ref[T]) Retain() { atomic.AddInt32(&r.refs, 1) }

// Release removes one reference.
func (r *Ref[T]) Release() { atomic.AddInt32(&r.refs, -1) }

// StrongCount reports the current reference count.
func (r *Ref[T]) StrongCount() int32 { return atomic.LoadInt32(&r.refs) }

// queueDepth is the capacity of each receiver's channel, mirroring the
// original ring buffer's fixed size.
const queueDepth = 256

// SharedLender fans a sequence of asset versions out to every receiver
// created so far, non-blocking: a receiver that hasn't drained its
// queue in time simply misses the update rather than stalling the
// sender (the sender runs on the configuration thread, never the audio
// thread, but still must never block on a slow or dead peer).
type SharedLender[T any] struct {
	receivers []chan *Ref[T]
	dropQueue []*Ref[T]
}

// Lend fans item out to every live receiver and adds it to the internal
// drop queue so UpdateDropQueue can later tell when every receiver has
// moved past it. item must arrive holding exactly the one reference
// NewRef gave it — that reference becomes the drop queue's own hold,
// so callers should not separately Release it after calling Lend.
func (l *SharedLender[T]) Lend(item *Ref[T]) {
	for _, ch := range l.receivers {
		item.Retain()
		select {
		case ch <- item:
		default:
			item.Release()
		}
	}
	l.dropQueue = append(l.dropQueue, item)
}

// UpdateDropQueue releases the lender's own hold on every item in the
// drop queue that no receiver appears to be holding any more (strong
// count has fallen back to exactly the lender's own reference), and
// forgets it. Call this periodically from the configuration thread,
// never the audio thread.
func (l *SharedLender[T]) UpdateDropQueue() {
	kept := l.dropQueue[:0]
	for _, item := range l.dropQueue {
		if item.StrongCount() == 1 {
			item.Release()
			continue
		}
		kept = append(kept, item)
	}
	l.dropQueue = kept
}

// CreateReceiver allocates a new fan-out channel and returns a Receiver
// reading from it. Every later Lend call reaches this receiver too.
func (l *SharedLender[T]) CreateReceiver() *Receiver[T] {
	ch := make(chan *Ref[T], queueDepth)
	l.receivers = append(l.receivers, ch)
	return &Receiver[T]{ch: ch}
}

// Receiver is the consumer side of a SharedLender fan-out, typically
// polled once per audio block from a realtime cluster.
type Receiver[T any] struct {
	ch chan *Ref[T]
}

// RecvNext returns the oldest unread item, or nil if none is queued.
func (r *Receiver[T]) RecvNext() *Ref[T] {
	select {
	case item := <-r.ch:
		return item
	default:
		return nil
	}
}

// RecvLatest drains every queued item and returns the newest one (or
// nil if none were queued), releasing every older one it skips past —
// the natural operation for a realtime consumer that only ever cares
// about the current asset version, not every intermediate one.
func (r *Receiver[T]) RecvLatest() *Ref[T] {
	var latest *Ref[T]
	for {
		item := r.RecvNext()
		if item == nil {
			break
		}
		if latest != nil {
			latest.Release()
		}
		latest = item
	}
	return latest
}
