// Package delayqueue implements the per-node delay buffer of spec §4.2: a
// min-heap of (deadline, insertion sequence, envelope) releasing wrapped
// envelopes at or after their scheduled deadline, with ties among equal
// deadlines broken by insertion order (FIFO).
//
// Grounded on original_source/simulation/utils.py's MessageDelayingBox,
// which is itself a Python heapq of TimedEntry objects. container/heap is
// the stdlib counterpart of heapq; no pack example ships a reusable generic
// priority queue (github.com/eapache/queue, used elsewhere in this module,
// is a plain FIFO, not ordered by deadline), so this one component uses the
// standard library directly.
package delayqueue

import (
	"container/heap"

	"github.com/rollercoaster-sim/loopix/internal/message"
)

type entry struct {
	deadline int64
	seq      uint64
	env      *message.Envelope
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(entry))
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Buffer is a per-node delay buffer. Only Wrapped/MultiWrapped envelopes
// are ever inserted; plain or application envelopes never reach one (spec
// §4.2).
type Buffer struct {
	h       entryHeap
	nextSeq uint64
}

// New creates an empty delay buffer.
func New() *Buffer {
	return &Buffer{}
}

// Add inserts env, releasing it at now + env.DelayMS.
func (b *Buffer) Add(now int64, env *message.Envelope) {
	heap.Push(&b.h, entry{deadline: now + env.DelayMS, seq: b.nextSeq, env: env})
	b.nextSeq++
}

// PopCurrentRound returns, in deadline order (ties broken by insertion
// order), every envelope whose deadline is <= now, removing them from the
// buffer.
func (b *Buffer) PopCurrentRound(now int64) []*message.Envelope {
	var out []*message.Envelope
	for b.h.Len() > 0 && b.h[0].deadline <= now {
		e := heap.Pop(&b.h).(entry)
		out = append(out, e.env)
	}
	return out
}

// Len reports how many envelopes are still pending release.
func (b *Buffer) Len() int {
	return b.h.Len()
}
