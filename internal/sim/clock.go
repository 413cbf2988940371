package sim

import (
	"container/heap"

	"github.com/san-kum/blocksim/internal/block"
)

// timeEps is the slack used to decide that two instants coincide.
const timeEps = 1e-9

type tickEvent struct {
	clock int
	k     int
	t     float64
}

// tickHeap orders pending ticks by time, then by clock index.
type tickHeap []tickEvent

func (h tickHeap) Len() int { return len(h) }
func (h tickHeap) Less(i, j int) bool {
	if h[i].t != h[j].t {
		return h[i].t < h[j].t
	}
	return h[i].clock < h[j].clock
}
func (h tickHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)   { *h = append(*h, x.(tickEvent)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

// tickQueue schedules clock ticks over [0, end]. Tick times are computed
// from the tick index, never accumulated, so they do not drift.
type tickQueue struct {
	clocks []*block.Clock
	end    float64
	h      tickHeap
}

func newTickQueue(clocks []*block.Clock, end float64) *tickQueue {
	q := &tickQueue{clocks: clocks, end: end}
	for i := range clocks {
		q.schedule(i, 0)
	}
	return q
}

func (q *tickQueue) schedule(clock, k int) {
	t := q.clocks[clock].Tick(k)
	if t > q.end+timeEps {
		return
	}
	heap.Push(&q.h, tickEvent{clock: clock, k: k, t: t})
}

// next returns the time of the earliest pending tick.
func (q *tickQueue) next() (float64, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].t, true
}

// due pops every tick at or before t and schedules its successor. The result
// lists clock indices in ascending order.
func (q *tickQueue) due(t float64) []int {
	var clocks []int
	for len(q.h) > 0 && q.h[0].t <= t+timeEps {
		ev := heap.Pop(&q.h).(tickEvent)
		clocks = append(clocks, ev.clock)
		q.schedule(ev.clock, ev.k+1)
	}
	return clocks
}
