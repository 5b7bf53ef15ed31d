package pqueue

import (
	"sort"
)

func WithOrderAsc() Option {
	return func(q *Queue) {
		q.order = orderAsc
	}
}

func WithOrderDesc() Option {
	return func(q *Queue) {
		q.order = orderDesc
	}
}

func WithCap(size uint) Option {
	return func(q *Queue) {
		q.cap = int(size)
	}
}

type Option func(*Queue)

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type item struct {
	value interface{}
	prior float64
	seq   int
}

func New(opts ...Option) *Queue {
	p := &Queue{order: orderAsc, cap: -1}
	for _, opt := range opts {
		opt(p)
	}
	if p.cap >= 0 {
		p.items = make([]item, 0, p.cap+1)
	}
	return p
}

// Queue keeps values ordered by priority, then by sequence number. Push numbers values in
// push order, so equal priorities keep their push order and a capped queue drops the tail:
// among equals the earliest pushed survive.
type Queue struct {
	order order
	cap   int
	next  int
	items []item
}

func (q *Queue) PopAll() []interface{} {
	pulled := make([]interface{}, len(q.items))
	for i := range q.items {
		pulled[i] = q.items[i].value
	}
	q.items = q.items[:0]
	return pulled
}

func (q *Queue) Head() interface{} {
	if len(q.items) == 0 {
		return nil
	}
	x := q.items[0]
	q.items = q.items[1:]
	return x.value
}

func (q *Queue) Tail() interface{} {
	l := len(q.items) - 1
	if l < 0 {
		return nil
	}
	x := q.items[l]
	q.items = q.items[:l]
	return x.value
}

// Push inserts val after every item of equal priority. It reports whether val was kept.
func (q *Queue) Push(val interface{}, priority float64) bool {
	q.next++
	return q.PushSeq(val, priority, q.next)
}

// PushSeq inserts val breaking priority ties by ascending seq, whatever the queue order.
// Values pushed with Push carry increasing sequence numbers starting at 1.
func (q *Queue) PushSeq(val interface{}, priority float64, seq int) bool {
	if q.cap == 0 {
		return false
	}
	it := item{value: val, prior: priority, seq: seq}
	if q.Full() && !q.before(it, q.items[len(q.items)-1]) {
		return false
	}
	idx := sort.Search(len(q.items), func(i int) bool {
		return q.before(it, q.items[i])
	})
	q.items = append(q.items, item{})
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = it
	if q.cap > 0 && len(q.items) > q.cap {
		q.items = q.items[:q.cap]
	}
	return true
}

func (q *Queue) Full() bool {
	return q.cap >= 0 && len(q.items) >= q.cap
}

func (q *Queue) Cap() int { return q.cap }

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Seek(idx int) (interface{}, float64) {
	item := q.items[idx]
	return item.value, item.prior
}

// before reports whether a sorts strictly ahead of b.
func (q *Queue) before(a, b item) bool {
	if a.prior == b.prior {
		return a.seq < b.seq
	}
	if q.order == orderAsc {
		return a.prior < b.prior
	}
	return a.prior > b.prior
}
