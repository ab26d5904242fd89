package sink

import "sync/atomic"

type node struct {
	next   atomic.Pointer[node]
	symbol []byte
}

// queue is an unbounded lock-free MPSC queue. Any goroutine may push;
// pop must only be called by the goroutine holding the drain lock.
type queue struct {
	head atomic.Pointer[node] // last pushed
	tail atomic.Pointer[node] // consumed stub, its next is the front
}

func newQueue() *queue {
	q := &queue{}
	stub := &node{}
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

func (q *queue) push(symbol []byte) {
	n := &node{symbol: symbol}
	prev := q.head.Swap(n)
	prev.next.Store(n)
}

// pop may report empty while a push is half done; that pusher drains it
func (q *queue) pop() ([]byte, bool) {
	tail := q.tail.Load()
	next := tail.next.Load()
	if next == nil {
		return nil, false
	}
	q.tail.Store(next)
	symbol := next.symbol
	next.symbol = nil
	return symbol, true
}

func (q *queue) empty() bool {
	return q.tail.Load().next.Load() == nil
}
