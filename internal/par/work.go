// Copyright 2024 The pyport Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package par provides a bounded parallel work set.
package par

import "sync"

// Work is a set of items processed in parallel, each at most once.
// The zero value is ready to use.
type Work[T comparable] struct {
	mu      sync.Mutex
	seen    map[T]struct{}
	queue   []T
	pending int // dequeued items whose f has not returned
	started bool
	wake    chan struct{}
}

// Add queues item unless it was added before. It may be called from f.
func (w *Work[T]) Add(item T) {
	w.mu.Lock()
	if w.seen == nil {
		w.seen = make(map[T]struct{})
	}
	if _, ok := w.seen[item]; !ok {
		w.seen[item] = struct{}{}
		w.queue = append(w.queue, item)
	}
	w.mu.Unlock()
	w.signal()
}

// Do calls f for every item in the set with at most n calls running at
// once, starting items in the order they were added. It returns when the
// queue is empty and every call has returned. Do may be called only once.
func (w *Work[T]) Do(n int, f func(item T)) {
	if n < 1 {
		panic("par.Work.Do: n < 1")
	}
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		panic("par.Work.Do: already called Do")
	}
	w.started = true
	if w.wake == nil {
		w.wake = make(chan struct{}, 1)
	}
	w.mu.Unlock()

	slots := make(chan struct{}, n)
	for {
		item, ok, done := w.next()
		if done {
			return
		}
		if !ok {
			<-w.wake
			continue
		}
		slots <- struct{}{}
		go func() {
			defer func() {
				<-slots
				w.mu.Lock()
				w.pending--
				w.mu.Unlock()
				w.signal()
			}()
			f(item)
		}()
	}
}

// next dequeues the oldest item. done reports that nothing is queued and
// nothing is running.
func (w *Work[T]) next() (item T, ok, done bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return item, false, w.pending == 0
	}
	item = w.queue[0]
	w.queue = w.queue[1:]
	w.pending++
	return item, true, false
}

func (w *Work[T]) signal() {
	w.mu.Lock()
	wake := w.wake
	w.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}
