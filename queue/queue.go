package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

/*
Queue holds the tasks of a tree being grown. Workers pull a task, develop
its node, push the tasks of its children and then complete it, or drop
it to give it back to the queue if they could not finish it.

A task is pending from its push until it is pulled, and running from then
until it is completed or dropped. Every method takes a context that may
cancel the operation.
*/
type Queue interface {
	Push(context.Context, *Task) error
	// Pull returns a pending task and the context to develop it under.
	// It returns three nil values when no task is pending.
	Pull(context.Context) (*Task, context.Context, error)
	// Drop makes the running task with the given ID pending again. It
	// does nothing for completed tasks.
	Drop(context.Context, string) error
	Complete(context.Context, string) error
	// Count returns the number of pending and running tasks.
	Count(context.Context) (int, int, error)
	// Stop frees the resources of the queue and cancels the contexts
	// of pulled tasks.
	Stop(context.Context) error
}

type memQueue struct {
	pending []*Task
	running map[string]*Task
	lock    sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// New returns a FIFO queue kept in the process memory. The contexts of
// pulled tasks are cancelled when the queue is stopped.
func New() Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &memQueue{
		running: make(map[string]*Task),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WaitFor takes a context, a queue and a polling period and waits for
// all its tasks to have been processed, that is, for
// for the given queue's Count method to return 0, 0, nil.
// It will return a non-nil error if the given context
// times out or is cancelled, or if the queue's Count
// operation returns an error.
// Use this function to wait for the processing of a
// tree once you have started to grow it and have workers
// processing its tasks.
func WaitFor(ctx context.Context, q Queue, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		pending, running, err := q.Count(ctx)
		if err != nil {
			return err
		}
		if pending+running == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (mq *memQueue) Push(ctx context.Context, t *Task) error {
	return mq.withLock(ctx, func() {
		mq.pending = append(mq.pending, t)
	})
}

func (mq *memQueue) Pull(ctx context.Context) (*Task, context.Context, error) {
	var t *Task
	err := mq.withLock(ctx, func() {
		if len(mq.pending) == 0 {
			return
		}
		t = mq.pending[0]
		mq.pending[0] = nil
		mq.pending = mq.pending[1:]
		mq.running[t.ID()] = t
	})
	if err != nil || t == nil {
		return nil, nil, err
	}
	return t, mq.ctx, nil
}

// Drop returns a running task to the back of the queue. Completed tasks
// are ignored.
func (mq *memQueue) Drop(ctx context.Context, id string) error {
	return mq.withLock(ctx, func() {
		if t, ok := mq.running[id]; ok {
			delete(mq.running, id)
			mq.pending = append(mq.pending, t)
		}
	})
}

func (mq *memQueue) Complete(ctx context.Context, id string) error {
	return mq.withLock(ctx, func() {
		delete(mq.running, id)
	})
}

func (mq *memQueue) Count(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	mq.lock.RLock()
	defer mq.lock.RUnlock()
	return len(mq.pending), len(mq.running), nil
}

func (mq *memQueue) Stop(ctx context.Context) error {
	mq.cancel()
	return nil
}

func (mq *memQueue) String() string {
	mq.lock.RLock()
	defer mq.lock.RUnlock()
	return fmt.Sprintf("{Queue pending:%d running:%d}", len(mq.pending), len(mq.running))
}

func (mq *memQueue) withLock(ctx context.Context, f func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mq.lock.Lock()
	defer mq.lock.Unlock()
	f()
	return nil
}
