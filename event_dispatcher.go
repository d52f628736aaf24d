package authclient

import (
	"context"
	"sync"
	"sync/atomic"
)

// eventDispatcher decouples session event emission from delivery: operations
// enqueue, a single goroutine drains into the configured sink. Never blocks
// the session path when DropIfFull is set.
type eventDispatcher struct {
	cfg       EventConfig
	sink      EventSink
	ch        chan SessionEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventDispatcher(cfg EventConfig, sink EventSink) *eventDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &eventDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan SessionEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *eventDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.ch:
			d.sink.Emit(context.Background(), ev)
		case <-d.done:
			// Drain whatever was enqueued before close.
			for {
				select {
				case ev := <-d.ch:
					d.sink.Emit(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

func (d *eventDispatcher) Emit(ctx context.Context, ev SessionEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- ev:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
