package mailer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/sethvargo/go-retry"
)

const sendTimeout = 10 * time.Second

type DispatcherConfig struct {
	Workers    int
	BufferSize int
	MaxRetries uint64
}

// Dispatcher queues messages and sends them from a fixed set of workers,
// retrying each one with exponential backoff.
type Dispatcher struct {
	sender  Sender
	logger  logging.Logger
	ch      chan Message
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64

	// mu orders enqueues before Close: once closed is set under the write
	// lock, no message can enter ch behind the workers' final drain.
	mu     sync.RWMutex
	closed bool

	maxRetries uint64
	backoff    func() retry.Backoff

	// OnDrop, when set, is called for every message rejected by a full queue.
	OnDrop func()
}

func NewDispatcher(cfg DispatcherConfig, sender Sender, logger logging.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	d := &Dispatcher{
		sender:     sender,
		logger:     logger.With("module", "mailer"),
		ch:         make(chan Message, cfg.BufferSize),
		done:       make(chan struct{}),
		maxRetries: cfg.MaxRetries,
		backoff: func() retry.Backoff {
			return retry.NewExponential(100 * time.Millisecond)
		},
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}
	return d
}

// Dispatch enqueues msg without blocking. It returns false when the message
// was dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.ch <- msg:
		return true
	default:
		d.dropped.Add(1)
		if d.OnDrop != nil {
			d.OnDrop()
		}
		d.logger.Warn(ctx, "mail queue full, message dropped", "to", msg.To, "subject", msg.Subject)
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	b := retry.WithMaxRetries(d.maxRetries, d.backoff())
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := d.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error(ctx, "email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
	}
}

// Close stops accepting messages and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
