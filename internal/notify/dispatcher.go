// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config holds dispatcher configuration.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per-message send timeout
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{Workers: 2, QueueSize: 100, Timeout: 30 * time.Second}
}

// Dispatcher queues messages and sends them from worker goroutines.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	queue   chan Message
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	onSent  func(kind string, err error)
}

// NewDispatcher creates a dispatcher delivering through sender.
func NewDispatcher(sender Sender, logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		queue:   make(chan Message, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		done:    make(chan struct{}),
	}
}

// OnSent registers a callback invoked after every send attempt.
// Must be called before Start.
func (d *Dispatcher) OnSent(fn func(kind string, err error)) {
	d.onSent = fn
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting notification dispatcher", "workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops accepting messages, drains the queue and waits for workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping notification dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("notification dispatcher stopped")
}

// Enqueue queues msg for delivery without blocking. Messages are dropped
// with a warning when the dispatcher is stopped or the queue is full.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		d.logger.Warn("dispatcher not running, dropping notification", "kind", msg.Kind)
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("notification queue full, dropping notification", "kind", msg.Kind)
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("notification worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			d.send(ctx, msg)
		case <-d.done:
			// drain what is already queued
			for {
				select {
				case msg := <-d.queue:
					d.send(ctx, msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := d.sender.Send(sendCtx, msg)
	if err != nil {
		d.logger.Error("failed to send notification", "kind", msg.Kind, "error", err)
	} else {
		d.logger.Info("notification sent", "kind", msg.Kind, "recipients", len(msg.To))
	}
	if d.onSent != nil {
		d.onSent(msg.Kind, err)
	}
}
