package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CompletionChannel is the NOTIFY channel the badge_progress trigger
// publishes on whenever a row transitions to COMPLETED.
const CompletionChannel = "badge_completions"

// ChangeListener wraps a dedicated pq.Listener connection subscribed to
// the completion channel. pq handles transparent reconnection; connection
// state transitions surface through the event callback so the consumer
// can re-scan for rows it may have missed while disconnected.
type ChangeListener struct {
	listener *pq.Listener
	logger   *zap.Logger

	reconnects chan struct{}
}

// NewChangeListener opens a dedicated listening connection. The main pool
// cannot be used: LISTEN binds to a single physical connection.
func NewChangeListener(url string, logger *zap.Logger) (*ChangeListener, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	cl := &ChangeListener{
		logger:     logger,
		reconnects: make(chan struct{}, 1),
	}

	cl.listener = pq.NewListener(url, 2*time.Second, 30*time.Second, cl.handleEvent)

	if err := cl.listener.Listen(CompletionChannel); err != nil {
		cl.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", CompletionChannel, err)
	}

	logger.Info("Change listener subscribed", zap.String("channel", CompletionChannel))
	return cl, nil
}

// handleEvent receives connection lifecycle events from pq
func (cl *ChangeListener) handleEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected:
		cl.logger.Info("Change listener connected")
	case pq.ListenerEventReconnected:
		cl.logger.Info("Change listener reconnected")
		// Non-blocking: one pending signal is enough to trigger a re-scan.
		select {
		case cl.reconnects <- struct{}{}:
		default:
		}
	case pq.ListenerEventDisconnected:
		cl.logger.Warn("Change listener disconnected", zap.Error(err))
	case pq.ListenerEventConnectionAttemptFailed:
		cl.logger.Warn("Change listener reconnect attempt failed", zap.Error(err))
	}
}

// Notifications returns the stream of raw notifications. pq sends a nil
// notification after a reconnect to mark a potential gap in the stream.
func (cl *ChangeListener) Notifications() <-chan *pq.Notification {
	return cl.listener.Notify
}

// Reconnects signals that the connection was re-established after a drop
func (cl *ChangeListener) Reconnects() <-chan struct{} {
	return cl.reconnects
}

// Ping verifies the listening connection is alive
func (cl *ChangeListener) Ping(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- cl.listener.Ping()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the listening connection
func (cl *ChangeListener) Close() error {
	cl.logger.Info("Closing change listener")
	return cl.listener.Close()
}
