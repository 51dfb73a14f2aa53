package asgi

import (
	"context"
	"errors"
)

// RunStartup drives the lifespan.startup handshake against host: it
// pushes lifespan.startup and waits for either lifespan.startup.complete
// or lifespan.startup.failed, per spec §6's lifespan message list.
func RunStartup(ctx context.Context, host LifespanHost) error {
	return runLifespanPhase(ctx, host, TypeLifespanStartup, TypeLifespanStartupComplete, TypeLifespanStartupFailed)
}

// RunShutdown drives the matching lifespan.shutdown handshake.
func RunShutdown(ctx context.Context, host LifespanHost) error {
	return runLifespanPhase(ctx, host, TypeLifespanShutdown, TypeLifespanShutdownComplete, TypeLifespanShutdownFailed)
}

func runLifespanPhase(ctx context.Context, host LifespanHost, send, complete, failed MessageType) error {
	events := NewQueue(1)
	results := NewQueue(1)
	defer events.Close()
	defer results.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		host.Lifespan(ctx, events, results)
	}()

	if err := events.Push(ctx, Message{Type: send}); err != nil {
		return err
	}

	msg, err := results.Pop(ctx)
	if err != nil {
		return err
	}

	switch msg.Type {
	case complete:
		return nil
	case failed:
		if msg.FailureMessage != "" {
			return errors.New(msg.FailureMessage)
		}
		return errors.New(send.String() + " failed")
	default:
		return errors.New("unexpected lifespan result message")
	}
}
