package asgi

import "context"

// Host is the narrow Application Host Interface (spec §4.6): the bridge
// never knows how an application is invoked, only that Dispatch consumes
// inbound and produces outbound messages according to the ASGI protocol,
// respects ctx cancellation (stream reset or connection shutdown), and
// returns once the application has finished with this request.
//
// Dispatch runs on its own goroutine, spawned by the bridge; a Host
// implementation does not need to do its own goroutine management unless
// it wants further internal concurrency.
type Host interface {
	Dispatch(ctx context.Context, scope Scope, inbound, outbound *Queue)
}

// LifespanHost is an optional extension a Host may also implement to
// receive the process-wide lifespan.startup/lifespan.shutdown events
// described in spec §4.6, delivered once per process outside the
// per-stream flow.
type LifespanHost interface {
	Host
	Lifespan(ctx context.Context, events *Queue, results *Queue)
}
