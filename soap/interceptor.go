// soap/interceptor.go
package soap

import "context"

// Interceptor observes and modifies every call of a channel.
type Interceptor interface {
	// BeforeSend runs before request is written to the wire and may change its headers. The returned
	// state is handed back to AfterReceive for the same call. A non-nil error aborts the call.
	BeforeSend(ctx context.Context, request *Message) (correlationState any, err error)
	// AfterReceive runs once the reply has been read, faults included.
	AfterReceive(ctx context.Context, reply *Message, correlationState any)
}
