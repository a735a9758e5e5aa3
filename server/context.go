package server

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/jsonrpc"
)

type requestKey struct{}

type activeContext struct {
	context.Context
	context.CancelFunc
	method  string
	started time.Time
}

func newActiveContext(ctx context.Context, cancel context.CancelFunc, request *jsonrpc.Request) (*activeContext, context.Context) {
	ctx = context.WithValue(ctx, requestKey{}, operationKey(request.Id))
	return &activeContext{
		Context:    ctx,
		CancelFunc: cancel,
		method:     request.Method,
		started:    time.Now(),
	}, ctx
}

// RequestID returns the JSON-RPC request id carried by a handler context
func RequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestKey{}).(string); ok {
		return value
	}
	return ""
}

// operationKey normalizes request ids so that 7 and 7.0 address the same operation
func operationKey(id interface{}) string {
	switch actual := id.(type) {
	case nil:
		return ""
	case string:
		return actual
	case float64:
		if actual == float64(int64(actual)) {
			return fmt.Sprintf("%d", int64(actual))
		}
	}
	return fmt.Sprintf("%v", id)
}
