package server

import (
	"context"
	"errors"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
)

// ErrUnsupportedRequest is returned when the server tries to call an in-process client
var ErrUnsupportedRequest = errors.New("server: requests to in-process clients are not supported")

// Adapter adapts a server Handler to transport.Transport, so a client can run in the same process
type Adapter struct {
	handler *Handler
}

// Send serves request synchronously
func (a *Adapter) Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	if request.Jsonrpc == "" {
		request.Jsonrpc = jsonrpc.Version
	}
	response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Id: request.Id}
	a.handler.Serve(ctx, request, response)
	return response, nil
}

// Notify delivers a client notification such as handlePurchaseResponse
func (a *Adapter) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	a.handler.OnNotification(ctx, notification)
	return nil
}

// loopback queues server events for an in-process client; delivery runs on its own goroutine
// so that client callbacks may call back into the server.
type loopback struct {
	events transport.Handler
	queue  chan *jsonrpc.Notification
	done   <-chan struct{}
}

func (l *loopback) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	select {
	case l.queue <- notification:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *loopback) Send(context.Context, *jsonrpc.Request) (*jsonrpc.Response, error) {
	return nil, ErrUnsupportedRequest
}

func (l *loopback) deliver(ctx context.Context) {
	for {
		select {
		case notification := <-l.queue:
			l.events.OnNotification(ctx, notification)
		case <-l.done:
			return
		}
	}
}

// AsClient connects events to the server without a wire transport and returns the transport to call it with.
// The connection becomes the event target until ctx is done.
func (s *Server) AsClient(ctx context.Context, events transport.Handler) *Adapter {
	link := &loopback{events: events, queue: make(chan *jsonrpc.Notification, 256), done: ctx.Done()}
	go link.deliver(context.WithoutCancel(ctx))
	handler := s.newHandler(ctx, link)
	go func() {
		<-ctx.Done()
		s.hub.Detach(link)
	}()
	return &Adapter{handler: handler}
}
