// Package router demultiplexes inbound envelopes by event name and turns
// handler results into correlated response envelopes.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"chat-relay/contract"
	"chat-relay/runtime"
	"chat-relay/services"
)

// Connection is the caller's side of a dispatch: an identity plus a way to
// push a frame back. Send to a closed connection is a silent no-op.
type Connection interface {
	ID() string
	Send(v any) error
}

type HandlerFunc func(ctx context.Context, conn Connection, env Envelope)

// Router holds the closed dispatch table, built once at startup. Unknown
// event names are dropped without a response envelope; that behavior is
// deliberate and debug-logged only.
type Router struct {
	log       *slog.Logger
	auth      contract.IAuthorizer
	validate  *validator.Validate
	chat      services.IChatService
	lifecycle *runtime.Lifecycle
	handlers  map[string]HandlerFunc
}

func New(log *slog.Logger, auth contract.IAuthorizer, chat services.IChatService, lifecycle *runtime.Lifecycle) *Router {
	r := &Router{
		log:       log,
		auth:      auth,
		validate:  validator.New(),
		chat:      chat,
		lifecycle: lifecycle,
	}
	r.handlers = map[string]HandlerFunc{
		"threads":         r.handleThreads,
		"new_users":       r.handleNewUsers,
		"new_thread":      r.handleNewThread,
		"send_message":    r.handleSendMessage,
		"thread_messages": r.handleThreadMessages,
		"join":            r.handleJoin,
		"leave":           r.handleLeave,
	}
	return r
}

// Dispatch processes one raw inbound frame. The transport calls it
// synchronously from the connection's read loop, so envelopes of a single
// connection are handled in receipt order. No failure escapes: a panicking
// handler is recovered into a 500 envelope and the loop moves on.
func (r *Router) Dispatch(ctx context.Context, conn Connection, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Warn("Dropping malformed envelope", "conn", conn.ID(), "error", err)
		return
	}
	if err := r.validate.Struct(env); err != nil {
		r.log.Warn("Dropping incomplete envelope", "conn", conn.ID(), "error", err)
		return
	}

	if err := r.auth.Authorize(env.Authorization); err != nil {
		r.respond(conn, fail(env, http.StatusUnauthorized, "Unauthorized"))
		return
	}

	handler, ok := r.handlers[env.Event]
	if !ok {
		r.log.Debug("Ignoring unknown event", "conn", conn.ID(), "event", env.Event)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Handler panicked", "event", env.Event, "conn", conn.ID(), "panic", rec)
			r.respond(conn, fail(env, http.StatusInternalServerError, "Internal Server Error"))
		}
	}()
	handler(ctx, conn, env)
}

func (r *Router) respond(conn Connection, resp Response) {
	if err := conn.Send(resp); err != nil {
		r.log.Debug("Response dropped, connection gone", "conn", conn.ID(), "requestId", resp.RequestID)
	}
}

// internalError logs the underlying failure and answers with a generic 500
// envelope. The cause never reaches the caller.
func (r *Router) internalError(conn Connection, env Envelope, err error) {
	r.log.Error("Handler failed", "event", env.Event, "conn", conn.ID(), "error", err)
	r.respond(conn, fail(env, http.StatusInternalServerError, "Internal Server Error"))
}
