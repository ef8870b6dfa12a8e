package router

import (
	"context"
	"net/http"

	"chat-relay/domain"
	"chat-relay/errors"
)

func (r *Router) handleThreads(ctx context.Context, conn Connection, env Envelope) {
	threads, err := r.chat.ThreadsForUser(ctx, env.Payload.Query.UserID)
	if err != nil {
		r.internalError(conn, env, err)
		return
	}
	r.respond(conn, ok(env, http.StatusOK, map[string]any{
		"data":  threads,
		"count": len(threads),
	}))
}

func (r *Router) handleNewUsers(ctx context.Context, conn Connection, env Envelope) {
	users, err := r.chat.NewUsers(ctx, env.Payload.Query.UserID)
	if err != nil {
		r.internalError(conn, env, err)
		return
	}
	r.respond(conn, ok(env, http.StatusOK, map[string]any{
		"data":  users,
		"count": len(users),
	}))
}

func (r *Router) handleNewThread(ctx context.Context, conn Connection, env Envelope) {
	thread, err := r.chat.CreateThread(ctx, env.Payload.Query.UserID, env.Payload.Params.Participants)
	if err != nil {
		r.internalError(conn, env, err)
		return
	}
	r.respond(conn, ok(env, http.StatusCreated, map[string]any{
		"thread": thread,
	}))
}

func (r *Router) handleSendMessage(ctx context.Context, conn Connection, env Envelope) {
	params := env.Payload.Params
	message, err := r.chat.SendMessage(ctx, domain.PostMessageCommand{
		ThreadID:    params.ThreadID,
		SenderID:    params.SenderID,
		Content:     params.Content,
		MessageType: params.MessageType,
	}, conn.ID())
	if err != nil {
		r.internalError(conn, env, err)
		return
	}
	r.respond(conn, ok(env, http.StatusCreated, map[string]any{
		"message": message,
	}))
}

// handleThreadMessages joins the caller's connection to the thread's room
// without a presence announcement, then returns the room history in the
// correlated response.
func (r *Router) handleThreadMessages(ctx context.Context, conn Connection, env Envelope) {
	threadID := env.Payload.Query.ThreadID
	if threadID == "" {
		threadID = env.Payload.Params.ThreadID
	}
	if threadID == "" {
		r.internalError(conn, env, errors.ErrMissingThreadID)
		return
	}
	room := domain.RoomID(threadID)

	r.lifecycle.JoinSilently(conn.ID(), room)
	messages, err := r.chat.RoomHistory(ctx, room)
	if err != nil {
		r.internalError(conn, env, err)
		return
	}
	r.respond(conn, ok(env, http.StatusOK, map[string]any{
		"threadId": threadID,
		"messages": messages,
	}))
}

func (r *Router) handleJoin(ctx context.Context, conn Connection, env Envelope) {
	params := env.Payload.Params
	r.lifecycle.Join(ctx, conn.ID(), domain.RoomID(params.RoomID), params.Username)
	r.respond(conn, ok(env, http.StatusOK, map[string]any{
		"roomId":   params.RoomID,
		"username": params.Username,
	}))
}

func (r *Router) handleLeave(ctx context.Context, conn Connection, env Envelope) {
	params := env.Payload.Params
	r.lifecycle.Leave(ctx, conn.ID(), domain.RoomID(params.RoomID), params.Username)
	r.respond(conn, ok(env, http.StatusOK, map[string]any{
		"roomId":   params.RoomID,
		"username": params.Username,
	}))
}
