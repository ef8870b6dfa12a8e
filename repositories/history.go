// Package repositories adapts the external collaborators: the relational
// directory store and the key-value history store.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"chat-relay/domain"
)

const historyKeyPrefix = "history:"

// HistoryRepository keeps one bounded, expiring list per room. Entries are
// pushed to the head, so the native order is newest-first; readers get the
// reversal back to chronological. Every operation degrades when the store
// is unreachable: writes become no-ops and reads come back empty, with a
// logged warning, so a room stays usable through a store outage.
type HistoryRepository struct {
	client *redis.Client
	log    *slog.Logger
	limit  int
	ttl    time.Duration
}

func NewHistoryRepository(client *redis.Client, log *slog.Logger, limit int, ttl time.Duration) *HistoryRepository {
	return &HistoryRepository{client: client, log: log, limit: limit, ttl: ttl}
}

func historyKey(room domain.RoomID) string {
	return historyKeyPrefix + room.String()
}

// Append pushes the entry to the head of the room's log, trims the log to
// the retention bound (oldest entries dropped), and resets the sliding
// expiry so each new message extends the room's retention window. The three
// calls are sequential, not transactional; a crash in between leaves the
// log briefly over-length and the next write self-corrects it.
func (h *HistoryRepository) Append(ctx context.Context, room domain.RoomID, entry domain.HistoryEntry) error {
	entry.IsOwn = false
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}

	key := historyKey(room)
	if err := h.client.LPush(ctx, key, data).Err(); err != nil {
		h.log.Warn("History store unreachable, message not persisted", "room", room, "error", err)
		return nil
	}
	if err := h.client.LTrim(ctx, key, 0, int64(h.limit-1)).Err(); err != nil {
		h.log.Warn("History trim failed", "room", room, "error", err)
	}
	if err := h.client.Expire(ctx, key, h.ttl).Err(); err != nil {
		h.log.Warn("History expiry reset failed", "room", room, "error", err)
	}
	return nil
}

// ReadRange returns up to limit most recent entries in chronological
// (oldest-first) order, even though the underlying list stores them
// newest-first.
func (h *HistoryRepository) ReadRange(ctx context.Context, room domain.RoomID, limit int) ([]domain.HistoryEntry, error) {
	raw, err := h.client.LRange(ctx, historyKey(room), 0, int64(limit-1)).Result()
	if err != nil {
		h.log.Warn("History store unreachable, joining without history", "room", room, "error", err)
		return nil, nil
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			h.log.Warn("Skipping unreadable history entry", "room", room, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return lo.Reverse(entries), nil
}

// Clear drops the room's log entirely.
func (h *HistoryRepository) Clear(ctx context.Context, room domain.RoomID) error {
	if err := h.client.Del(ctx, historyKey(room)).Err(); err != nil {
		h.log.Warn("History clear failed", "room", room, "error", err)
	}
	return nil
}
