// Package runtime coordinates connections, rooms and event propagation.
// It orchestrates the relay without containing directory or storage logic.
package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

type Set map[string]struct{}

// session binds a connection to its user identity and joined rooms.
// A session never outlives its connection.
type session struct {
	sink     contract.EventSink
	username string
	rooms    map[domain.RoomID]struct{}
}

// Registry owns the process-local session map and the room membership
// index. All mutations happen under one lock so no caller can observe a
// torn state between the two maps. Membership is tracked twice on purpose:
// connections per room drive delivery, usernames per room answer presence
// queries. A username stays in a room's set as long as at least one of that
// user's live connections has the room active.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*session       // connID -> session
	roomConns map[domain.RoomID]Set     // room -> connIDs
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]*session),
		roomConns: make(map[domain.RoomID]Set),
	}
}

// Bind creates an empty session for a freshly accepted connection.
func (r *Registry) Bind(connID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = &session{
		sink:  sink,
		rooms: make(map[domain.RoomID]struct{}),
	}
}

// Join adds the connection to a room and records its username. It reports
// whether the user became newly present in the room, so the caller knows if
// the join deserves an announcement. Joining an unknown connection is a
// no-op: the transport already closed it.
func (r *Registry) Join(connID string, room domain.RoomID, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; !ok {
		return false
	}
	return r.joinLocked(connID, room, username)
}

func (r *Registry) joinLocked(connID string, room domain.RoomID, username string) bool {
	sess := r.sessions[connID]
	if username != "" {
		sess.username = username
	}
	if _, already := sess.rooms[room]; already {
		return false
	}
	first := !r.userInRoomLocked(room, sess.username, connID)
	sess.rooms[room] = struct{}{}

	if _, ok := r.roomConns[room]; !ok {
		r.roomConns[room] = make(Set)
	}
	r.roomConns[room][connID] = struct{}{}
	return first
}

// Leave detaches the connection from a room. It reports the session's
// username and the departure's observable effects, so the caller can pair
// the membership change with its presence broadcast and release the room's
// subscription.
func (r *Registry) Leave(connID string, room domain.RoomID) (string, domain.Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(connID, room)
}

func (r *Registry) leaveLocked(connID string, room domain.RoomID) (string, domain.Departure) {
	dep := domain.Departure{Room: room}
	sess, ok := r.sessions[connID]
	if !ok {
		return "", dep
	}
	delete(sess.rooms, room)

	members, ok := r.roomConns[room]
	if !ok {
		return sess.username, dep
	}
	delete(members, connID)
	dep.LastOfUser = !r.userInRoomLocked(room, sess.username, connID)

	// No empty sets are left behind, so the map cannot leak over time.
	if len(members) == 0 {
		delete(r.roomConns, room)
		dep.RoomEmpty = true
	}
	return sess.username, dep
}

// SwitchRoom evicts the connection from every room but the one to keep (its
// identity channel) and joins the new room, all inside one critical
// section: no observer can catch the connection in neither the old nor the
// new room mid-switch. It returns the departures from the evicted rooms and
// whether the user became newly present in the new room.
func (r *Registry) SwitchRoom(connID string, keep, room domain.RoomID, username string) ([]domain.Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	var departures []domain.Departure
	for old := range sess.rooms {
		if old == keep || old == room {
			continue
		}
		_, dep := r.leaveLocked(connID, old)
		departures = append(departures, dep)
	}
	return departures, r.joinLocked(connID, room, username)
}

// Unbind destroys the session and detaches the connection from every room
// it was part of. The returned departures list those rooms so the lifecycle
// can emit the paired presence broadcasts. Unbinding twice is a no-op.
func (r *Registry) Unbind(connID string) (string, []domain.Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return "", nil
	}
	var departures []domain.Departure
	for room := range sess.rooms {
		_, dep := r.leaveLocked(connID, room)
		departures = append(departures, dep)
	}
	delete(r.sessions, connID)
	return sess.username, departures
}

// userInRoomLocked reports whether any connection of the user other than
// exclude is currently in the room.
func (r *Registry) userInRoomLocked(room domain.RoomID, username, exclude string) bool {
	if username == "" {
		return false
	}
	for connID := range r.roomConns[room] {
		if connID == exclude {
			continue
		}
		if sess, ok := r.sessions[connID]; ok && sess.username == username {
			return true
		}
	}
	return false
}

// SinksForRoom resolves the room's local connections into sinks, skipping
// the excluded connection. Only connections this process physically holds
// are returned; peers learn about the room through the pub/sub backbone.
func (r *Registry) SinksForRoom(room domain.RoomID, exclude string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomConns[room]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if connID == exclude {
			continue
		}
		if sess, exists := r.sessions[connID]; exists {
			sinks = append(sinks, sess.sink)
		}
	}
	return sinks
}

// MembersOf lists the distinct usernames with at least one live connection
// in the room. The answer covers local state only.
func (r *Registry) MembersOf(room domain.RoomID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomConns[room]
	if !ok {
		return nil
	}
	seen := make(Set, len(members))
	var usernames []string
	for connID := range members {
		sess, exists := r.sessions[connID]
		if !exists || sess.username == "" {
			continue
		}
		if _, dup := seen[sess.username]; dup {
			continue
		}
		seen[sess.username] = struct{}{}
		usernames = append(usernames, sess.username)
	}
	return usernames
}

// SinkOf resolves a connection id to its live sink.
func (r *Registry) SinkOf(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil, false
	}
	return sess.sink, true
}

// UsernameOf reports the username bound to a connection, if any.
func (r *Registry) UsernameOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok || sess.username == "" {
		return "", false
	}
	return sess.username, true
}

// RoomsOf lists the rooms a connection is currently part of.
func (r *Registry) RoomsOf(connID string) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	rooms := make([]domain.RoomID, 0, len(sess.rooms))
	for room := range sess.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
