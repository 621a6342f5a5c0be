package chat

import (
	"sync"
	"time"
)

// Table is the room membership table plus per-room bounded history.
// Pure data structure: no I/O beyond handing frames to member queues.
// Each room carries its own lock so unrelated rooms never contend.
type Table struct {
	limit int

	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	mu      sync.RWMutex
	members map[*Conn]Identity
	history []Message

	// zero while occupied; set when the last member leaves
	emptiedAt time.Time
}

// NewTable creates an empty table keeping at most historyLimit messages per room
func NewTable(historyLimit int) *Table {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Table{limit: historyLimit, rooms: map[string]*room{}}
}

// room returns the entry for id, creating it on first use
func (t *Table) room(id string) *room {
	t.mu.Lock()
	defer t.mu.Unlock()
	rm := t.rooms[id]
	if rm == nil {
		// Starts as "empty since now" so never-occupied rooms are evictable too
		rm = &room{members: map[*Conn]Identity{}, emptiedAt: time.Now()}
		t.rooms[id] = rm
	}
	return rm
}

// peek returns the entry for id or nil, never creating one
func (t *Table) peek(id string) *room {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rooms[id]
}

// AddMember registers (conn, identity) in the room and returns the history
// snapshot taken in the same critical section, so the snapshot is exactly
// the messages that predate the membership.
func (t *Table) AddMember(roomID string, c *Conn, id Identity) []Message {
	rm := t.room(roomID)
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.members[c] = id
	rm.emptiedAt = time.Time{}
	return snapshot(rm.history)
}

// RemoveMember drops one membership and reports the identity it carried
func (t *Table) RemoveMember(roomID string, c *Conn) (Identity, bool) {
	rm := t.peek(roomID)
	if rm == nil {
		return Identity{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	id, ok := rm.members[c]
	if !ok {
		return Identity{}, false
	}
	delete(rm.members, c)
	if len(rm.members) == 0 {
		rm.emptiedAt = time.Now()
	}
	return id, true
}

// RemoveAll drops every membership of conn and returns roomID -> identity
// for the rooms it actually belonged to
func (t *Table) RemoveAll(c *Conn) map[string]Identity {
	t.mu.RLock()
	entries := make(map[string]*room, len(t.rooms))
	for id, rm := range t.rooms {
		entries[id] = rm
	}
	t.mu.RUnlock()

	left := map[string]Identity{}
	for roomID, rm := range entries {
		rm.mu.Lock()
		if id, ok := rm.members[c]; ok {
			delete(rm.members, c)
			if len(rm.members) == 0 {
				rm.emptiedAt = time.Now()
			}
			left[roomID] = id
		}
		rm.mu.Unlock()
	}
	return left
}

// Members returns an immutable snapshot of the room's current connections
func (t *Table) Members(roomID string) []*Conn {
	rm := t.peek(roomID)
	if rm == nil {
		return nil
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]*Conn, 0, len(rm.members))
	for c := range rm.members {
		out = append(out, c)
	}
	return out
}

// Publish appends m to the room's history, evicting the oldest entries past
// the bound, and hands frame to every current member inside the same
// critical section. Holding the room lock across the fan-out is what makes
// every member observe chat frames in history order; the sends themselves
// are non-blocking queue pushes.
func (t *Table) Publish(roomID string, m Message, frame []byte) {
	rm := t.room(roomID)
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.history = append(rm.history, m)
	if len(rm.history) > t.limit {
		rm.history = rm.history[len(rm.history)-t.limit:]
	}
	for c := range rm.members {
		c.send(frame)
	}
}

// History returns a read-only copy of the room's retained messages
func (t *Table) History(roomID string) []Message {
	rm := t.peek(roomID)
	if rm == nil {
		return []Message{}
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return snapshot(rm.history)
}

// RoomCount reports how many rooms exist, occupied or not
func (t *Table) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// EvictIdle deletes rooms that have been empty for longer than ttl,
// discarding their history. Returns the number of rooms evicted.
func (t *Table) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, rm := range t.rooms {
		rm.mu.RLock()
		idle := len(rm.members) == 0 && !rm.emptiedAt.IsZero() && !rm.emptiedAt.After(cutoff)
		rm.mu.RUnlock()
		if idle {
			delete(t.rooms, id)
			n++
		}
	}
	return n
}

func snapshot(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
