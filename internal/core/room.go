package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may discover a room.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type room struct {
	id         string
	name       string
	visibility Visibility
	creator    string
	members    map[string]struct{}
	createdAt  time.Time
}

// RoomInfo is an immutable snapshot of a room handed out to callers.
type RoomInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	Creator    string     `json:"creator,omitempty"`
	Members    []string   `json:"members"`
}

// Rooms tracks room membership with forward (room -> members) and reverse
// (user -> rooms) indexes. The two indexes are updated together under one
// lock, so a user is in a room's member set iff that room is in the user's
// group list.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byUser map[string]map[string]struct{}
	seeds  []string
}

// NewRooms builds the manager and pre-creates the given public seed rooms.
func NewRooms(seeds ...string) *Rooms {
	r := &Rooms{
		rooms:  make(map[string]*room),
		byUser: make(map[string]map[string]struct{}),
		seeds:  seeds,
	}
	for _, id := range seeds {
		r.EnsureRoom(id, id, VisibilityPublic)
	}
	return r
}

// EnsureRoom creates the room if absent and returns a snapshot. Idempotent.
func (r *Rooms) EnsureRoom(id, name string, visibility Visibility) RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[id]
	if !ok {
		rm = &room{
			id:         id,
			name:       name,
			visibility: visibility,
			members:    make(map[string]struct{}),
			createdAt:  time.Now(),
		}
		r.rooms[id] = rm
	}
	return r.snapshot(rm)
}

// Join adds username to the room's member set. Idempotent. Unknown public
// seed ids auto-create; any other unknown id fails with ErrRoomNotFound
// (private groups must be created first).
func (r *Rooms) Join(username, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		if !r.isSeed(roomID) {
			return ErrRoomNotFound
		}
		rm = &room{
			id:         roomID,
			name:       roomID,
			visibility: VisibilityPublic,
			members:    make(map[string]struct{}),
			createdAt:  time.Now(),
		}
		r.rooms[roomID] = rm
	}
	r.link(username, rm)
	return nil
}

// CreateGroup allocates a fresh private room owned by creator and seeds its
// membership with {creator} plus initialMembers.
func (r *Rooms) CreateGroup(creator, name string, initialMembers []string) RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()[:8]
	for _, exists := r.rooms[id]; exists; _, exists = r.rooms[id] {
		id = uuid.NewString()[:8]
	}

	rm := &room{
		id:         id,
		name:       name,
		visibility: VisibilityPrivate,
		creator:    creator,
		members:    make(map[string]struct{}),
		createdAt:  time.Now(),
	}
	r.rooms[id] = rm

	r.link(creator, rm)
	for _, member := range initialMembers {
		if member != "" {
			r.link(member, rm)
		}
	}
	return r.snapshot(rm)
}

// GroupsFor returns snapshots of every room the user belongs to.
func (r *Rooms) GroupsFor(username string) []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[username]
	infos := make([]RoomInfo, 0, len(ids))
	for id := range ids {
		if rm, ok := r.rooms[id]; ok {
			infos = append(infos, r.snapshot(rm))
		}
	}
	return infos
}

// Members returns a copy of the room's member set.
func (r *Rooms) Members(roomID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	members := make([]string, 0, len(rm.members))
	for m := range rm.members {
		members = append(members, m)
	}
	return members, nil
}

// Get returns a snapshot of the room.
func (r *Rooms) Get(roomID string) (RoomInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return r.snapshot(rm), true
}

// Seeds returns the configured public seed room ids.
func (r *Rooms) Seeds() []string {
	out := make([]string, len(r.seeds))
	copy(out, r.seeds)
	return out
}

// link must be called with r.mu held.
func (r *Rooms) link(username string, rm *room) {
	rm.members[username] = struct{}{}
	if r.byUser[username] == nil {
		r.byUser[username] = make(map[string]struct{})
	}
	r.byUser[username][rm.id] = struct{}{}
}

func (r *Rooms) isSeed(id string) bool {
	for _, s := range r.seeds {
		if s == id {
			return true
		}
	}
	return false
}

// snapshot must be called with r.mu held (read or write).
func (r *Rooms) snapshot(rm *room) RoomInfo {
	members := make([]string, 0, len(rm.members))
	for m := range rm.members {
		members = append(members, m)
	}
	return RoomInfo{
		ID:         rm.id,
		Name:       rm.name,
		Visibility: rm.visibility,
		Creator:    rm.creator,
		Members:    members,
	}
}
