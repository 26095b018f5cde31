package roster

import "sync"

// Directory is the authoritative membership store: a lock-guarded mapping
// from roomID to the ordered sequence of joined userIDs. Rooms exist
// implicitly; a key is created on first join and removed the instant the
// member sequence becomes empty.
type Directory struct {
	mu    sync.Mutex
	rooms map[string][]string
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string][]string),
	}
}

// Join atomically checks whether userID is already a member of roomID and
// appends it if not. Returns ErrUsernameTaken without mutating anything if
// the userID is taken (case-sensitive exact match).
func (d *Directory) Join(roomID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, member := range d.rooms[roomID] {
		if member == userID {
			return ErrUsernameTaken
		}
	}
	d.rooms[roomID] = append(d.rooms[roomID], userID)
	return nil
}

// Leave removes userID from roomID if present. It is idempotent: removing
// an absent member is a no-op, since a disconnect may race an already-failed
// join. It returns the remaining roster and whether the room emptied; on
// emptied the room key is deleted before returning.
func (d *Directory) Leave(roomID, userID string) (remaining []string, emptied bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}

	for i, member := range members {
		if member == userID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}

	if len(members) == 0 {
		delete(d.rooms, roomID)
		return nil, true
	}

	d.rooms[roomID] = members
	remaining = make([]string, len(members))
	copy(remaining, members)
	return remaining, false
}

// Snapshot returns the current roster of roomID in join order, or nil if the
// room does not exist.
func (d *Directory) Snapshot(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	snapshot := make([]string, len(members))
	copy(snapshot, members)
	return snapshot
}

// RoomCount returns the number of occupied rooms.
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
