package roster

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestDirectory_Join(t *testing.T) {
	dir := NewDirectory()

	tests := []struct {
		name    string
		roomID  string
		userID  string
		wantErr error
	}{
		{
			name:   "first member creates the room",
			roomID: "r1",
			userID: "alice",
		},
		{
			name:   "second member appends",
			roomID: "r1",
			userID: "bob",
		},
		{
			name:    "duplicate username rejected",
			roomID:  "r1",
			userID:  "alice",
			wantErr: ErrUsernameTaken,
		},
		{
			name:   "same username in another room succeeds",
			roomID: "r2",
			userID: "alice",
		},
		{
			name:    "username match is case-sensitive",
			roomID:  "r1",
			userID:  "Alice",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dir.Join(tt.roomID, tt.userID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Join(%q, %q) error = %v, want %v", tt.roomID, tt.userID, err, tt.wantErr)
			}
		})
	}
}

func TestDirectory_JoinRejectionDoesNotMutate(t *testing.T) {
	dir := NewDirectory()
	_ = dir.Join("r1", "alice")

	if err := dir.Join("r1", "alice"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("Join() error = %v, want ErrUsernameTaken", err)
	}

	roster := dir.Snapshot("r1")
	if len(roster) != 1 || roster[0] != "alice" {
		t.Errorf("Snapshot() = %v, want [alice]", roster)
	}
}

func TestDirectory_SnapshotJoinOrder(t *testing.T) {
	dir := NewDirectory()
	for _, user := range []string{"alice", "bob", "carol"} {
		if err := dir.Join("r1", user); err != nil {
			t.Fatalf("Join(%q) error: %v", user, err)
		}
	}

	roster := dir.Snapshot("r1")
	want := []string{"alice", "bob", "carol"}
	if len(roster) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", roster, want)
	}
	for i := range want {
		if roster[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, roster[i], want[i])
		}
	}
}

func TestDirectory_SnapshotNeverDuplicates(t *testing.T) {
	dir := NewDirectory()
	for i := 0; i < 3; i++ {
		_ = dir.Join("r1", "alice")
		_ = dir.Join("r1", "bob")
	}

	seen := make(map[string]bool)
	for _, user := range dir.Snapshot("r1") {
		if seen[user] {
			t.Errorf("Snapshot() contains duplicate userID %q", user)
		}
		seen[user] = true
	}
}

func TestDirectory_Leave(t *testing.T) {
	dir := NewDirectory()
	_ = dir.Join("r1", "alice")
	_ = dir.Join("r1", "bob")

	remaining, emptied := dir.Leave("r1", "alice")
	if emptied {
		t.Error("Leave() emptied = true, want false while bob remains")
	}
	if len(remaining) != 1 || remaining[0] != "bob" {
		t.Errorf("Leave() remaining = %v, want [bob]", remaining)
	}

	remaining, emptied = dir.Leave("r1", "bob")
	if !emptied {
		t.Error("Leave() emptied = false, want true for last member")
	}
	if remaining != nil {
		t.Errorf("Leave() remaining = %v, want nil", remaining)
	}

	if dir.Snapshot("r1") != nil {
		t.Error("Snapshot() after last leave should be nil; room entry must be gone")
	}
	if dir.RoomCount() != 0 {
		t.Errorf("RoomCount() = %d, want 0", dir.RoomCount())
	}
}

func TestDirectory_LeaveIdempotent(t *testing.T) {
	dir := NewDirectory()
	_ = dir.Join("r1", "alice")

	// Leaving with a member that never joined is a no-op.
	remaining, emptied := dir.Leave("r1", "ghost")
	if emptied {
		t.Error("Leave() of absent member reported emptied")
	}
	if len(remaining) != 1 || remaining[0] != "alice" {
		t.Errorf("Leave() remaining = %v, want [alice]", remaining)
	}

	// Leaving a room that does not exist is a no-op too.
	remaining, emptied = dir.Leave("nope", "alice")
	if emptied || remaining != nil {
		t.Errorf("Leave() on absent room = (%v, %v), want (nil, false)", remaining, emptied)
	}
}

func TestDirectory_RoomsAreIndependent(t *testing.T) {
	dir := NewDirectory()
	_ = dir.Join("r1", "alice")
	_ = dir.Join("r2", "alice")

	if _, emptied := dir.Leave("r1", "alice"); !emptied {
		t.Error("Leave() r1 should empty the room")
	}
	if roster := dir.Snapshot("r2"); len(roster) != 1 {
		t.Errorf("Snapshot(r2) = %v, want [alice]", roster)
	}
}

func TestDirectory_ConcurrentJoinsSameIdentity(t *testing.T) {
	dir := NewDirectory()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- dir.Join("r1", "alice")
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("Join() unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("concurrent Join() succeeded %d times, want exactly 1", succeeded)
	}
}

func BenchmarkDirectory_JoinLeave(b *testing.B) {
	dir := NewDirectory()
	for i := 0; i < b.N; i++ {
		user := fmt.Sprintf("user-%d", i%64)
		_ = dir.Join("bench", user)
		dir.Leave("bench", user)
	}
}
