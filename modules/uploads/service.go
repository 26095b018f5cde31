package uploads

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	domain "github.com/example/chat-relay-demo/domain/chat"
)

// timestampLayout formats the submission instant with no separators, so
// stored names sort chronologically.
const timestampLayout = "20060102150405"

// sanitizeName removes path separators and dangerous characters so that
// client-supplied room IDs and file names cannot escape the storage root.
func sanitizeName(name string) string {
	clean := filepath.Base(filepath.Clean(name))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}

// storedName builds the storage name for an upload. The 3-digit random
// suffix bounds, but does not eliminate, the collision risk of two uploads
// of the same file name within the same second.
func storedName(now time.Time, fileName string) string {
	return fmt.Sprintf("%s-%03d-%s", now.Format(timestampLayout), rand.IntN(1000), sanitizeName(fileName))
}

// Service persists upload artifacts under one directory per room and tears
// the directory down when the room empties. It holds no locks: membership
// state is never touched while file I/O is in flight.
type Service struct {
	root string
}

// NewService creates a service rooted at the given uploads directory.
func NewService(root string) *Service {
	return &Service{root: root}
}

// Root returns the uploads root directory.
func (s *Service) Root() string {
	return s.root
}

// Store writes data under the room's storage area with a generated,
// collision-resistant name, creating the area if absent. On I/O failure it
// returns a wrapped error and does not retry.
func (s *Service) Store(roomID, userID, fileName string, data []byte) (*domain.StoredFile, error) {
	now := time.Now()
	room := sanitizeName(roomID)
	name := storedName(now, fileName)

	dir := filepath.Join(s.root, room)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create room storage area: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &domain.StoredFile{
		RoomID:    roomID,
		UserID:    userID,
		Name:      name,
		URL:       "/uploads/" + room + "/" + name,
		Size:      int64(len(data)),
		CreatedAt: now,
	}, nil
}

// PurgeRoom recursively removes the room's entire storage area. Removing an
// already-absent area is a no-op, not an error.
func (s *Service) PurgeRoom(roomID string) error {
	return os.RemoveAll(filepath.Join(s.root, sanitizeName(roomID)))
}

// RoomStorageExists reports whether a storage area exists for the room.
func (s *Service) RoomStorageExists(roomID string) bool {
	info, err := os.Stat(filepath.Join(s.root, sanitizeName(roomID)))
	return err == nil && info.IsDir()
}
