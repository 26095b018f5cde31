package chat

import "time"

// Binding ties a connection to the room and user identity it joined with.
// It is written once at a successful join and cleared at disconnect.
type Binding struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// StoredFile describes one uploaded artifact persisted under a room's
// storage area.
type StoredFile struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
