package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted after a user successfully joins a room.
// Members carries the roster snapshot taken at join time, in join order.
type UserJoinedEvent struct {
	ConnID    string    `json:"conn_id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Members   []string  `json:"members"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a user leaves a room that still has members.
type UserLeftEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Members   []string  `json:"members"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePostedEvent is emitted when a joined user posts a chat message.
type MessagePostedEvent struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FileStoredEvent is emitted after an upload has been written to the room's
// storage area.
type FileStoredEvent struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	StoredName string    `json:"stored_name"`
	FileURL    string    `json:"file_url"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"roster",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"roster",
		"UserLeft",
		"v1",
	)

	MessagePostedV1 = helper.EventDefinition[MessagePostedEvent](
		"roster",
		"MessagePosted",
		"v1",
	)

	FileStoredV1 = helper.EventDefinition[FileStoredEvent](
		"uploads",
		"FileStored",
		"v1",
	)
)
