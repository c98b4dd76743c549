package rest

import "time"

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeDirect  RoomType = "direct"
)

// RoomInfo is a room as listed by the server. Name is what the WebSocket
// protocol joins by; ID addresses the room's history.
type RoomInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      RoomType  `json:"type"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	Name string   `json:"name"`
	Type RoomType `json:"type,omitempty"` // server default is public
}

// CreateDirectRoomRequest names the peer of a direct room by user ID.
type CreateDirectRoomRequest struct {
	UserID int64 `json:"user_id"`
}

// MaxPageSize is the largest limit GetMessages accepts.
const MaxPageSize = 100

// PageQuery selects a history page. Zero Limit uses the server default;
// Before, when set, returns messages older than that message ID.
type PageQuery struct {
	Limit  int
	Before int64
}

type MessageInfo struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	User      string    `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagesResponse is one history page.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
