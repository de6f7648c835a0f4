// Package sourcestore reads the legacy MongoDB source store: communities,
// users, per-community channels, and channel messages. All access is read-only.
package sourcestore

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found in source store")

// MessageLimit is the hard cap on messages returned per channel, most recent first.
const MessageLimit = 100

// Community is a legacy community document.
type Community struct {
	ID            string
	Name          string
	Slug          string
	OwnerID       string
	UserIDs       []string
	Tags          []string
	Lore          string
	Mantras       string
	ProfileURL    string
	BackgroundURL string
	Private       bool
	CreatedAt     time.Time
}

// User is a legacy user document.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	AvatarURL string
	CoverURL  string
	Bio       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Channel correlates one community and one user; it scopes that member's
// direct-message history. A member has at most one channel per community.
type Channel struct {
	ID          string
	CommunityID string
	UserID      string
}

// Message is one channel message with the sender's display data joined in.
type Message struct {
	ID           string
	ChannelID    string
	SenderID     string
	SenderName   string
	SenderAvatar string
	Text         string
	CreatedAt    time.Time
}
