// Package bundle defines the export bundle: the self-contained snapshot of one
// community, its members, and their message history that decouples the export
// phase from the import phase. A bundle carries no live handles into either
// store and must survive JSON round-trips without loss (string ids, RFC 3339
// timestamps).
package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Community is the source community snapshot carried inside a bundle.
type Community struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	OwnerID       string    `json:"ownerId"`
	UserIDs       []string  `json:"usersList"`
	Tags          []string  `json:"tags,omitempty"`
	Lore          string    `json:"lore,omitempty"`
	Mantras       string    `json:"mantras,omitempty"`
	ProfileURL    string    `json:"profileUrl,omitempty"`
	BackgroundURL string    `json:"backgroundUrl,omitempty"`
	Private       bool      `json:"private"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Member is one exported member: the source user record, optionally enriched
// from the target-side directory, plus that member's message history in the
// community. EnrichedID is the directory record id when enrichment matched.
type Member struct {
	ID          string    `json:"id"`
	EnrichedID  string    `json:"enrichedId,omitempty"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
	Messages    []Message `json:"messages"`
}

// Message is one direct message inside a member's community channel, with the
// sender's display data joined in at export time.
type Message struct {
	ID           string    `json:"id"`
	ChannelID    string    `json:"channelId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName,omitempty"`
	SenderAvatar string    `json:"senderAvatar,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ExportBundle is the contract between export and import. Every member of the
// community (including the owner, listed or not) appears exactly once in Members.
type ExportBundle struct {
	Community Community `json:"community"`
	Members   []Member  `json:"members"`
}

// Validate checks the structural invariants a well-formed bundle must hold.
func (b *ExportBundle) Validate() error {
	if strings.TrimSpace(b.Community.ID) == "" {
		return fmt.Errorf("bundle community id is required")
	}
	if strings.TrimSpace(b.Community.Name) == "" {
		return fmt.Errorf("bundle community name is required")
	}
	seen := make(map[string]struct{}, len(b.Members))
	for _, m := range b.Members {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("bundle member without id")
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("bundle member %s appears more than once", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// Member returns the member with the given source id, or false.
func (b *ExportBundle) Member(id string) (Member, bool) {
	for _, m := range b.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Encode writes the bundle as indented JSON.
func Encode(w io.Writer, b *ExportBundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// Decode reads and validates a bundle from JSON.
func Decode(r io.Reader) (*ExportBundle, error) {
	var b ExportBundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
