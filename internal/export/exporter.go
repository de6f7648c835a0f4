// Package export assembles the community aggregate: the community document,
// every member (owner included) enriched from the target-side directory, and
// each member's message history, as one self-contained bundle.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/identity"
	"github.com/loreline/loreline/internal/sourcestore"
)

// SourceStore is the read surface of the legacy store the exporter consumes.
type SourceStore interface {
	Community(ctx context.Context, id string) (sourcestore.Community, error)
	UsersByIDs(ctx context.Context, ids []string) ([]sourcestore.User, error)
	ChannelForMember(ctx context.Context, communityID, userID string) (*sourcestore.Channel, error)
	MessagesForChannel(ctx context.Context, channelID, textFilter string) ([]sourcestore.Message, error)
}

// Exporter produces export bundles. Export is read-only and safely repeatable.
type Exporter struct {
	source    SourceStore
	directory docstore.Store
	logger    *slog.Logger
}

// NewExporter creates an exporter. directory is the target-side document store
// used for best-effort member enrichment; it may be nil.
func NewExporter(log *slog.Logger, source SourceStore, directory docstore.Store) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{
		source:    source,
		directory: directory,
		logger:    log.With(slog.String("service", "export")),
	}
}

// Export builds the bundle for one community. Returns sourcestore.ErrNotFound
// when the community does not exist. textFilter optionally restricts exported
// messages by full-text match.
func (e *Exporter) Export(ctx context.Context, communityID, textFilter string) (*bundle.ExportBundle, error) {
	community, err := e.source.Community(ctx, communityID)
	if err != nil {
		return nil, err
	}

	memberIDs := memberIDSet(community)
	users, err := e.source.UsersByIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	byID := make(map[string]sourcestore.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	members := make([]bundle.Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		user, ok := byID[id]
		if !ok {
			e.logger.Warn("member missing from source store", slog.String("user_id", id))
			continue
		}
		member := toMember(user)
		e.enrich(ctx, &member)
		member.Messages = e.exportMessages(ctx, community.ID, member.ID, textFilter)
		members = append(members, member)
	}

	b := &bundle.ExportBundle{
		Community: toCommunity(community),
		Members:   members,
	}
	e.logger.Info("community exported",
		slog.String("community_id", community.ID),
		slog.Int("members", len(members)),
	)
	return b, nil
}

// memberIDSet is the community's declared member list plus the owner, who must
// never drop out of an export even when absent from usersList.
func memberIDSet(community sourcestore.Community) []string {
	ids := make([]string, 0, len(community.UserIDs)+1)
	seen := make(map[string]struct{}, len(community.UserIDs)+1)
	for _, id := range community.UserIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if owner := community.OwnerID; owner != "" {
		if _, ok := seen[owner]; !ok {
			ids = append(ids, owner)
		}
	}
	return ids
}

// enrich merges the member's target-side directory record, when one exists,
// preferring directory fields over source fields. Any failure here is logged
// and ignored so one bad record cannot block the rest of the export.
func (e *Exporter) enrich(ctx context.Context, member *bundle.Member) {
	if e.directory == nil {
		return
	}
	docs, err := e.directory.FindByField(ctx, identity.Collection, "mongoId", member.ID, 1)
	if err != nil {
		e.logger.Warn("member enrichment failed", slog.String("user_id", member.ID), slog.Any("error", err))
		return
	}
	if len(docs) == 0 {
		return
	}
	doc := docs[0]
	member.EnrichedID = docstore.StringField(doc, "id")
	overlay(&member.Email, doc, "email")
	overlay(&member.DisplayName, doc, "displayName")
	overlay(&member.AvatarURL, doc, "avatarUrl")
	overlay(&member.CoverURL, doc, "coverUrl")
	overlay(&member.Bio, doc, "bio")
	overlay(&member.Phone, doc, "phone")
}

// exportMessages resolves the member's community channel and loads its recent
// history. No channel means an empty history, not an error; load failures are
// logged and yield an empty history as well.
func (e *Exporter) exportMessages(ctx context.Context, communityID, userID, textFilter string) []bundle.Message {
	channel, err := e.source.ChannelForMember(ctx, communityID, userID)
	if err != nil {
		e.logger.Warn("channel lookup failed", slog.String("user_id", userID), slog.Any("error", err))
		return []bundle.Message{}
	}
	if channel == nil {
		return []bundle.Message{}
	}
	messages, err := e.source.MessagesForChannel(ctx, channel.ID, textFilter)
	if err != nil {
		e.logger.Warn("message export failed", slog.String("channel_id", channel.ID), slog.Any("error", err))
		return []bundle.Message{}
	}
	out := make([]bundle.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, bundle.Message{
			ID:           msg.ID,
			ChannelID:    msg.ChannelID,
			SenderID:     msg.SenderID,
			SenderName:   msg.SenderName,
			SenderAvatar: msg.SenderAvatar,
			Text:         msg.Text,
			CreatedAt:    msg.CreatedAt,
		})
	}
	return out
}

func overlay(dst *string, doc docstore.Document, field string) {
	if v := strings.TrimSpace(docstore.StringField(doc, field)); v != "" {
		*dst = v
	}
}

func toCommunity(c sourcestore.Community) bundle.Community {
	return bundle.Community{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		OwnerID:       c.OwnerID,
		UserIDs:       c.UserIDs,
		Tags:          c.Tags,
		Lore:          c.Lore,
		Mantras:       c.Mantras,
		ProfileURL:    c.ProfileURL,
		BackgroundURL: c.BackgroundURL,
		Private:       c.Private,
		CreatedAt:     c.CreatedAt,
	}
}

func toMember(u sourcestore.User) bundle.Member {
	return bundle.Member{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
