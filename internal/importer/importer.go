package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/identity"
	"github.com/loreline/loreline/internal/media"
)

// CommunityCollection holds imported community documents.
const CommunityCollection = "communities"

const defaultWorkers = 4

// Importer consumes export bundles and writes the community aggregate into the
// target store. Import never returns an error: every failure is captured in
// the Result.
type Importer struct {
	store      docstore.Store
	reconciler *identity.Reconciler
	media      *media.Migrator
	logger     *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(log *slog.Logger, store docstore.Store, reconciler *identity.Reconciler, migrator *media.Migrator) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		store:      store,
		reconciler: reconciler,
		media:      migrator,
		logger:     log.With(slog.String("service", "importer")),
	}
}

// Import runs the full pipeline for one bundle: import-owner reconciliation,
// member reconciliation over a bounded worker pool, community document
// creation with migrated media, and chunked member-link commits. Steps are
// strictly ordered; the first failing step aborts the run.
func (i *Importer) Import(ctx context.Context, b *bundle.ExportBundle, opts Options) Result {
	if b == nil {
		return failed("bundle is required")
	}
	if err := b.Validate(); err != nil {
		return failed(fmt.Sprintf("invalid bundle: %v", err))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyDuplicate
	}

	started := time.Now()
	log := i.logger.With(slog.String("community_id", b.Community.ID))
	log.Info("import started", slog.Int("members", len(b.Members)), slog.String("policy", string(policy)))

	ownerID, err := i.reconciler.EnsureOwner(ctx, opts.OwnerEmail, opts.OwnerName)
	if err != nil {
		log.Error("import owner reconciliation failed", slog.Any("error", err))
		return failed(fmt.Sprintf("reconcile import owner: %v", err))
	}

	// Community media has no dependency on any member, so it migrates
	// concurrently with the member fan-out.
	memberResults, profileURL, backgroundURL := i.runFanOut(ctx, b, workers)

	result := Result{Members: memberResults}
	identityBySource := make(map[string]string, len(memberResults))
	for _, mr := range memberResults {
		if mr.Error != "" {
			result.Message = fmt.Sprintf("reconcile member %s: %s", mr.SourceID, mr.Error)
			log.Error("member reconciliation failed", slog.String("source_id", mr.SourceID), slog.String("error", mr.Error))
			return result
		}
		if mr.Conflict != "" {
			result.Conflicts = append(result.Conflicts, mr.Conflict)
		}
		identityBySource[mr.SourceID] = mr.IdentityID
	}
	if err := ctx.Err(); err != nil {
		result.Message = fmt.Sprintf("import canceled: %v", err)
		return result
	}

	communityID, err := i.writeCommunity(ctx, b, policy, ownerID, profileURL, backgroundURL)
	if err != nil {
		log.Error("community write failed", slog.Any("error", err))
		result.Message = fmt.Sprintf("write community: %v", err)
		return result
	}
	result.CommunityID = communityID

	if err := i.writeMemberLinks(ctx, b, communityID, ownerID, identityBySource); err != nil {
		log.Error("member link commit failed", slog.Any("error", err))
		result.Message = fmt.Sprintf("write member links: %v", err)
		return result
	}

	result.Success = true
	result.Message = fmt.Sprintf("imported community %s with %d members", b.Community.Name, len(b.Members))
	log.Info("import finished",
		slog.String("target_community_id", communityID),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result
}

// runFanOut reconciles every member over a bounded pool and migrates the
// community's own media alongside. Per-member failures land in the result
// slice rather than canceling sibling work.
func (i *Importer) runFanOut(ctx context.Context, b *bundle.ExportBundle, workers int) ([]MemberResult, string, string) {
	results := make([]MemberResult, len(b.Members))
	profileURL := b.Community.ProfileURL
	backgroundURL := b.Community.BackgroundURL

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1)
	g.Go(func() error {
		if i.media != nil {
			profileURL = i.media.Migrate(gctx, profileURL)
			backgroundURL = i.media.Migrate(gctx, backgroundURL)
		}
		return nil
	})
	for idx, member := range b.Members {
		g.Go(func() error {
			res, err := i.reconciler.Reconcile(gctx, member)
			mr := MemberResult{SourceID: member.ID}
			if err != nil {
				mr.Error = err.Error()
			} else {
				mr.IdentityID = res.IdentityID
				mr.Created = res.Created
				mr.Conflict = res.Conflict
			}
			results[idx] = mr
			return nil
		})
	}
	_ = g.Wait()
	return results, profileURL, backgroundURL
}

// writeCommunity creates the target community document, or merge-updates the
// previously imported one under PolicyUpdate. The import owner replaces the
// original owner by design.
func (i *Importer) writeCommunity(ctx context.Context, b *bundle.ExportBundle, policy ReimportPolicy, ownerID, profileURL, backgroundURL string) (string, error) {
	doc := docstore.Document{
		"name":          b.Community.Name,
		"slug":          b.Community.Slug,
		"ownerId":       ownerID,
		"tags":          b.Community.Tags,
		"lore":          b.Community.Lore,
		"mantras":       b.Community.Mantras,
		"profileUrl":    profileURL,
		"backgroundUrl": backgroundURL,
		"private":       b.Community.Private,
		"memberCount":   len(b.Members),
		"externalId":    b.Community.ID,
		"importedAt":    time.Now().UTC(),
	}

	if policy == PolicyUpdate {
		existing, err := i.store.FindByField(ctx, CommunityCollection, "externalId", b.Community.ID, 1)
		if err != nil {
			return "", fmt.Errorf("lookup previous import: %w", err)
		}
		if len(existing) > 0 {
			id := docstore.StringField(existing[0], "id")
			if err := i.store.Set(ctx, CommunityCollection, id, doc, true); err != nil {
				return "", err
			}
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := i.store.Create(ctx, CommunityCollection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// writeMemberLinks commits one link per member plus the owner link, chunked so
// no single batch exceeds the store's per-batch ceiling.
func (i *Importer) writeMemberLinks(ctx context.Context, b *bundle.ExportBundle, communityID, ownerID string, identityBySource map[string]string) error {
	collection := memberLinkCollection(communityID)
	now := time.Now().UTC()

	writes := make([]docstore.Write, 0, len(b.Members)+1)
	writes = append(writes, docstore.Write{
		Collection: collection,
		ID:         ownerID,
		Data: docstore.Document{
			"userId":   ownerID,
			"role":     "owner",
			"joinedAt": now,
		},
	})
	for _, member := range b.Members {
		identityID := identityBySource[member.ID]
		writes = append(writes, docstore.Write{
			Collection: collection,
			ID:         identityID,
			Data: docstore.Document{
				"userId":      identityID,
				"role":        "member",
				"displayName": linkDisplayName(member),
				"email":       member.Email,
				"avatarUrl":   member.AvatarURL,
				"phone":       member.Phone,
				"joinedAt":    member.CreatedAt,
			},
		})
	}

	for start := 0; start < len(writes); start += docstore.MaxBatchWrites {
		end := min(start+docstore.MaxBatchWrites, len(writes))
		if err := i.store.Commit(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func memberLinkCollection(communityID string) string {
	return CommunityCollection + "/" + communityID + "/members"
}

func linkDisplayName(member bundle.Member) string {
	if strings.TrimSpace(member.DisplayName) != "" {
		return strings.TrimSpace(member.DisplayName)
	}
	return strings.TrimSpace(strings.TrimSpace(member.FirstName) + " " + strings.TrimSpace(member.LastName))
}

func failed(message string) Result {
	return Result{Message: message}
}
