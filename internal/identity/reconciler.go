// Package identity maps legacy source users onto target identities: find by
// external id, fall back to email (healing the external-id mapping), create
// through the identity provider as a last resort.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/loreline/loreline/internal/accounts"
	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/media"
)

// Collection is the target store collection holding identity documents.
const Collection = "users"

// Result is the outcome of reconciling one source user.
type Result struct {
	// IdentityID is the target identity document id.
	IdentityID string
	// Created is true when a new provider account and identity document were
	// created during this call.
	Created bool
	// Conflict is set when the email-matched identity already carried a
	// different external id. The identity is reused, never overwritten.
	Conflict string
}

// Reconciler finds-or-creates target identities for source users.
type Reconciler struct {
	store    docstore.Store
	provider accounts.Provider
	media    *media.Migrator
	logger   *slog.Logger
}

// NewReconciler creates an identity reconciler.
func NewReconciler(log *slog.Logger, store docstore.Store, provider accounts.Provider, migrator *media.Migrator) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:    store,
		provider: provider,
		media:    migrator,
		logger:   log.With(slog.String("service", "identity")),
	}
}

// Reconcile maps one source user to exactly one target identity. Lookup order:
// external id, then email (backfilling the external id on the match), then
// account creation. Avatar and cover media migrate only on the create path;
// existing identities are never re-migrated.
func (r *Reconciler) Reconcile(ctx context.Context, user bundle.Member) (Result, error) {
	if strings.TrimSpace(user.ID) == "" {
		return Result{}, fmt.Errorf("source user id is required")
	}

	docs, err := r.store.FindByField(ctx, Collection, "externalId", user.ID, 1)
	if err != nil {
		return Result{}, fmt.Errorf("lookup by external id: %w", err)
	}
	if len(docs) > 0 {
		return Result{IdentityID: docstore.StringField(docs[0], "id")}, nil
	}

	email := strings.TrimSpace(user.Email)
	if email != "" {
		docs, err = r.store.FindByField(ctx, Collection, "email", email, 1)
		if err != nil {
			return Result{}, fmt.Errorf("lookup by email: %w", err)
		}
		if len(docs) > 0 {
			return r.adoptByEmail(ctx, docs[0], user.ID)
		}
	}

	return r.create(ctx, user)
}

// EnsureOwner reconciles the fixed import-owner identity, creating it on first
// use. The owner is matched by its configured email only.
func (r *Reconciler) EnsureOwner(ctx context.Context, email, displayName string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("import owner email is required")
	}
	docs, err := r.store.FindByField(ctx, Collection, "email", email, 1)
	if err != nil {
		return "", fmt.Errorf("lookup import owner: %w", err)
	}
	if len(docs) > 0 {
		return docstore.StringField(docs[0], "id"), nil
	}

	account, err := r.ensureAccount(ctx, email, displayName)
	if err != nil {
		return "", err
	}
	doc := docstore.Document{
		"email":       account.Email,
		"displayName": displayName,
	}
	if err := r.store.Create(ctx, Collection, account.ID, doc); err != nil {
		return "", fmt.Errorf("create import owner identity: %w", err)
	}
	r.logger.Info("import owner identity created", slog.String("identity_id", account.ID))
	return account.ID, nil
}

// adoptByEmail backfills the external id on an email-matched identity so
// future lookups hit the external-id step directly.
func (r *Reconciler) adoptByEmail(ctx context.Context, doc docstore.Document, sourceID string) (Result, error) {
	identityID := docstore.StringField(doc, "id")
	existing := docstore.StringField(doc, "externalId")
	if existing != "" && existing != sourceID {
		r.logger.Warn("identity email collision",
			slog.String("identity_id", identityID),
			slog.String("external_id", existing),
			slog.String("source_id", sourceID),
		)
		conflict := fmt.Sprintf("identity %s already mapped to source user %s", identityID, existing)
		return Result{IdentityID: identityID, Conflict: conflict}, nil
	}
	if existing == "" {
		patch := docstore.Document{"externalId": sourceID}
		if err := r.store.Set(ctx, Collection, identityID, patch, true); err != nil {
			return Result{}, fmt.Errorf("backfill external id: %w", err)
		}
	}
	return Result{IdentityID: identityID}, nil
}

// create registers a provider account and persists the identity document with
// the member's enriched profile fields and migrated media.
func (r *Reconciler) create(ctx context.Context, user bundle.Member) (Result, error) {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		// Synthesized address keeps the provider happy for users that never
		// had an email in the source store.
		email = fmt.Sprintf("%s@example.com", user.ID)
	}
	account, err := r.ensureAccount(ctx, email, displayName(user))
	if err != nil {
		return Result{}, err
	}

	avatarURL := user.AvatarURL
	coverURL := user.CoverURL
	if r.media != nil {
		avatarURL = r.media.Migrate(ctx, avatarURL)
		coverURL = r.media.Migrate(ctx, coverURL)
	}
	doc := docstore.Document{
		"externalId":  user.ID,
		"email":       account.Email,
		"displayName": displayName(user),
		"avatarUrl":   avatarURL,
		"coverUrl":    coverURL,
		"bio":         user.Bio,
		"phone":       user.Phone,
	}
	if err := r.store.Create(ctx, Collection, account.ID, doc); err != nil {
		return Result{}, fmt.Errorf("create identity document: %w", err)
	}
	return Result{IdentityID: account.ID, Created: true}, nil
}

// ensureAccount creates a provider account with a generated credential,
// converting the provider's "already registered" conflict into a lookup.
func (r *Reconciler) ensureAccount(ctx context.Context, email, name string) (accounts.Account, error) {
	account, err := r.provider.Create(ctx, email, uuid.NewString(), name)
	if errors.Is(err, accounts.ErrEmailExists) {
		account, err = r.provider.GetByEmail(ctx, email)
	}
	if err != nil {
		return accounts.Account{}, fmt.Errorf("provision account %s: %w", email, err)
	}
	return account, nil
}

func displayName(user bundle.Member) string {
	if strings.TrimSpace(user.DisplayName) != "" {
		return strings.TrimSpace(user.DisplayName)
	}
	return strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
}
