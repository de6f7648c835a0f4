package importer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loreline/loreline/internal/accounts"
	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/identity"
	"github.com/loreline/loreline/internal/importer"
	"github.com/loreline/loreline/internal/media"
)

type fixture struct {
	store    *docstore.MemoryStore
	provider *accounts.MemoryProvider
	importer *importer.Importer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	provider := accounts.NewMemoryProvider()
	migrator := media.NewMigrator(nil, nil, "", "", "")
	reconciler := identity.NewReconciler(nil, store, provider, migrator)
	return &fixture{
		store:    store,
		provider: provider,
		importer: importer.NewImporter(nil, store, reconciler, migrator),
	}
}

func makeBundle(members int) *bundle.ExportBundle {
	created := time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)
	b := &bundle.ExportBundle{
		Community: bundle.Community{
			ID:        "src-c1",
			Name:      "Night Owls",
			Slug:      "night-owls",
			OwnerID:   "src-owner",
			CreatedAt: created,
		},
	}
	for i := 0; i < members; i++ {
		id := fmt.Sprintf("src-u%04d", i)
		b.Members = append(b.Members, bundle.Member{
			ID:        id,
			FirstName: "Member",
			LastName:  fmt.Sprintf("%04d", i),
			Email:     id + "@example.com",
			CreatedAt: created,
		})
	}
	return b
}

func defaultOptions() importer.Options {
	return importer.Options{OwnerEmail: "imports@loreline.app", OwnerName: "Import Owner"}
}

func TestImportSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	result := f.importer.Import(ctx, makeBundle(3), defaultOptions())
	if !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}
	if result.CommunityID == "" {
		t.Fatalf("missing community id")
	}
	if len(result.Members) != 3 {
		t.Fatalf("member results = %d, want 3", len(result.Members))
	}
	for _, mr := range result.Members {
		if !mr.Created || mr.IdentityID == "" || mr.Error != "" {
			t.Fatalf("bad member result: %+v", mr)
		}
	}

	doc, err := f.store.Get(ctx, importer.CommunityCollection, result.CommunityID)
	if err != nil {
		t.Fatalf("load community: %v", err)
	}
	if doc["externalId"] != "src-c1" || doc["name"] != "Night Owls" {
		t.Fatalf("community doc = %v", doc)
	}
	if doc["memberCount"] != 3 {
		t.Fatalf("memberCount = %v", doc["memberCount"])
	}

	// The original owner never crosses over: the import owner takes their place.
	ownerID, _ := doc["ownerId"].(string)
	if ownerID == "" || ownerID == "src-owner" {
		t.Fatalf("ownerId = %q", ownerID)
	}
	links := importer.CommunityCollection + "/" + result.CommunityID + "/members"
	if got := f.store.Count(links); got != 4 {
		t.Fatalf("member links = %d, want 4 (3 members + owner)", got)
	}
	ownerLink, err := f.store.Get(ctx, links, ownerID)
	if err != nil {
		t.Fatalf("owner link: %v", err)
	}
	if ownerLink["role"] != "owner" {
		t.Fatalf("owner link role = %v", ownerLink["role"])
	}
	memberLink, err := f.store.Get(ctx, links, result.Members[0].IdentityID)
	if err != nil {
		t.Fatalf("member link: %v", err)
	}
	if memberLink["role"] != "member" || memberLink["displayName"] != "Member 0000" {
		t.Fatalf("member link = %v", memberLink)
	}
}

func TestImportChunksMemberLinkBatches(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result := f.importer.Import(context.Background(), makeBundle(1200), defaultOptions())
	if !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}

	// 1200 member links plus the owner link, committed in ceiling-sized chunks.
	require.Equal(t, []int{500, 500, 201}, f.store.BatchSizes())
}

func TestReimportDuplicatePolicy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first := f.importer.Import(ctx, makeBundle(3), defaultOptions())
	second := f.importer.Import(ctx, makeBundle(3), defaultOptions())
	if !first.Success || !second.Success {
		t.Fatalf("imports failed: %q / %q", first.Message, second.Message)
	}
	if first.CommunityID == second.CommunityID {
		t.Fatalf("duplicate policy reused community %s", first.CommunityID)
	}
	if got := f.store.Count(importer.CommunityCollection); got != 2 {
		t.Fatalf("communities = %d, want 2", got)
	}
	// Identities deduplicate across runs: 3 members + import owner, not 7.
	if got := f.store.Count(identity.Collection); got != 4 {
		t.Fatalf("identities = %d, want 4", got)
	}
	for _, mr := range second.Members {
		if mr.Created {
			t.Fatalf("second run created identity for %s", mr.SourceID)
		}
	}
}

func TestReimportUpdatePolicy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	opts := defaultOptions()
	opts.Policy = importer.PolicyUpdate

	first := f.importer.Import(ctx, makeBundle(2), opts)
	if !first.Success {
		t.Fatalf("first import failed: %s", first.Message)
	}

	renamed := makeBundle(2)
	renamed.Community.Name = "Night Owls Reborn"
	second := f.importer.Import(ctx, renamed, opts)
	if !second.Success {
		t.Fatalf("second import failed: %s", second.Message)
	}
	if second.CommunityID != first.CommunityID {
		t.Fatalf("update policy created new community %s, want %s", second.CommunityID, first.CommunityID)
	}
	if got := f.store.Count(importer.CommunityCollection); got != 1 {
		t.Fatalf("communities = %d, want 1", got)
	}
	doc, err := f.store.Get(ctx, importer.CommunityCollection, second.CommunityID)
	if err != nil {
		t.Fatalf("load community: %v", err)
	}
	if doc["name"] != "Night Owls Reborn" {
		t.Fatalf("name = %v, want updated", doc["name"])
	}
}

func TestImportSurfacesConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// A previously imported identity already owns one member's email but was
	// created from a different source user.
	if err := f.store.Create(ctx, identity.Collection, "prior", docstore.Document{
		"externalId": "someone-else",
		"email":      "src-u0000@example.com",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result := f.importer.Import(ctx, makeBundle(2), defaultOptions())
	if !result.Success {
		t.Fatalf("import failed: %s", result.Message)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want 1", result.Conflicts)
	}
	var conflicted *importer.MemberResult
	for i := range result.Members {
		if result.Members[i].SourceID == "src-u0000" {
			conflicted = &result.Members[i]
		}
	}
	if conflicted == nil || conflicted.IdentityID != "prior" || conflicted.Conflict == "" {
		t.Fatalf("conflicted member = %+v", conflicted)
	}
}

func TestImportRejectsInvalidBundle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if result := f.importer.Import(ctx, nil, defaultOptions()); result.Success {
		t.Fatalf("nil bundle accepted")
	}

	b := makeBundle(2)
	b.Members[1].ID = b.Members[0].ID
	result := f.importer.Import(ctx, b, defaultOptions())
	if result.Success || !strings.Contains(result.Message, "invalid bundle") {
		t.Fatalf("result = %+v", result)
	}
	if got := f.store.Count(importer.CommunityCollection); got != 0 {
		t.Fatalf("invalid bundle wrote %d communities", got)
	}
}

// failingStore refuses identity creation to simulate a target-store outage.
type failingStore struct {
	*docstore.MemoryStore
}

func (s *failingStore) Create(ctx context.Context, collection, id string, data docstore.Document) error {
	if collection == identity.Collection {
		return errors.New("deadline exceeded")
	}
	return s.MemoryStore.Create(ctx, collection, id, data)
}

func TestImportReportsMemberFailure(t *testing.T) {
	t.Parallel()
	store := &failingStore{MemoryStore: docstore.NewMemoryStore()}
	provider := accounts.NewMemoryProvider()
	migrator := media.NewMigrator(nil, nil, "", "", "")
	reconciler := identity.NewReconciler(nil, store, provider, migrator)
	imp := importer.NewImporter(nil, store, reconciler, migrator)

	result := imp.Import(context.Background(), makeBundle(2), defaultOptions())
	if result.Success {
		t.Fatalf("import succeeded despite store failure")
	}
	if !strings.Contains(result.Message, "reconcile") {
		t.Fatalf("message = %q", result.Message)
	}
	if store.Count(importer.CommunityCollection) != 0 {
		t.Fatalf("community written despite member failure")
	}
}

func TestImportCanceled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.importer.Import(ctx, makeBundle(1), defaultOptions())
	if result.Success {
		t.Fatalf("canceled import reported success")
	}
}
