package handlers_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loreline/loreline/internal/accounts"
	"github.com/loreline/loreline/internal/bundle"
	"github.com/loreline/loreline/internal/config"
	"github.com/loreline/loreline/internal/docstore"
	"github.com/loreline/loreline/internal/export"
	"github.com/loreline/loreline/internal/handlers"
	"github.com/loreline/loreline/internal/identity"
	"github.com/loreline/loreline/internal/importer"
	"github.com/loreline/loreline/internal/media"
	"github.com/loreline/loreline/internal/sourcestore"
)

type staticSource struct {
	community sourcestore.Community
	users     map[string]sourcestore.User
}

func (s *staticSource) Community(ctx context.Context, id string) (sourcestore.Community, error) {
	if id != s.community.ID {
		return sourcestore.Community{}, sourcestore.ErrNotFound
	}
	return s.community, nil
}

func (s *staticSource) UsersByIDs(ctx context.Context, ids []string) ([]sourcestore.User, error) {
	var out []sourcestore.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *staticSource) ChannelForMember(ctx context.Context, communityID, userID string) (*sourcestore.Channel, error) {
	return nil, nil
}

func (s *staticSource) MessagesForChannel(ctx context.Context, channelID, textFilter string) ([]sourcestore.Message, error) {
	return nil, nil
}

func newMigrationServer(t *testing.T) (*echo.Echo, *docstore.MemoryStore) {
	t.Helper()
	source := &staticSource{
		community: sourcestore.Community{
			ID:      "c1",
			Name:    "Night Owls",
			OwnerID: "owner",
			UserIDs: []string{"u1"},
		},
		users: map[string]sourcestore.User{
			"u1":    {ID: "u1", FirstName: "Ada", Email: "ada@example.com"},
			"owner": {ID: "owner", FirstName: "Olive", Email: "olive@example.com"},
		},
	}
	store := docstore.NewMemoryStore()
	migrator := media.NewMigrator(nil, nil, "", "", "")
	reconciler := identity.NewReconciler(nil, store, accounts.NewMemoryProvider(), migrator)
	importCfg := config.ImportConfig{
		OwnerEmail: "imports@loreline.app",
		OwnerName:  "Import Owner",
		Workers:    2,
	}
	handler := handlers.NewMigrationHandler(
		slog.Default(),
		export.NewExporter(nil, source, store),
		importer.NewImporter(nil, store, reconciler, migrator),
		importCfg,
	)
	e := echo.New()
	handler.Register(e)
	return e, store
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()
	e, _ := newMigrationServer(t)

	req := httptest.NewRequest(http.MethodPost, "/migration/communities/c1/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var b bundle.ExportBundle
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Community.ID != "c1" || len(b.Members) != 2 {
		t.Fatalf("bundle = %+v", b)
	}
}

func TestExportEndpointNotFound(t *testing.T) {
	t.Parallel()
	e, _ := newMigrationServer(t)

	req := httptest.NewRequest(http.MethodPost, "/migration/communities/nope/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	t.Parallel()
	e, store := newMigrationServer(t)

	b := bundle.ExportBundle{
		Community: bundle.Community{ID: "src-c1", Name: "Night Owls"},
		Members: []bundle.Member{
			{ID: "src-u1", Email: "ada@example.com", CreatedAt: time.Now().UTC()},
		},
	}
	body, err := json.Marshal(handlers.ImportRequest{Bundle: &b})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/migration/import", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result importer.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.CommunityID == "" {
		t.Fatalf("result = %+v", result)
	}
	if got := store.Count(importer.CommunityCollection); got != 1 {
		t.Fatalf("communities = %d", got)
	}
}

func TestImportEndpointRequiresBundle(t *testing.T) {
	t.Parallel()
	e, _ := newMigrationServer(t)

	req := httptest.NewRequest(http.MethodPost, "/migration/import", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
