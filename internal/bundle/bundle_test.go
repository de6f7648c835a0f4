package bundle_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/loreline/loreline/internal/bundle"
)

func sampleBundle() *bundle.ExportBundle {
	created := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	return &bundle.ExportBundle{
		Community: bundle.Community{
			ID:         "c1",
			Name:       "Night Owls",
			Slug:       "night-owls",
			OwnerID:    "u1",
			UserIDs:    []string{"u1", "u2"},
			Tags:       []string{"night", "owls"},
			Lore:       "We meet after midnight.",
			ProfileURL: "https://storage.example/legacy-media/communities/c1.jpg",
			Private:    true,
			CreatedAt:  created,
		},
		Members: []bundle.Member{
			{
				ID:        "u1",
				FirstName: "Ada",
				LastName:  "Lovelace",
				Email:     "ada@example.com",
				CreatedAt: created,
				Messages: []bundle.Message{
					{ID: "m1", ChannelID: "ch1", SenderID: "u1", SenderName: "Ada Lovelace", Text: "hello", CreatedAt: created},
				},
			},
			{
				ID:        "u2",
				Email:     "grace@example.com",
				CreatedAt: created,
				Messages:  []bundle.Message{},
			},
		},
	}
}

func TestBundleRoundTrip(t *testing.T) {
	t.Parallel()
	original := sampleBundle()

	var buf bytes.Buffer
	if err := bundle.Encode(&buf, original); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := bundle.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Community.ID != original.Community.ID {
		t.Errorf("community id = %q, want %q", decoded.Community.ID, original.Community.ID)
	}
	if decoded.Community.CreatedAt != original.Community.CreatedAt {
		t.Errorf("community createdAt = %v, want %v", decoded.Community.CreatedAt, original.Community.CreatedAt)
	}
	if len(decoded.Members) != len(original.Members) {
		t.Fatalf("member count = %d, want %d", len(decoded.Members), len(original.Members))
	}
	for i, member := range decoded.Members {
		want := original.Members[i]
		if member.ID != want.ID || member.Email != want.Email {
			t.Errorf("member %d = %+v, want %+v", i, member, want)
		}
		if len(member.Messages) != len(want.Messages) {
			t.Errorf("member %s message count = %d, want %d", member.ID, len(member.Messages), len(want.Messages))
		}
	}
	if got := decoded.Members[0].Messages[0]; got.Text != "hello" || got.CreatedAt != original.Members[0].Messages[0].CreatedAt {
		t.Errorf("message did not survive round trip: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*bundle.ExportBundle)
		wantErr bool
	}{
		{name: "valid", mutate: func(*bundle.ExportBundle) {}},
		{
			name:    "missing community id",
			mutate:  func(b *bundle.ExportBundle) { b.Community.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing community name",
			mutate:  func(b *bundle.ExportBundle) { b.Community.Name = " " },
			wantErr: true,
		},
		{
			name:    "duplicate member",
			mutate:  func(b *bundle.ExportBundle) { b.Members = append(b.Members, b.Members[0]) },
			wantErr: true,
		},
		{
			name:    "member without id",
			mutate:  func(b *bundle.ExportBundle) { b.Members[1].ID = "" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBundle()
			tt.mutate(b)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemberLookup(t *testing.T) {
	t.Parallel()
	b := sampleBundle()
	if _, ok := b.Member("u2"); !ok {
		t.Fatalf("expected member u2")
	}
	if _, ok := b.Member("missing"); ok {
		t.Fatalf("unexpected member match")
	}
}
