// Package importer performs the idempotency-aware batched import of an export
// bundle into the target store: owner substitution, member identity
// reconciliation over a bounded worker pool, media migration, and chunked
// member-link commits.
package importer

// ReimportPolicy decides what happens when the bundle's community was already
// imported once.
type ReimportPolicy string

const (
	// PolicyDuplicate always creates a fresh target community (reference
	// behavior). Identity reconciliation still deduplicates members.
	PolicyDuplicate ReimportPolicy = "duplicate"
	// PolicyUpdate matches an existing target community by its stored source
	// reference and merge-updates it instead of creating a duplicate.
	PolicyUpdate ReimportPolicy = "update"
)

// Options control one import run.
type Options struct {
	// OwnerEmail identifies the fixed import-owner identity substituted as the
	// owner of every imported community.
	OwnerEmail string
	// OwnerName is the display name used when the owner identity is first created.
	OwnerName string
	// Workers bounds the member reconciliation fan-out.
	Workers int
	// Policy selects re-import behavior; empty means PolicyDuplicate.
	Policy ReimportPolicy
}

// MemberResult is the outcome for a single bundle member.
type MemberResult struct {
	SourceID   string `json:"sourceId"`
	IdentityID string `json:"identityId,omitempty"`
	Created    bool   `json:"created"`
	Conflict   string `json:"conflict,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the structured outcome of an import run. Success/Message/
// CommunityID form the stable caller contract; Members and Conflicts add
// per-member detail.
type Result struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	CommunityID string         `json:"communityId,omitempty"`
	Members     []MemberResult `json:"members,omitempty"`
	Conflicts   []string       `json:"conflicts,omitempty"`
}
