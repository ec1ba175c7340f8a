/*
store.go - Persistence interface for report configurations

PURPOSE:
  Defines the interface between the reporting domain and the database.
  Implementations persist a configuration together with its child field and
  filter rows atomically.

CONTRACTUAL ORDERINGS:
  Get returns fields ordered by (sort_order ASC, id ASC) and filters by
  id ASC. Child ids are allocated in insertion order, so ascending id equals
  the order the client supplied the rows in. The compiler relies on these
  orderings; implementations must preserve them.

REPLACE SEMANTICS:
  Update rewrites a child set wholesale whenever it is supplied, even when
  empty. Partial merge would require stable child ids across the wire, which
  the data model does not guarantee.

IMPLEMENTATIONS:
  - store/sqlite: Production embedded store
  - reporting/store: In-memory store for tests

SEE ALSO:
  - types.go: ReportConfiguration and children
  - validate.go: Payload validation applied before any write
*/
package reporting

import "context"

// ConfigPatch is a partial update of a configuration's scalar fields plus
// optional wholesale replacement of the child sets. Nil pointers leave the
// existing value untouched; a non-nil (even empty) Fields or Filters slice
// replaces the entire child set.
type ConfigPatch struct {
	Name         *string
	Description  *string
	TargetEntity *string
	OutputFormat *OutputFormat
	Fields       *[]ReportField
	Filters      *[]ReportFilter
}

// ConfigStore persists report configurations with their children.
type ConfigStore interface {
	// Add persists a new configuration and its children in one transaction.
	// The store allocates the id and a single UTC timestamp used for both
	// CreatedAt and UpdatedAt. Returns ErrNameConflict on a name collision.
	Add(ctx context.Context, cfg ReportConfiguration) (ConfigID, error)

	// Get loads a configuration with its children in the contractual
	// orderings. Returns (nil, nil) when the id does not exist.
	Get(ctx context.Context, id ConfigID) (*ReportConfiguration, error)

	// List returns child-free summaries visible to the principal: rows the
	// principal owns, plus system reports when includeSystem is set.
	// Ordered by name ascending.
	List(ctx context.Context, p Principal, includeSystem bool) ([]ConfigSummary, error)

	// Update applies the patch in one transaction and returns the updated
	// configuration with children. Returns (nil, nil) when the id does not
	// exist and ErrNameConflict on a rename collision. Failure leaves the
	// prior state intact.
	Update(ctx context.Context, id ConfigID, patch ConfigPatch) (*ReportConfiguration, error)

	// Delete removes the configuration; children cascade. Idempotent:
	// deleting an absent id returns false, not an error.
	Delete(ctx context.Context, id ConfigID) (bool, error)
}
