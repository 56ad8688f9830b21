// Package core implements the import/export and reconciliation engine for
// bakery business data. It ingests tabular or JSON exports from legacy
// systems, reconciles them against the live schema, and produces outbound
// exports. The package has no HTTP dependencies and is driven by the web
// handlers and the CLI.
package core

import (
	"context"
	"time"
)

// Row is a single result row from the storage collaborator,
// keyed by column name.
type Row map[string]any

// Querier is the narrow query contract consumed by the engine.
// Satisfied by both store connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// Tx is a storage transaction.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the storage collaborator contract. The engine never builds SQL
// from user input; all lookups and inserts use bound parameters.
type Store interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	// IntrospectColumns returns the set of columns actually present on a
	// table. Fetched once per batch, never cached across batches.
	IntrospectColumns(ctx context.Context, table string) (SchemaShape, error)
}

// SchemaShape is the set of column names present on a target table at the
// time of introspection. Writes are built only from columns in the shape so
// that schema drift never breaks an import.
type SchemaShape map[string]bool

// Has reports whether the column exists in the live schema.
func (s SchemaShape) Has(col string) bool { return s[col] }

// EntityKind identifies a target entity for import or export.
type EntityKind string

const (
	KindOrders     EntityKind = "orders"
	KindQuotes     EntityKind = "quotes"
	KindOrderItems EntityKind = "order_items"
	KindContacts   EntityKind = "contacts"
	KindTasks      EntityKind = "tasks"
	KindEnquiries  EntityKind = "enquiries"
	KindUnknown    EntityKind = ""
)

// FieldType is the expected data type of a canonical field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldMoney
	FieldSmallInt
	FieldDate
	FieldBool
)

// FieldSpec defines one canonical field of an entity kind. Name doubles as
// the database column name. Aliases list the accepted source spellings in
// priority order; the canonical name itself is always accepted.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Type     FieldType
	Required bool
	// Enum selects a legacy mapping table applied when importing from a
	// foreign system: "event_type", "order_status" or "enquiry_status".
	Enum string
}

// ChildSpec describes a nested child collection attached during snapshot
// export (e.g. items under an order). Children are fetched in a single
// grouped query per batch of parents, never one query per parent.
type ChildSpec struct {
	Table     string
	ParentKey string
	JSONKey   string
	Columns   []string
}

// PrepareFunc converts a normalized record into an insert row, resolving
// cross-entity references through the batch resolver.
type PrepareFunc func(ctx context.Context, rec CanonicalRecord, rz *Resolver) (Row, error)

// DedupFunc reports whether an equivalent record already exists. Used by
// kinds without a strict natural key, where matching is best-effort.
type DedupFunc func(ctx context.Context, rec CanonicalRecord, rz *Resolver) (bool, error)

// EntityDefinition contains everything the engine needs to import and
// export one entity kind.
type EntityDefinition struct {
	Kind       EntityKind
	Table      string
	Label      string
	NaturalKey string   // canonical field used for duplicate detection, "" = none
	Signature  []string // canonical fields whose presence identifies this kind
	Fields     []FieldSpec
	Header     []string // export column headers, also accepted as aliases
	Child      *ChildSpec
	Prepare    PrepareFunc
	Dedup      DedupFunc
	// ExportSQL overrides the generated export query for kinds whose
	// canonical fields span joined tables. It must return one output
	// column per canonical field name, plus id, and take the user
	// identifier as $1.
	ExportSQL string
}

// RawRecord is one input row as produced by the table or JSON parser.
// Keys carry whatever naming convention the source used. Discarded after
// normalization.
type RawRecord map[string]string

// CanonicalRecord maps canonical field names to sanitized values for
// exactly one entity kind. Values are string (text, money-as-text, dates in
// DateLayout), int (bounded integers) or bool.
type CanonicalRecord map[string]any

// Str returns the field as a string, or "" when absent or non-string.
func (r CanonicalRecord) Str(field string) string {
	s, _ := r[field].(string)
	return s
}

// DateLayout is the canonical date format used on both the import and the
// export side, so that export→import round-trips.
const DateLayout = "2006-01-02"

// Warning is a structured note about a best-effort fallback the engine
// applied instead of failing a record (unparsable date → now, bad number →
// zero). Fallbacks are deliberate policy and must never be silent.
type Warning struct {
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OutcomeStatus classifies the result of processing one record.
type OutcomeStatus string

const (
	OutcomeImported OutcomeStatus = "imported"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// ImportOutcome is the per-record result, in input order.
type ImportOutcome struct {
	Row    int           `json:"row"`
	Kind   EntityKind    `json:"kind"`
	Status OutcomeStatus `json:"status"`
	ID     int64         `json:"id,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// ImportResult aggregates one batch. Per-record failures appear in Outcomes
// and Errors; they never abort the batch. A batch-level failure (parse or
// infrastructure error) is returned as an error alongside a nil result.
type ImportResult struct {
	BatchID      string          `json:"batchId"`
	SourceSystem string          `json:"sourceSystem,omitempty"`
	Processed    int             `json:"processedRows"`
	Skipped      int             `json:"skippedRows"`
	Failed       int             `json:"failedRows"`
	Outcomes     []ImportOutcome `json:"outcomes"`
	Errors       []string        `json:"errors"`
	Warnings     []Warning       `json:"warnings"`
	Duration     time.Duration   `json:"-"`
}

// ImportOptions controls one import batch.
type ImportOptions struct {
	// Kind is the target entity kind. KindUnknown requests auto-detection
	// from the payload headers.
	Kind EntityKind
	// SourceSystem, when non-empty, routes enum values through the legacy
	// format adapter and tags the result.
	SourceSystem string
	// UserID scopes every lookup and write.
	UserID int64
	// Include restricts which entity kinds of a snapshot payload are
	// imported. Nil imports all kinds present.
	Include map[EntityKind]bool
}

// SnapshotEnvelope is the full JSON export payload.
type SnapshotEnvelope struct {
	Success      bool             `json:"success"`
	Data         map[string][]Row `json:"data"`
	ExportDate   string           `json:"exportDate"`
	Version      string           `json:"version"`
	SourceSystem string           `json:"sourceSystem"`
}

// SnapshotVersion is the version tag stamped on snapshot exports.
const SnapshotVersion = "1.0"

// SourceSystemName identifies this system in export envelopes.
const SourceSystemName = "bakeledger"
