package core

// resolver.go finds or creates the entities an imported record depends on.
//
// Lookups and placeholder creates are idempotent within a batch through the
// ReferenceCache, and placeholder inserts are built from the batch's
// SchemaShape so a drifted table never rejects the write for referencing a
// column it no longer has.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReferenceCache maps natural keys to internal identifiers for the
// duration of one import batch. It guarantees at most one lookup-or-create
// per distinct key per batch and is discarded at batch end.
//
// Puts are journaled so a record's cache entries can be discarded together
// with its savepoint: an id created inside a rolled-back savepoint no longer
// exists in the store and must not be handed to later records.
type ReferenceCache struct {
	ids     map[string]int64
	journal []string
}

// NewReferenceCache creates an empty batch-scoped cache.
func NewReferenceCache() *ReferenceCache {
	return &ReferenceCache{ids: make(map[string]int64)}
}

func cacheKey(kind EntityKind, naturalKey string) string {
	return string(kind) + "\x00" + strings.ToLower(naturalKey)
}

func (c *ReferenceCache) get(kind EntityKind, key string) (int64, bool) {
	id, ok := c.ids[cacheKey(kind, key)]
	return id, ok
}

func (c *ReferenceCache) put(kind EntityKind, key string, id int64) {
	k := cacheKey(kind, key)
	if _, ok := c.ids[k]; !ok {
		c.journal = append(c.journal, k)
	}
	c.ids[k] = id
}

// mark returns the current journal position. A key maps to the same id for
// the whole batch, so discarding never has to restore an earlier value.
func (c *ReferenceCache) mark() int { return len(c.journal) }

// discardTo deletes every key put since the given mark.
func (c *ReferenceCache) discardTo(mark int) {
	for _, k := range c.journal[mark:] {
		delete(c.ids, k)
	}
	c.journal = c.journal[:mark]
}

// Resolver carries the batch-scoped state needed to resolve cross-entity
// references: the batch transaction, the reference cache and the
// introspected table shapes. Constructed fresh per batch and passed
// explicitly through the call chain.
type Resolver struct {
	q      Querier
	cache  *ReferenceCache
	shapes map[string]SchemaShape
	userID int64
}

func newResolver(q Querier, userID int64, shapes map[string]SchemaShape) *Resolver {
	return &Resolver{
		q:      q,
		cache:  NewReferenceCache(),
		shapes: shapes,
		userID: userID,
	}
}

// UserID returns the identifier every write in this batch is scoped to.
func (r *Resolver) UserID() int64 { return r.userID }

func (r *Resolver) shape(table string) SchemaShape {
	return r.shapes[table]
}

// ResolveContact finds or creates a contact. Matching is best-effort: by
// email when present, otherwise by first and last name. Contacts lack a
// stable natural key, so repeated imports of a file without emails may
// create duplicates; that looseness is the documented current behavior.
func (r *Resolver) ResolveContact(ctx context.Context, email, firstName, lastName, phone string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(firstName + " " + lastName))
	}

	if key != "" {
		if id, ok := r.cache.get(KindContacts, key); ok {
			return id, nil
		}
	}

	var rows []Row
	var err error
	if strings.TrimSpace(email) != "" {
		rows, err = r.q.Query(ctx,
			`SELECT id FROM contacts WHERE user_id = $1 AND lower(email) = lower($2) LIMIT 1`,
			r.userID, strings.TrimSpace(email))
	} else if strings.TrimSpace(firstName) != "" {
		rows, err = r.q.Query(ctx,
			`SELECT id FROM contacts WHERE user_id = $1 AND lower(first_name) = lower($2) AND lower(last_name) = lower($3) LIMIT 1`,
			r.userID, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	}
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		id, err := rowID(rows[0])
		if err != nil {
			return 0, err
		}
		if key != "" {
			r.cache.put(KindContacts, key, id)
		}
		return id, nil
	}

	name := strings.TrimSpace(firstName)
	if name == "" && key == "" {
		name = "Imported Contact"
	}
	id, err := r.createPlaceholder(ctx, "contacts", Row{
		"user_id":    r.userID,
		"first_name": name,
		"last_name":  strings.TrimSpace(lastName),
		"email":      strings.TrimSpace(email),
		"phone":      strings.TrimSpace(phone),
	})
	if err != nil {
		return 0, &ReferenceCreationError{Kind: KindContacts, Key: key, Err: err}
	}
	if key != "" {
		r.cache.put(KindContacts, key, id)
	}
	return id, nil
}

// ContactExistsByEmail reports whether a contact with this email already
// exists for the batch user, consulting the batch cache first so a contact
// imported earlier in the same batch is also seen.
func (r *Resolver) ContactExistsByEmail(ctx context.Context, email string) (bool, error) {
	if _, ok := r.cache.get(KindContacts, email); ok {
		return true, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT id FROM contacts WHERE user_id = $1 AND lower(email) = lower($2) LIMIT 1`,
		r.userID, strings.TrimSpace(email))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// ResolveOrder finds or creates the order an item row references. A missing
// order number gets a synthesized unique one so the placeholder still
// satisfies the natural-key lookup of later rows.
func (r *Resolver) ResolveOrder(ctx context.Context, orderNumber string) (int64, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		orderNumber = SynthesizeOrderNumber()
	}

	if id, ok := r.cache.get(KindOrders, orderNumber); ok {
		return id, nil
	}

	rows, err := r.q.Query(ctx,
		`SELECT id FROM orders WHERE user_id = $1 AND order_number = $2 LIMIT 1`,
		r.userID, orderNumber)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		id, err := rowID(rows[0])
		if err != nil {
			return 0, err
		}
		r.cache.put(KindOrders, orderNumber, id)
		return id, nil
	}

	id, err := r.createPlaceholder(ctx, "orders", Row{
		"user_id":      r.userID,
		"order_number": orderNumber,
		"status":       StatusEnquiry,
		"event_type":   EventOther,
		"event_date":   time.Now().Format(DateLayout),
		"total_amount": "0.00",
	})
	if err != nil {
		return 0, &ReferenceCreationError{Kind: KindOrders, Key: orderNumber, Err: err}
	}
	r.cache.put(KindOrders, orderNumber, id)
	return id, nil
}

// SynthesizeOrderNumber builds a unique order number from a timestamp plus
// a random suffix, used when a placeholder must be created without one.
func SynthesizeOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), strings.ToUpper(uuid.NewString()[:4]))
}

// createPlaceholder inserts a minimally populated row, keeping only the
// columns the live schema actually has.
func (r *Resolver) createPlaceholder(ctx context.Context, table string, values Row) (int64, error) {
	return insertReturningID(ctx, r.q, table, values, r.shape(table))
}

// insertReturningID builds a parameterized INSERT from the intersection of
// the desired values and the table's introspected shape. Table and column
// names come from the static registry and introspection, never from input.
func insertReturningID(ctx context.Context, q Querier, table string, values Row, shape SchemaShape) (int64, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		if shape != nil && !shape.Has(col) {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("no usable columns for table %s", table)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert into %s returned no id", table)
	}
	return rowID(rows[0])
}

// rowID extracts the id column from a result row across the integer widths
// different stores hand back.
func rowID(row Row) (int64, error) {
	switch v := row["id"].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected id type %T", row["id"])
	}
}
