package core_test

// An in-memory Store used by the importer and exporter tests. It emulates
// just enough SQL to serve the engine: parameterized inserts with
// RETURNING id, the resolver's lookup queries, and savepoint semantics.

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakeledger/dataport/internal/core"
)

// fakeShapes mirrors the application schema the migrations create.
var fakeShapes = map[string]core.SchemaShape{
	"contacts": {
		"id": true, "user_id": true, "first_name": true, "last_name": true,
		"email": true, "phone": true, "business_name": true, "notes": true,
	},
	"orders": {
		"id": true, "user_id": true, "contact_id": true, "order_number": true,
		"status": true, "event_type": true, "event_date": true, "delivery_date": true,
		"total_amount": true, "deposit_amount": true, "discount_percent": true, "notes": true,
	},
	"order_items": {
		"id": true, "order_id": true, "item_name": true, "quantity": true,
		"unit_price": true, "total_price": true, "notes": true,
	},
	"quotes": {
		"id": true, "user_id": true, "contact_id": true, "quote_number": true,
		"status": true, "event_type": true, "event_date": true, "expiry_date": true,
		"total_amount": true, "notes": true,
	},
	"tasks": {
		"id": true, "user_id": true, "title": true, "due_date": true,
		"completed": true, "notes": true,
	},
	"enquiries": {
		"id": true, "user_id": true, "contact_id": true, "status": true,
		"event_type": true, "event_date": true, "details": true,
	},
}

type fakeStore struct {
	tables map[string][]core.Row // committed rows per table
	nextID int64

	// queryFn, when set, intercepts direct (non-transactional) queries.
	// Export tests use it to serve canned result sets.
	queryFn func(sql string, args []any) ([]core.Row, error)

	// insertErr, when set, can reject a transactional insert. Importer
	// tests use it to fail a write after reference resolution has run.
	insertErr func(table string, row core.Row) error

	beginErr  error
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: map[string][]core.Row{}}
}

// seed inserts a committed row directly, bypassing the engine.
func (s *fakeStore) seed(table string, row core.Row) core.Row {
	s.nextID++
	r := core.Row{"id": s.nextID}
	for k, v := range row {
		r[k] = v
	}
	s.tables[table] = append(s.tables[table], r)
	return r
}

func (s *fakeStore) rows(table string) []core.Row { return s.tables[table] }

func (s *fakeStore) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Query(ctx context.Context, sql string, args ...any) ([]core.Row, error) {
	if s.queryFn != nil {
		return s.queryFn(sql, args)
	}
	return lookupRows(s.tables, sql, args)
}

func (s *fakeStore) Begin(ctx context.Context) (core.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	pending := make(map[string][]core.Row, len(s.tables))
	for table, rows := range s.tables {
		pending[table] = append([]core.Row(nil), rows...)
	}
	return &fakeTx{store: s, pending: pending, marks: map[string]map[string]int{}}, nil
}

func (s *fakeStore) IntrospectColumns(ctx context.Context, table string) (core.SchemaShape, error) {
	shape, ok := fakeShapes[table]
	if !ok {
		return nil, fmt.Errorf("table %s has no columns", table)
	}
	return shape, nil
}

type fakeTx struct {
	store     *fakeStore
	pending   map[string][]core.Row
	marks     map[string]map[string]int // savepoint name -> table -> row count
	committed bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	switch {
	case strings.HasPrefix(sql, "SAVEPOINT "):
		name := strings.TrimPrefix(sql, "SAVEPOINT ")
		// Mark every table, not just those with pending rows, so a
		// rollback also discards rows inserted into a fresh table.
		mark := make(map[string]int, len(fakeShapes))
		for table := range fakeShapes {
			mark[table] = len(t.pending[table])
		}
		t.marks[name] = mark
	case strings.HasPrefix(sql, "ROLLBACK TO SAVEPOINT "):
		name := strings.TrimPrefix(sql, "ROLLBACK TO SAVEPOINT ")
		mark, ok := t.marks[name]
		if !ok {
			return 0, fmt.Errorf("unknown savepoint %s", name)
		}
		for table, n := range mark {
			t.pending[table] = t.pending[table][:n]
		}
	case strings.HasPrefix(sql, "RELEASE SAVEPOINT "):
		delete(t.marks, strings.TrimPrefix(sql, "RELEASE SAVEPOINT "))
	}
	return 0, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) ([]core.Row, error) {
	if strings.HasPrefix(sql, "INSERT INTO ") {
		return t.insert(sql, args)
	}
	return lookupRows(t.pending, sql, args)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.tables = t.pending
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

// insert parses "INSERT INTO <table> (<cols>) VALUES (...) RETURNING id".
func (t *fakeTx) insert(sql string, args []any) ([]core.Row, error) {
	rest := strings.TrimPrefix(sql, "INSERT INTO ")
	open := strings.Index(rest, "(")
	closing := strings.Index(rest, ")")
	if open < 0 || closing < open {
		return nil, fmt.Errorf("unparsable insert: %s", sql)
	}

	table := strings.TrimSpace(rest[:open])
	cols := strings.Split(rest[open+1:closing], ",")
	if len(cols) != len(args) {
		return nil, fmt.Errorf("insert into %s: %d columns, %d args", table, len(cols), len(args))
	}

	t.store.nextID++
	row := core.Row{"id": t.store.nextID}
	for i, col := range cols {
		row[strings.TrimSpace(col)] = args[i]
	}
	if t.store.insertErr != nil {
		if err := t.store.insertErr(table, row); err != nil {
			return nil, err
		}
	}
	t.pending[table] = append(t.pending[table], row)
	return []core.Row{{"id": t.store.nextID}}, nil
}

// lookupRows serves the engine's SELECT patterns against in-memory tables.
func lookupRows(tables map[string][]core.Row, sql string, args []any) ([]core.Row, error) {
	match := func(table, column string, ci bool) []core.Row {
		want := fmt.Sprintf("%v", args[1])
		for _, row := range tables[table] {
			got := fmt.Sprintf("%v", row[column])
			if ci && strings.EqualFold(got, want) || !ci && got == want {
				if got == "" {
					continue
				}
				return []core.Row{{"id": row["id"]}}
			}
		}
		return nil
	}

	switch {
	case strings.Contains(sql, "lower(first_name)"):
		want1 := fmt.Sprintf("%v", args[1])
		want2 := fmt.Sprintf("%v", args[2])
		for _, row := range tables["contacts"] {
			if strings.EqualFold(fmt.Sprintf("%v", row["first_name"]), want1) &&
				strings.EqualFold(fmt.Sprintf("%v", row["last_name"]), want2) {
				return []core.Row{{"id": row["id"]}}, nil
			}
		}
		return nil, nil
	case strings.Contains(sql, "lower(email)"):
		return match("contacts", "email", true), nil
	case strings.Contains(sql, "order_number = $2"):
		return match("orders", "order_number", false), nil
	case strings.Contains(sql, "quote_number = $2"):
		return match("quotes", "quote_number", false), nil
	default:
		return nil, fmt.Errorf("fake store cannot serve query: %s", sql)
	}
}
