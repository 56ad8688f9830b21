package core

// parse.go turns an inbound byte payload into raw record sets.
//
// Three shapes are accepted: CSV, XLSX workbooks (legacy systems rarely
// export plain CSV) and JSON, either a flat array of objects or a full
// snapshot envelope. The shape is sniffed from the bytes; a ParseError here
// aborts the batch before any record is processed.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// recordSet is one homogeneous run of records bound for a single entity
// kind. A tabular payload yields exactly one set; a snapshot yields one per
// included kind, ordered so parents precede the children that reference
// them.
type recordSet struct {
	Kind    EntityKind
	Headers []string
	Records []RawRecord
	// FirstRow is the 1-based input position of the first record, used to
	// report row numbers the user can find in their file.
	FirstRow int
}

var xlsxMagic = []byte("PK\x03\x04")

// parsePayload sniffs and parses the payload. For tabular payloads the
// returned set's Kind is the detected one unless an explicit kind was
// given; detection failure with no explicit kind is an error.
func parsePayload(payload []byte, opts ImportOptions) ([]recordSet, error) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &ParseError{Format: "empty", Err: fmt.Errorf("payload is empty")}
	}

	switch {
	case trimmed[0] == '{' || trimmed[0] == '[':
		return parseJSON(trimmed, opts)
	case bytes.HasPrefix(payload, xlsxMagic):
		rows, err := parseXLSX(payload)
		if err != nil {
			return nil, &ParseError{Format: "xlsx", Err: err}
		}
		return tableToSets(rows, opts)
	default:
		rows, err := parseCSV(sanitizeUTF8(payload))
		if err != nil {
			return nil, &ParseError{Format: "csv", Err: err}
		}
		return tableToSets(rows, opts)
	}
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// tableToSets builds the single record set of a tabular payload. The first
// non-empty row is the header.
func tableToSets(rows [][]string, opts ImportOptions) ([]recordSet, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, &ParseError{Format: "table", Err: fmt.Errorf("no header row found")}
	}

	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = CleanCell(h)
	}

	kind := opts.Kind
	if kind == KindUnknown {
		kind = DetectKind(headers)
		if kind == KindUnknown {
			return nil, ErrUnknownKind
		}
	}

	set := recordSet{Kind: kind, Headers: headers, FirstRow: headerIdx + 2}
	for _, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		raw := make(RawRecord, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				raw[h] = row[i]
			} else {
				raw[h] = ""
			}
		}
		set.Records = append(set.Records, raw)
	}
	return []recordSet{set}, nil
}

// parseJSON handles both a flat array of objects and a snapshot envelope.
func parseJSON(data []byte, opts ImportOptions) ([]recordSet, error) {
	if data[0] == '[' {
		var objs []map[string]any
		if err := json.Unmarshal(data, &objs); err != nil {
			return nil, &ParseError{Format: "json", Err: err}
		}
		return objectsToSets(objs, opts)
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ParseError{Format: "json", Err: err}
	}
	if envelope.Data != nil {
		return snapshotToSets(envelope.Data, opts)
	}

	// Single bare object: treat as a one-record array.
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ParseError{Format: "json", Err: err}
	}
	return objectsToSets([]map[string]any{obj}, opts)
}

func objectsToSets(objs []map[string]any, opts ImportOptions) ([]recordSet, error) {
	if len(objs) == 0 {
		return nil, &ParseError{Format: "json", Err: fmt.Errorf("no records in payload")}
	}

	kind := opts.Kind
	if kind == KindUnknown {
		keys := make([]string, 0, len(objs[0]))
		for k := range objs[0] {
			keys = append(keys, k)
		}
		kind = DetectKind(keys)
		if kind == KindUnknown {
			return nil, ErrUnknownKind
		}
	}

	set := recordSet{Kind: kind, FirstRow: 1}
	for _, obj := range objs {
		set.Records = append(set.Records, objectToRaw(obj))
	}
	return []recordSet{set}, nil
}

// snapshotToSets expands a snapshot's entity arrays, honoring the
// inclusion flags and emitting kinds in dependency order (contacts before
// orders, orders before their items). Items nested under an order are
// lifted into an order_items set carrying the parent's order number, so a
// re-imported snapshot reconnects children to parents by natural key.
func snapshotToSets(data map[string]json.RawMessage, opts ImportOptions) ([]recordSet, error) {
	include := func(kind EntityKind) bool {
		if opts.Include == nil {
			return true
		}
		return opts.Include[kind]
	}

	var sets []recordSet
	var liftedItems []RawRecord

	for _, kind := range []EntityKind{KindContacts, KindOrders, KindQuotes, KindOrderItems, KindTasks, KindEnquiries} {
		raw, ok := data[string(kind)]
		if !ok || !include(kind) {
			continue
		}
		var objs []map[string]any
		if err := json.Unmarshal(raw, &objs); err != nil {
			return nil, &ParseError{Format: "json", Err: fmt.Errorf("entity %s: %w", kind, err)}
		}

		set := recordSet{Kind: kind, FirstRow: 1}
		for _, obj := range objs {
			if kind == KindOrders {
				liftedItems = append(liftedItems, liftNestedItems(obj)...)
			}
			set.Records = append(set.Records, objectToRaw(obj))
		}
		if kind == KindOrderItems {
			set.Records = append(set.Records, liftedItems...)
			liftedItems = nil
		}
		sets = append(sets, set)
	}

	// Snapshot had no order_items array but orders carried nested items.
	if len(liftedItems) > 0 && include(KindOrderItems) {
		sets = append(sets, recordSet{Kind: KindOrderItems, FirstRow: 1, Records: liftedItems})
	}
	if len(sets) == 0 {
		return nil, &ParseError{Format: "json", Err: fmt.Errorf("snapshot contains no importable entities")}
	}
	return sets, nil
}

// liftNestedItems extracts an order's nested items array, stamping each
// with the parent's order number for reference resolution.
func liftNestedItems(order map[string]any) []RawRecord {
	items, ok := order["items"].([]any)
	if !ok {
		return nil
	}
	orderNumber := stringifyJSON(order["order_number"])

	var out []RawRecord
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		raw := objectToRaw(obj)
		if raw["order_number"] == "" {
			raw["order_number"] = orderNumber
		}
		out = append(out, raw)
	}
	return out
}

func objectToRaw(obj map[string]any) RawRecord {
	raw := make(RawRecord, len(obj))
	for k, v := range obj {
		if _, isArray := v.([]any); isArray {
			continue // nested collections are lifted separately
		}
		raw[k] = stringifyJSON(v)
	}
	return raw
}

// stringifyJSON renders a decoded JSON scalar the way the normalizer
// expects to see it in a cell.
func stringifyJSON(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
