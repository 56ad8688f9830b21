package core

// normalize.go maps arbitrarily named input columns onto canonical fields.
//
// Source systems disagree on naming ("Order Number", order_number,
// orderNumber, "Order #"). Matching is done on a folded form of the header
// (lowercase, separators stripped), so the alias lists only need to carry
// genuinely different spellings, not casing variants.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// foldKey lowercases a header and strips whitespace, underscores and
// hyphens so naming-convention variants collapse to one lookup key.
func foldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// foldRecord indexes a raw record by folded key. When two source keys fold
// to the same name, a non-empty value wins over an empty one; map iteration
// has no occurrence order to prefer.
func foldRecord(raw RawRecord) map[string]string {
	folded := make(map[string]string, len(raw))
	for k, v := range raw {
		fk := foldKey(k)
		if _, exists := folded[fk]; !exists || folded[fk] == "" {
			folded[fk] = CleanCell(v)
		}
	}
	return folded
}

// lookupField returns the first alias of spec present in the folded record
// with a non-empty value.
func lookupField(folded map[string]string, spec FieldSpec, extra []string) (string, bool) {
	if v := folded[foldKey(spec.Name)]; v != "" {
		return v, true
	}
	for _, alias := range spec.Aliases {
		if v := folded[foldKey(alias)]; v != "" {
			return v, true
		}
	}
	for _, alias := range extra {
		if v := folded[foldKey(alias)]; v != "" {
			return v, true
		}
	}
	return "", false
}

// Normalize maps a raw record onto the canonical fields of an entity kind
// and sanitizes each value by its declared type. A missing required field
// fails this record only; optional fields default to neutral values (empty
// string, "0.00", zero, false). Date and money fallbacks are reported as
// warnings, never applied silently.
func (s *Service) Normalize(def EntityDefinition, raw RawRecord) (CanonicalRecord, []Warning, error) {
	folded := foldRecord(raw)
	rec := make(CanonicalRecord, len(def.Fields))
	var warns []Warning

	for _, spec := range def.Fields {
		v, present := lookupField(folded, spec, s.extraAliases(def.Kind, spec.Name))
		if !present {
			if spec.Required {
				return nil, warns, &MissingFieldError{Field: spec.Name}
			}
			rec[spec.Name] = neutralValue(spec.Type)
			continue
		}

		switch spec.Type {
		case FieldMoney:
			amount, warned := CleanMoney(v)
			rec[spec.Name] = amount
			if warned {
				warns = append(warns, Warning{
					Field:   spec.Name,
					Message: fmt.Sprintf("unparsable amount %q defaulted to 0.00", v),
				})
			}
		case FieldSmallInt:
			rec[spec.Name] = ClampSmallInt(v)
		case FieldDate:
			t, warned := ParseDate(v)
			rec[spec.Name] = t.Format(DateLayout)
			if warned {
				warns = append(warns, Warning{
					Field:   spec.Name,
					Message: fmt.Sprintf("unparsable date %q defaulted to today", v),
				})
			}
		case FieldBool:
			rec[spec.Name] = ParseBool(v)
		default:
			rec[spec.Name] = v
		}
	}

	return rec, warns, nil
}

// neutralValue is the documented default for an absent optional field.
func neutralValue(t FieldType) any {
	switch t {
	case FieldMoney:
		return "0.00"
	case FieldSmallInt:
		return 0
	case FieldBool:
		return false
	default:
		return ""
	}
}

// AliasOverlay is an operator-supplied extension of the built-in alias
// tables, keyed by entity kind then canonical field name. It lets a
// deployment accept a new source system's headers without a rebuild.
type AliasOverlay map[EntityKind]map[string][]string

// LoadAliasOverlay reads an overlay file in YAML form:
//
//	orders:
//	  order_number: ["Auftragsnummer", "Ref"]
//	contacts:
//	  email: ["E-Mail-Adresse"]
func LoadAliasOverlay(path string) (AliasOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias overlay: %w", err)
	}

	var overlay AliasOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse alias overlay: %w", err)
	}
	return overlay, nil
}

// extraAliases returns overlay aliases for one field, if any.
func (s *Service) extraAliases(kind EntityKind, field string) []string {
	if s == nil || s.overlay == nil {
		return nil
	}
	fields, ok := s.overlay[kind]
	if !ok {
		return nil
	}
	return fields[field]
}
