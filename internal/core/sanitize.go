package core

// sanitize.go normalizes raw text from legacy exports into typed values.
//
// The cleaners are total: bad input degrades to a safe default (zero money,
// clamped percent, today's date) instead of failing the record. Every such
// fallback is reported through a Warning so the caller can surface it.

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9.\-]`)

// CleanMoney strips everything outside [0-9.-] and formats the remainder to
// exactly two fraction digits. Money is stored as decimal text, not floating
// point, to avoid rounding drift; unparsable input yields "0.00".
// The output always matches `-?\d+\.\d{2}`.
func CleanMoney(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	cleaned := nonNumericRegex.ReplaceAllString(trimmed, "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		// Empty input is a neutral default, not a data loss.
		return "0.00", trimmed != ""
	}
	return strconv.FormatFloat(f, 'f', 2, 64), false
}

// ClampSmallInt strips non-numeric characters, floors to an integer and
// clamps into [0, 99]. The clamp matches the two-digit numeric columns on
// the storage side (quantities, discount percents) and saturates
// silently rather than erroring.
func ClampSmallInt(s string) int {
	cleaned := nonNumericRegex.ReplaceAllString(strings.TrimSpace(s), "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	n := int(math.Floor(f))
	if n < 0 {
		return 0
	}
	if n > 99 {
		return 99
	}
	return n
}

// usSlashLayouts are tried after ISO forms. Both zero-padded and bare
// month/day variants appear in the wild.
var usSlashLayouts = []string{"01/02/2006", "1/2/2006"}

// longLayouts cover the textual "2 January 2006" family.
var longLayouts = []string{"2 January 2006", "2 Jan 2006", "January 2, 2006"}

// ParseDate accepts three input shapes in priority order: ISO year-first,
// US slash form, and long textual form. Parsing is total: on exhaustion it
// falls back to the current date and reports warned=true so the coordinator
// can record a structured warning instead of silently losing information.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), true
	}

	// ISO-like: anything with a dash in year-first position. Accept a full
	// timestamp prefix as well, since JSON exports often carry one.
	if i := strings.Index(s, "-"); i == 4 {
		for _, layout := range []string{DateLayout, "2006-1-2", time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, false
			}
		}
		if len(s) >= 10 {
			if t, err := time.Parse(DateLayout, s[:10]); err == nil {
				return t, false
			}
		}
	}

	for _, layout := range usSlashLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false
		}
	}

	for _, layout := range longLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false
		}
	}

	return time.Now(), true
}

// ParseBool accepts the usual textual representations. Empty or
// unrecognized input is false.
func ParseBool(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1", "done", "completed":
		return true
	default:
		return false
	}
}

// CleanCell removes common artifacts from a cell value: surrounding
// whitespace, Excel formula prefixes (="value") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the CSV reader never chokes on mis-encoded legacy exports.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
