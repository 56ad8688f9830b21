package entities

import (
	"context"
	"strings"

	"github.com/bakeledger/dataport/internal/core"
)

func registerContacts() {
	core.Register(core.EntityDefinition{
		Kind:      core.KindContacts,
		Table:     "contacts",
		Label:     "Contacts",
		Signature: []string{"first_name", "email"},
		// Contacts have no strict natural key. Matching is best-effort by
		// email; files without emails can create duplicates on re-import.
		Fields: []core.FieldSpec{
			{Name: "first_name", Required: true, Aliases: []string{"First Name", "Name", "Contact Name", "Customer Name", "Forename", "firstName"}},
			{Name: "last_name", Aliases: []string{"Last Name", "Surname", "Family Name", "lastName"}},
			{Name: "email", Aliases: []string{"Email", "Email Address", "E-mail", "Mail"}},
			{Name: "phone", Aliases: []string{"Phone", "Phone Number", "Mobile", "Telephone", "Cell"}},
			{Name: "business_name", Aliases: []string{"Business Name", "Company", "Business", "Organisation", "Organization"}},
			{Name: "notes", Aliases: []string{"Notes", "Comments", "Details"}},
		},
		Header:  []string{"First Name", "Last Name", "Email", "Phone", "Business Name", "Notes"},
		Prepare: prepareContact,
		Dedup:   dedupContact,
	})
}

func prepareContact(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	first := rec.Str("first_name")
	last := rec.Str("last_name")
	if last == "" && strings.Contains(first, " ") {
		// A combined display name landed in the first-name column.
		first, last = splitName(first)
	}

	return core.Row{
		"user_id":       rz.UserID(),
		"first_name":    first,
		"last_name":     last,
		"email":         rec.Str("email"),
		"phone":         rec.Str("phone"),
		"business_name": rec.Str("business_name"),
		"notes":         rec.Str("notes"),
	}, nil
}

// dedupContact matches by email only. Rows without an email are never
// matched and will duplicate across repeated imports; stricter name-based
// matching was deliberately not added because the legacy behavior is
// ambiguous about it.
func dedupContact(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (bool, error) {
	email := strings.TrimSpace(rec.Str("email"))
	if email == "" {
		return false, nil
	}
	return rz.ContactExistsByEmail(ctx, email)
}
