// Package entities registers the declarative definitions of every entity
// kind the engine can import and export. Adding support for a new record
// shape means adding a definition here; the coordinator never changes.
package entities

import (
	"strings"

	"github.com/bakeledger/dataport/internal/core"
)

func init() {
	registerOrders()
	registerOrderItems()
	registerQuotes()
	registerContacts()
	registerTasks()
	registerEnquiries()

	// Most specific signature first: order items and orders both carry an
	// order-number column, so items must be checked before orders.
	core.SetDetectionOrder(core.KindOrderItems, core.KindQuotes, core.KindOrders, core.KindEnquiries, core.KindTasks, core.KindContacts)
}

// splitName breaks a single display name into first and last parts.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// contactHints pulls the contact-identifying fields a record may carry.
// Explicit first/last names win over a combined display name.
func contactHints(rec core.CanonicalRecord) (first, last, email, phone string) {
	email = rec.Str("email")
	phone = rec.Str("phone")
	first = rec.Str("first_name")
	last = rec.Str("last_name")
	if first == "" && last == "" {
		first, last = splitName(rec.Str("customer_name"))
	}
	return first, last, email, phone
}

// hasContactHints reports whether the record identifies a contact at all.
func hasContactHints(rec core.CanonicalRecord) bool {
	first, last, email, phone := contactHints(rec)
	return first != "" || last != "" || email != "" || phone != ""
}
