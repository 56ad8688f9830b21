package core

import (
	"fmt"
	"sync"
)

var (
	registry      = make(map[EntityKind]EntityDefinition)
	registryMu    sync.RWMutex
	detectOrder   []EntityKind
	detectOrderMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if a kind is registered twice.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Kind))
	}

	registry[def.Kind] = def
}

// SetDetectionOrder fixes the order in which signatures are checked during
// format detection. Detection is order-sensitive: the most specific
// signature must come first so a looser one cannot mask it (order items and
// orders both carry an order-number column).
func SetDetectionOrder(kinds ...EntityKind) {
	detectOrderMu.Lock()
	defer detectOrderMu.Unlock()
	detectOrder = kinds
}

// Definition returns the entity definition for a kind.
func Definition(kind EntityKind) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// Kinds returns every registered kind in detection order first, then the
// remainder in registration-independent sorted order.
func Kinds() []EntityKind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	detectOrderMu.RLock()
	defer detectOrderMu.RUnlock()

	seen := make(map[EntityKind]bool, len(registry))
	out := make([]EntityKind, 0, len(registry))
	for _, k := range detectOrder {
		if _, ok := registry[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	// Stable order for the rest.
	for _, k := range []EntityKind{KindOrders, KindQuotes, KindOrderItems, KindContacts, KindTasks, KindEnquiries} {
		if _, ok := registry[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	return out
}

// ParseKind maps an external kind name (URL segment, CLI flag, snapshot
// key) onto a registered EntityKind.
func ParseKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case KindOrders, KindQuotes, KindOrderItems, KindContacts, KindTasks, KindEnquiries:
		return EntityKind(s), true
	}
	// Friendly singular/camel variants used by older clients.
	switch s {
	case "order":
		return KindOrders, true
	case "quote":
		return KindQuotes, true
	case "orderItems", "order-items", "items":
		return KindOrderItems, true
	case "contact":
		return KindContacts, true
	case "task":
		return KindTasks, true
	case "enquiry", "inquiries":
		return KindEnquiries, true
	}
	return KindUnknown, false
}
