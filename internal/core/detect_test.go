package core_test

import (
	"testing"

	"github.com/bakeledger/dataport/internal/core"
	_ "github.com/bakeledger/dataport/internal/core/entities"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    core.EntityKind
	}{
		{
			name:    "orders",
			headers: []string{"Order Number", "Status", "Event Date", "Total Amount"},
			want:    core.KindOrders,
		},
		{
			name:    "orders snake case",
			headers: []string{"order_number", "status", "event_date"},
			want:    core.KindOrders,
		},
		{
			name:    "orders camel case",
			headers: []string{"orderNumber", "status", "eventDate"},
			want:    core.KindOrders,
		},
		// Items also carry an order number; the item signature must win.
		{
			name:    "order items",
			headers: []string{"Order Number", "Item Name", "Quantity", "Price"},
			want:    core.KindOrderItems,
		},
		{
			name:    "quotes",
			headers: []string{"Quote Number", "Status", "Event Date", "Total Amount"},
			want:    core.KindQuotes,
		},
		{
			name:    "enquiries",
			headers: []string{"Status", "Event Type", "Details", "Email"},
			want:    core.KindEnquiries,
		},
		{
			name:    "contacts",
			headers: []string{"First Name", "Last Name", "Email", "Phone"},
			want:    core.KindContacts,
		},
		{
			name:    "tasks",
			headers: []string{"Title", "Due Date", "Completed"},
			want:    core.KindTasks,
		},
		// Orders also carry customer columns; contacts must not mask them.
		{
			name:    "orders with contact columns",
			headers: []string{"Order Number", "Status", "Event Date", "Customer Name", "Email"},
			want:    core.KindOrders,
		},
		{
			name:    "headers with noise columns",
			headers: []string{"Internal Ref", "Order Number", "Status", "Event Date", "Created By"},
			want:    core.KindOrders,
		},
		{
			name:    "unrelated headers",
			headers: []string{"Animal", "Sound", "Legs"},
			want:    core.KindUnknown,
		},
		{
			name:    "partial signature",
			headers: []string{"Order Number"},
			want:    core.KindUnknown,
		},
		{
			name:    "empty",
			headers: nil,
			want:    core.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := core.DetectKind(tt.headers); got != tt.want {
				t.Errorf("DetectKind(%v) = %q, want %q", tt.headers, got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input  string
		want   core.EntityKind
		wantOK bool
	}{
		{"orders", core.KindOrders, true},
		{"order", core.KindOrders, true},
		{"order_items", core.KindOrderItems, true},
		{"order-items", core.KindOrderItems, true},
		{"quote", core.KindQuotes, true},
		{"contacts", core.KindContacts, true},
		{"enquiry", core.KindEnquiries, true},
		{"recipes", core.KindUnknown, false},
		{"", core.KindUnknown, false},
	}

	for _, tt := range tests {
		got, ok := core.ParseKind(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}
