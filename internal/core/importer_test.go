package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bakeledger/dataport/internal/core"
	_ "github.com/bakeledger/dataport/internal/core/entities"
)

const testUser int64 = 7

func importString(t *testing.T, store *fakeStore, payload string, opts core.ImportOptions) *core.ImportResult {
	t.Helper()
	if opts.UserID == 0 {
		opts.UserID = testUser
	}
	svc := core.NewService(store, nil)
	result, err := svc.ImportBatch(context.Background(), []byte(payload), opts)
	if err != nil {
		t.Fatalf("ImportBatch() error = %v", err)
	}
	return result
}

func TestImportOrdersCSV(t *testing.T) {
	store := newFakeStore()
	payload := "Order Number,Status,Event Type,Event Date,Total Amount,Customer Name,Email\n" +
		"ORD-001,Confirmed,Wedding,2024-09-01,£450.00,Jane Baker,jane@example.com\n" +
		"ORD-002,Enquiry,Birthday,2024-10-12,120,Sam Smith,sam@example.com\n"

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 2 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2 processed", result.Processed, result.Skipped, result.Failed)
	}

	orders := store.rows("orders")
	if len(orders) != 2 {
		t.Fatalf("got %d committed orders, want 2", len(orders))
	}
	if got := orders[0]["total_amount"]; got != "450.00" {
		t.Errorf("total_amount = %v, want %q", got, "450.00")
	}
	if got := orders[1]["total_amount"]; got != "120.00" {
		t.Errorf("total_amount = %v, want %q", got, "120.00")
	}
	if got := orders[0]["user_id"]; got != testUser {
		t.Errorf("user_id = %v, want %d", got, testUser)
	}

	// Customer columns resolve to auto-created contacts.
	contacts := store.rows("contacts")
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2 auto-created", len(contacts))
	}
	if orders[0]["contact_id"] != contacts[0]["id"] {
		t.Errorf("contact_id = %v, want %v", orders[0]["contact_id"], contacts[0]["id"])
	}
	if got := contacts[0]["first_name"]; got != "Jane" {
		t.Errorf("contact first_name = %v, want split %q", got, "Jane")
	}
	if got := contacts[0]["last_name"]; got != "Baker" {
		t.Errorf("contact last_name = %v, want split %q", got, "Baker")
	}
}

// A record that fails validation rolls back alone; the rest of the batch
// still commits. This is the documented partial-failure contract.
func TestImportContinuesPastFailedRecord(t *testing.T) {
	store := newFakeStore()
	payload := "Order Number,Status,Event Date\n" +
		"ORD-101,Confirmed,2024-09-01\n" +
		"ORD-102,Confirmed,2024-09-02\n" +
		",Confirmed,2024-09-03\n" + // missing required order number
		"ORD-104,Confirmed,2024-09-04\n" +
		"ORD-105,Confirmed,2024-09-05\n"

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 4 {
		t.Errorf("Processed = %d, want 4", result.Processed)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if len(store.rows("orders")) != 4 {
		t.Errorf("committed orders = %d, want 4 despite the failure", len(store.rows("orders")))
	}

	// The error names the row as the user counts it in their file.
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "row 4:") {
		t.Errorf("Errors = %v, want one error for row 4", result.Errors)
	}

	// Outcomes preserve input order.
	if len(result.Outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(result.Outcomes))
	}
	if result.Outcomes[2].Status != core.OutcomeFailed {
		t.Errorf("outcome 3 status = %q, want failed", result.Outcomes[2].Status)
	}
	if result.Outcomes[2].Row != 4 {
		t.Errorf("outcome 3 row = %d, want 4", result.Outcomes[2].Row)
	}
}

func TestImportDedupByNaturalKey(t *testing.T) {
	store := newFakeStore()
	store.seed("orders", core.Row{"user_id": testUser, "order_number": "ORD-201", "status": "Confirmed"})

	payload := "Order Number,Status,Event Date\n" +
		"ORD-201,Confirmed,2024-09-01\n" + // exists in the store
		"ORD-202,Confirmed,2024-09-02\n" +
		"ORD-202,Enquiry,2024-09-03\n" // duplicated within the batch

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 1 {
		t.Errorf("Processed = %d, want 1", result.Processed)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
	if len(store.rows("orders")) != 2 {
		t.Errorf("orders in store = %d, want 2 (1 seeded + 1 imported)", len(store.rows("orders")))
	}
}

// Re-importing the same file is idempotent for kinds with a natural key.
func TestImportReimportSkipsEverything(t *testing.T) {
	store := newFakeStore()
	payload := "Quote Number,Status,Event Date,Total Amount\n" +
		"Q-1,Quoted,2024-09-01,100\n" +
		"Q-2,Quoted,2024-09-02,200\n"

	first := importString(t, store, payload, core.ImportOptions{})
	if first.Processed != 2 {
		t.Fatalf("first import Processed = %d, want 2", first.Processed)
	}

	second := importString(t, store, payload, core.ImportOptions{})
	if second.Processed != 0 || second.Skipped != 2 {
		t.Errorf("second import = %d processed, %d skipped; want 0/2", second.Processed, second.Skipped)
	}
	if len(store.rows("quotes")) != 2 {
		t.Errorf("quotes in store = %d, want 2", len(store.rows("quotes")))
	}
}

// An order item referencing an unknown order gets a placeholder parent
// rather than failing.
func TestImportOrderItemCreatesPlaceholderOrder(t *testing.T) {
	store := newFakeStore()
	payload := "Order Number,Item Name,Quantity,Unit Price\n" +
		"ORD-999,Chocolate Fudge Cake,1,35.00\n" +
		"ORD-999,Cupcake Box,2,18.00\n"

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 2 {
		t.Fatalf("Processed = %d, want 2: %v", result.Processed, result.Errors)
	}

	orders := store.rows("orders")
	if len(orders) != 1 {
		t.Fatalf("got %d placeholder orders, want exactly 1 for both items", len(orders))
	}
	placeholder := orders[0]
	if got := placeholder["order_number"]; got != "ORD-999" {
		t.Errorf("placeholder order_number = %v, want ORD-999", got)
	}
	if got := placeholder["status"]; got != core.StatusEnquiry {
		t.Errorf("placeholder status = %v, want %q", got, core.StatusEnquiry)
	}
	if got := placeholder["total_amount"]; got != "0.00" {
		t.Errorf("placeholder total_amount = %v, want %q", got, "0.00")
	}

	for _, item := range store.rows("order_items") {
		if item["order_id"] != placeholder["id"] {
			t.Errorf("item order_id = %v, want placeholder id %v", item["order_id"], placeholder["id"])
		}
	}
}

// A record's savepoint rollback takes its placeholders with it, so the
// reference cache must not hand their ids to later records. The next row
// for the same natural key re-creates the parent and links to the live id.
func TestImportFailedRecordDiscardsItsPlaceholders(t *testing.T) {
	store := newFakeStore()
	failed := false
	store.insertErr = func(table string, row core.Row) error {
		if table == "order_items" && !failed {
			failed = true
			return errors.New("value too long for column item_name")
		}
		return nil
	}

	payload := "Order Number,Item Name,Quantity,Unit Price\n" +
		"ORD-999,An Item Name The Store Rejects,1,35.00\n" +
		"ORD-999,Cupcake Box,2,18.00\n"

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 1 || result.Failed != 1 {
		t.Fatalf("counts = %d processed, %d failed; want 1/1: %v",
			result.Processed, result.Failed, result.Errors)
	}

	orders := store.rows("orders")
	if len(orders) != 1 {
		t.Fatalf("got %d committed orders, want 1 re-created placeholder", len(orders))
	}
	if got := orders[0]["order_number"]; got != "ORD-999" {
		t.Errorf("placeholder order_number = %v, want ORD-999", got)
	}

	items := store.rows("order_items")
	if len(items) != 1 {
		t.Fatalf("got %d committed items, want 1 (the failed row leaves nothing behind)", len(items))
	}
	if items[0]["order_id"] != orders[0]["id"] {
		t.Errorf("item order_id = %v, want live placeholder id %v", items[0]["order_id"], orders[0]["id"])
	}
	if got := items[0]["item_name"]; got != "Cupcake Box" {
		t.Errorf("item_name = %v, want the surviving row", got)
	}
}

// Contacts dedup by email only. Without one, repeated imports duplicate;
// that looseness is intentional.
func TestImportContactsWeakDedup(t *testing.T) {
	store := newFakeStore()
	store.seed("contacts", core.Row{"user_id": testUser, "first_name": "Jane", "last_name": "Baker", "email": "jane@example.com"})

	payload := "First Name,Last Name,Email\n" +
		"Jane,Baker,jane@example.com\n" + // matched by email, skipped
		"Nora,Noemail,\n" +
		"Nora,Noemail,\n" // same person, no email: duplicates

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Processed != 2 {
		t.Errorf("Processed = %d, want 2 (no-email rows are never matched)", result.Processed)
	}
	if len(store.rows("contacts")) != 3 {
		t.Errorf("contacts in store = %d, want 3", len(store.rows("contacts")))
	}
}

func TestImportLegacySourceMapsEnums(t *testing.T) {
	store := newFakeStore()
	payload := "Order Number,Status,Event Type,Event Date\n" +
		"ORD-301,deposit paid,gender reveal,2024-09-01\n" +
		"ORD-302,picked up,office party,2024-09-02\n" +
		"ORD-303,some new status,quinceanera,2024-09-03\n"

	result := importString(t, store, payload, core.ImportOptions{SourceSystem: "cakeshop-v1"})

	if result.Processed != 3 {
		t.Fatalf("Processed = %d, want 3: %v", result.Processed, result.Errors)
	}
	if result.SourceSystem != "cakeshop-v1" {
		t.Errorf("SourceSystem = %q, want tagged", result.SourceSystem)
	}

	orders := store.rows("orders")
	want := []struct{ status, eventType string }{
		{core.StatusConfirmed, "Baby Shower"},
		{core.StatusCompleted, "Corporate"},
		{core.StatusEnquiry, core.EventOther}, // unknown values land in defaults
	}
	for i, w := range want {
		if got := orders[i]["status"]; got != w.status {
			t.Errorf("order %d status = %v, want %q", i, got, w.status)
		}
		if got := orders[i]["event_type"]; got != w.eventType {
			t.Errorf("order %d event_type = %v, want %q", i, got, w.eventType)
		}
	}
}

func TestImportDateFallbackWarns(t *testing.T) {
	store := newFakeStore()
	payload := "Order Number,Status,Event Date\n" +
		"ORD-401,Confirmed,sometime in june\n"

	result := importString(t, store, payload, core.ImportOptions{})

	if result.Processed != 1 {
		t.Fatalf("Processed = %d, want 1 (bad date must not fail the record)", result.Processed)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(result.Warnings), result.Warnings)
	}
	w := result.Warnings[0]
	if w.Field != "event_date" || w.Row != 2 {
		t.Errorf("warning = %+v, want event_date on row 2", w)
	}
}

func TestImportUnknownColumnLayout(t *testing.T) {
	store := newFakeStore()
	svc := core.NewService(store, nil)

	payload := []byte("Animal,Sound\nCow,Moo\n")
	_, err := svc.ImportBatch(context.Background(), payload, core.ImportOptions{UserID: testUser})
	if !errors.Is(err, core.ErrUnknownKind) {
		t.Errorf("error = %v, want ErrUnknownKind", err)
	}
	if len(store.rows("orders")) != 0 {
		t.Error("unknown payload must not write anything")
	}
}

// Infrastructure failures abort the whole batch with nothing committed.
func TestImportCommitFailureAbortsBatch(t *testing.T) {
	store := newFakeStore()
	store.commitErr = errors.New("connection reset")
	svc := core.NewService(store, nil)

	payload := []byte("Order Number,Status,Event Date\nORD-501,Confirmed,2024-09-01\n")
	_, err := svc.ImportBatch(context.Background(), payload, core.ImportOptions{UserID: testUser})
	if err == nil {
		t.Fatal("ImportBatch() = nil error, want commit failure")
	}
	if len(store.rows("orders")) != 0 {
		t.Error("failed commit must leave the store untouched")
	}
}

func TestImportExplicitKindOverridesDetection(t *testing.T) {
	store := newFakeStore()

	// Without a due-date column these headers detect as nothing, but the
	// caller knows what the file is.
	payload := "Title,Done\nOrder more flour,no\n"
	result := importString(t, store, payload, core.ImportOptions{Kind: core.KindTasks})

	if result.Processed != 1 {
		t.Fatalf("Processed = %d, want 1: %v", result.Processed, result.Errors)
	}
	task := store.rows("tasks")[0]
	if got := task["title"]; got != "Order more flour" {
		t.Errorf("title = %v", got)
	}
	if got := task["completed"]; got != false {
		t.Errorf("completed = %v, want false", got)
	}
}

func TestSynthesizeOrderNumber(t *testing.T) {
	a := core.SynthesizeOrderNumber()
	b := core.SynthesizeOrderNumber()

	if !strings.HasPrefix(a, "ORD-") {
		t.Errorf("synthesized number %q lacks ORD- prefix", a)
	}
	if a == b {
		t.Errorf("two synthesized numbers collided: %q", a)
	}
}
