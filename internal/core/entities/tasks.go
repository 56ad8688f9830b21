package entities

import (
	"context"

	"github.com/bakeledger/dataport/internal/core"
)

func registerTasks() {
	core.Register(core.EntityDefinition{
		Kind:      core.KindTasks,
		Table:     "tasks",
		Label:     "Tasks",
		Signature: []string{"title", "due_date"},
		Fields: []core.FieldSpec{
			{Name: "title", Required: true, Aliases: []string{"Title", "Task", "Task Name", "To Do", "Description"}},
			{Name: "due_date", Type: core.FieldDate, Aliases: []string{"Due Date", "Due", "Deadline", "dueDate"}},
			{Name: "completed", Type: core.FieldBool, Aliases: []string{"Completed", "Done", "Complete", "Finished"}},
			{Name: "notes", Aliases: []string{"Notes", "Comments", "Details"}},
		},
		Header:  []string{"Title", "Due Date", "Completed", "Notes"},
		Prepare: prepareTask,
	})
}

func prepareTask(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	row := core.Row{
		"user_id":   rz.UserID(),
		"title":     rec.Str("title"),
		"completed": rec["completed"],
		"notes":     rec.Str("notes"),
	}
	if d := rec.Str("due_date"); d != "" {
		row["due_date"] = d
	}
	return row, nil
}

func registerEnquiries() {
	core.Register(core.EntityDefinition{
		Kind:      core.KindEnquiries,
		Table:     "enquiries",
		Label:     "Enquiries",
		Signature: []string{"status", "event_type", "details"},
		Fields: []core.FieldSpec{
			{Name: "status", Enum: "enquiry_status", Aliases: []string{"Status", "Enquiry Status", "Inquiry Status"}},
			{Name: "event_type", Enum: "event_type", Aliases: []string{"Event Type", "Occasion", "Event"}},
			{Name: "event_date", Type: core.FieldDate, Aliases: []string{"Event Date", "Date", "Date of Event"}},
			{Name: "details", Required: true, Aliases: []string{"Details", "Message", "Enquiry Details", "Enquiry", "Inquiry", "Description"}},
			{Name: "customer_name", Aliases: []string{"Customer Name", "Customer", "Client", "Name", "From"}},
			{Name: "email", Aliases: []string{"Email", "Email Address", "Customer Email"}},
			{Name: "phone", Aliases: []string{"Phone", "Phone Number", "Mobile"}},
		},
		Header: []string{"Status", "Event Type", "Event Date", "Details", "Customer Name", "Email", "Phone"},
		ExportSQL: `SELECT e.id, e.status, e.event_type, e.event_date, e.details,
			COALESCE(c.first_name || ' ' || c.last_name, '') AS customer_name,
			COALESCE(c.email, '') AS email, COALESCE(c.phone, '') AS phone
			FROM enquiries e LEFT JOIN contacts c ON c.id = e.contact_id
			WHERE e.user_id = $1 ORDER BY e.id`,
		Prepare: prepareEnquiry,
	})
}

func prepareEnquiry(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	status := rec.Str("status")
	if status == "" {
		status = core.EnquiryNew
	}
	eventType := rec.Str("event_type")
	if eventType == "" {
		eventType = core.EventOther
	}

	row := core.Row{
		"user_id":    rz.UserID(),
		"status":     status,
		"event_type": eventType,
		"details":    rec.Str("details"),
	}
	if d := rec.Str("event_date"); d != "" {
		row["event_date"] = d
	}

	if hasContactHints(rec) {
		first, last, email, phone := contactHints(rec)
		contactID, err := rz.ResolveContact(ctx, email, first, last, phone)
		if err != nil {
			return nil, err
		}
		row["contact_id"] = contactID
	}
	return row, nil
}
