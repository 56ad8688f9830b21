package entities

import (
	"context"

	"github.com/bakeledger/dataport/internal/core"
)

func registerOrders() {
	core.Register(core.EntityDefinition{
		Kind:       core.KindOrders,
		Table:      "orders",
		Label:      "Orders",
		NaturalKey: "order_number",
		Signature:  []string{"order_number", "status", "event_date"},
		Fields: []core.FieldSpec{
			{Name: "order_number", Required: true, Aliases: []string{"Order Number", "Order No", "Order #", "order_num", "orderNumber", "Reference", "Order Ref"}},
			{Name: "status", Enum: "order_status", Aliases: []string{"Status", "Order Status", "State"}},
			{Name: "event_type", Enum: "event_type", Aliases: []string{"Event Type", "Occasion", "Event"}},
			{Name: "event_date", Type: core.FieldDate, Aliases: []string{"Event Date", "Date", "Date of Event", "eventDate"}},
			{Name: "delivery_date", Type: core.FieldDate, Aliases: []string{"Delivery Date", "Due Date", "Collection Date", "deliveryDate"}},
			{Name: "total_amount", Type: core.FieldMoney, Aliases: []string{"Total Amount", "Total", "Order Total", "Amount", "Price"}},
			{Name: "deposit_amount", Type: core.FieldMoney, Aliases: []string{"Deposit Amount", "Deposit", "Deposit Paid"}},
			{Name: "discount_percent", Type: core.FieldSmallInt, Aliases: []string{"Discount Percent", "Discount", "Discount %"}},
			{Name: "customer_name", Aliases: []string{"Customer Name", "Customer", "Client", "Client Name", "Contact"}},
			{Name: "email", Aliases: []string{"Email", "Email Address", "Customer Email", "E-mail"}},
			{Name: "phone", Aliases: []string{"Phone", "Phone Number", "Mobile", "Telephone"}},
			{Name: "notes", Aliases: []string{"Notes", "Comments", "Details", "Special Instructions"}},
		},
		Header: []string{
			"Order Number", "Status", "Event Type", "Event Date", "Delivery Date",
			"Total Amount", "Deposit Amount", "Discount Percent",
			"Customer Name", "Email", "Phone", "Notes",
		},
		Child: &core.ChildSpec{
			Table:     "order_items",
			ParentKey: "order_id",
			JSONKey:   "items",
			Columns:   []string{"id", "order_id", "item_name", "quantity", "unit_price", "total_price", "notes"},
		},
		ExportSQL: `SELECT o.id, o.order_number, o.status, o.event_type, o.event_date, o.delivery_date,
			o.total_amount, o.deposit_amount, o.discount_percent, o.notes,
			COALESCE(c.first_name || ' ' || c.last_name, '') AS customer_name,
			COALESCE(c.email, '') AS email, COALESCE(c.phone, '') AS phone
			FROM orders o LEFT JOIN contacts c ON c.id = o.contact_id
			WHERE o.user_id = $1 ORDER BY o.id`,
		Prepare: prepareOrder,
	})
}

func prepareOrder(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	status := rec.Str("status")
	if status == "" {
		status = core.StatusEnquiry
	}
	eventType := rec.Str("event_type")
	if eventType == "" {
		eventType = core.EventOther
	}

	row := core.Row{
		"user_id":          rz.UserID(),
		"order_number":     rec.Str("order_number"),
		"status":           status,
		"event_type":       eventType,
		"total_amount":     rec.Str("total_amount"),
		"deposit_amount":   rec.Str("deposit_amount"),
		"discount_percent": rec["discount_percent"],
		"notes":            rec.Str("notes"),
	}
	if d := rec.Str("event_date"); d != "" {
		row["event_date"] = d
	}
	if d := rec.Str("delivery_date"); d != "" {
		row["delivery_date"] = d
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

func registerOrderItems() {
	core.Register(core.EntityDefinition{
		Kind:      core.KindOrderItems,
		Table:     "order_items",
		Label:     "Order Items",
		Signature: []string{"order_number", "item_name", "unit_price"},
		Fields: []core.FieldSpec{
			{Name: "order_number", Required: true, Aliases: []string{"Order Number", "Order No", "Order #", "Order Ref", "orderNumber"}},
			{Name: "item_name", Required: true, Aliases: []string{"Item Name", "Item", "Product", "Product Name", "Description"}},
			{Name: "quantity", Type: core.FieldSmallInt, Aliases: []string{"Quantity", "Qty", "Count"}},
			{Name: "unit_price", Type: core.FieldMoney, Aliases: []string{"Unit Price", "Price", "Price Each", "Cost"}},
			{Name: "total_price", Type: core.FieldMoney, Aliases: []string{"Total Price", "Line Total", "Total", "Amount"}},
			{Name: "notes", Aliases: []string{"Notes", "Comments", "Details"}},
		},
		Header: []string{"Order Number", "Item Name", "Quantity", "Unit Price", "Total Price", "Notes"},
		ExportSQL: `SELECT oi.id, o.order_number, oi.item_name, oi.quantity, oi.unit_price, oi.total_price, oi.notes
			FROM order_items oi JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 ORDER BY oi.id`,
		Prepare: prepareOrderItem,
	})
}

func prepareOrderItem(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	orderID, err := rz.ResolveOrder(ctx, rec.Str("order_number"))
	if err != nil {
		return nil, err
	}

	return core.Row{
		"order_id":    orderID,
		"item_name":   rec.Str("item_name"),
		"quantity":    rec["quantity"],
		"unit_price":  rec.Str("unit_price"),
		"total_price": rec.Str("total_price"),
		"notes":       rec.Str("notes"),
	}, nil
}

func registerQuotes() {
	core.Register(core.EntityDefinition{
		Kind:       core.KindQuotes,
		Table:      "quotes",
		Label:      "Quotes",
		NaturalKey: "quote_number",
		Signature:  []string{"quote_number", "status", "event_date"},
		Fields: []core.FieldSpec{
			{Name: "quote_number", Required: true, Aliases: []string{"Quote Number", "Quote No", "Quote #", "Quote Ref", "quoteNumber"}},
			{Name: "status", Enum: "order_status", Aliases: []string{"Status", "Quote Status", "State"}},
			{Name: "event_type", Enum: "event_type", Aliases: []string{"Event Type", "Occasion", "Event"}},
			{Name: "event_date", Type: core.FieldDate, Aliases: []string{"Event Date", "Date", "Date of Event"}},
			{Name: "expiry_date", Type: core.FieldDate, Aliases: []string{"Expiry Date", "Valid Until", "Expires"}},
			{Name: "total_amount", Type: core.FieldMoney, Aliases: []string{"Total Amount", "Total", "Quote Total", "Amount", "Price"}},
			{Name: "customer_name", Aliases: []string{"Customer Name", "Customer", "Client", "Client Name"}},
			{Name: "email", Aliases: []string{"Email", "Email Address", "Customer Email"}},
			{Name: "phone", Aliases: []string{"Phone", "Phone Number", "Mobile"}},
			{Name: "notes", Aliases: []string{"Notes", "Comments", "Details"}},
		},
		Header: []string{
			"Quote Number", "Status", "Event Type", "Event Date", "Expiry Date",
			"Total Amount", "Customer Name", "Email", "Phone", "Notes",
		},
		ExportSQL: `SELECT q.id, q.quote_number, q.status, q.event_type, q.event_date, q.expiry_date,
			q.total_amount, q.notes,
			COALESCE(c.first_name || ' ' || c.last_name, '') AS customer_name,
			COALESCE(c.email, '') AS email, COALESCE(c.phone, '') AS phone
			FROM quotes q LEFT JOIN contacts c ON c.id = q.contact_id
			WHERE q.user_id = $1 ORDER BY q.id`,
		Prepare: prepareQuote,
	})
}

func prepareQuote(ctx context.Context, rec core.CanonicalRecord, rz *core.Resolver) (core.Row, error) {
	status := rec.Str("status")
	if status == "" {
		status = core.StatusQuoted
	}
	eventType := rec.Str("event_type")
	if eventType == "" {
		eventType = core.EventOther
	}

	row := core.Row{
		"user_id":      rz.UserID(),
		"quote_number": rec.Str("quote_number"),
		"status":       status,
		"event_type":   eventType,
		"total_amount": rec.Str("total_amount"),
		"notes":        rec.Str("notes"),
	}
	if d := rec.Str("event_date"); d != "" {
		row["event_date"] = d
	}
	if d := rec.Str("expiry_date"); d != "" {
		row["expiry_date"] = d
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
