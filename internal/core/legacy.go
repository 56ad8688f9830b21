package core

// legacy.go translates foreign enumerations into canonical ones.
//
// Each foreign system is supported by mapping tables only; the import
// coordinator never learns about individual systems. Matching is
// case-insensitive and everything unrecognized lands in the explicit
// default bucket rather than failing the record.

import "strings"

// Canonical enumerations.
const (
	EventOther = "Other"

	StatusEnquiry    = "Enquiry"
	StatusQuoted     = "Quoted"
	StatusConfirmed  = "Confirmed"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"

	EnquiryNew       = "New"
	EnquiryContacted = "Contacted"
	EnquiryQuoted    = "Quoted"
	EnquiryConverted = "Converted"
	EnquiryLost      = "Lost"
)

// eventTypeMap translates foreign event labels.
var eventTypeMap = map[string]string{
	"wedding":         "Wedding",
	"wedding cake":    "Wedding",
	"birthday":        "Birthday",
	"birthday party":  "Birthday",
	"kids birthday":   "Birthday",
	"anniversary":     "Anniversary",
	"baby shower":     "Baby Shower",
	"babyshower":      "Baby Shower",
	"gender reveal":   "Baby Shower",
	"christening":     "Christening",
	"baptism":         "Christening",
	"graduation":      "Graduation",
	"corporate":       "Corporate",
	"corporate event": "Corporate",
	"office party":    "Corporate",
	"engagement":      "Engagement",
	"holiday":         "Holiday",
	"christmas":       "Holiday",
	"easter":          "Holiday",
}

// orderStatusMap translates foreign order/quote statuses.
var orderStatusMap = map[string]string{
	"inquiry":      StatusEnquiry,
	"enquiry":      StatusEnquiry,
	"lead":         StatusEnquiry,
	"new":          StatusEnquiry,
	"quote":        StatusQuoted,
	"quoted":       StatusQuoted,
	"pending":      StatusQuoted,
	"draft":        StatusQuoted,
	"confirmed":    StatusConfirmed,
	"accepted":     StatusConfirmed,
	"booked":       StatusConfirmed,
	"deposit paid": StatusConfirmed,
	"in progress":  StatusInProgress,
	"baking":       StatusInProgress,
	"decorating":   StatusInProgress,
	"ready":        StatusCompleted,
	"complete":     StatusCompleted,
	"completed":    StatusCompleted,
	"delivered":    StatusCompleted,
	"fulfilled":    StatusCompleted,
	"picked up":    StatusCompleted,
	"cancelled":    StatusCancelled,
	"canceled":     StatusCancelled,
	"declined":     StatusCancelled,
	"refunded":     StatusCancelled,
}

// enquiryStatusMap translates foreign enquiry statuses.
var enquiryStatusMap = map[string]string{
	"new":       EnquiryNew,
	"open":      EnquiryNew,
	"unread":    EnquiryNew,
	"contacted": EnquiryContacted,
	"responded": EnquiryContacted,
	"replied":   EnquiryContacted,
	"quoted":    EnquiryQuoted,
	"won":       EnquiryConverted,
	"converted": EnquiryConverted,
	"booked":    EnquiryConverted,
	"lost":      EnquiryLost,
	"closed":    EnquiryLost,
	"dead":      EnquiryLost,
	"spam":      EnquiryLost,
}

// MapEventType translates a foreign event type, defaulting to Other.
func MapEventType(s string) string {
	return mapEnum(eventTypeMap, s, EventOther)
}

// MapOrderStatus translates a foreign order or quote status,
// defaulting to Enquiry.
func MapOrderStatus(s string) string {
	return mapEnum(orderStatusMap, s, StatusEnquiry)
}

// MapEnquiryStatus translates a foreign enquiry status, defaulting to New.
func MapEnquiryStatus(s string) string {
	return mapEnum(enquiryStatusMap, s, EnquiryNew)
}

func mapEnum(table map[string]string, s, fallback string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return fallback
	}
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

// AdaptLegacy rewrites the enum-typed fields of a normalized record through
// the mapping tables. Applied per field after normalization and before the
// record reaches the coordinator's write step.
func AdaptLegacy(def EntityDefinition, rec CanonicalRecord) {
	for _, spec := range def.Fields {
		if spec.Enum == "" {
			continue
		}
		v := rec.Str(spec.Name)
		switch spec.Enum {
		case "event_type":
			rec[spec.Name] = MapEventType(v)
		case "order_status":
			rec[spec.Name] = MapOrderStatus(v)
		case "enquiry_status":
			rec[spec.Name] = MapEnquiryStatus(v)
		}
	}
}
