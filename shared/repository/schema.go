package repository

// Schema describes how one content table is scoped and ordered
type Schema struct {
	// Entity is the procedure prefix and the event entity name
	Entity string
	// FlagColumn marks an item as visible on the public site
	FlagColumn string
	// DateColumn is the primary date; rows without one fall back to created_at
	DateColumn string
	// SortColumn, when set, orders ascending ahead of the date
	SortColumn string
	// Filters lists the equality filters a list query may apply
	Filters []string
}

const MaxLimit = 100

// Query narrows a list
type Query struct {
	Filters map[string]string
	Limit   int
	Offset  int
}

// Schemas for every content kind, keyed by procedure prefix
var (
	NewsSchema = Schema{Entity: "news", FlagColumn: "is_published", DateColumn: "date", Filters: []string{"category"}}

	StaffSchema = Schema{Entity: "staff", FlagColumn: "is_active", SortColumn: "sort_order", Filters: []string{"department"}}

	DocumentsSchema = Schema{Entity: "documents", FlagColumn: "is_published", DateColumn: "document_date", Filters: []string{"category"}}

	VacanciesSchema = Schema{Entity: "vacancies", FlagColumn: "is_active", Filters: []string{"department"}}

	FeedbackSchema = Schema{Entity: "feedback", FlagColumn: "is_published", DateColumn: "answered_at", Filters: []string{"category"}}

	EventsSchema = Schema{Entity: "events", FlagColumn: "is_published", DateColumn: "starts_at"}

	PublicationsSchema = Schema{Entity: "publications", FlagColumn: "is_published", DateColumn: "published_on", Filters: []string{"kind"}}

	MemorandaSchema = Schema{Entity: "memoranda", FlagColumn: "is_published", DateColumn: "signed_on"}

	AttestationsSchema = Schema{Entity: "attestations", FlagColumn: "is_published", DateColumn: "issued_on", Filters: []string{"category"}}

	GovernanceSchema = Schema{Entity: "governance", FlagColumn: "is_published", SortColumn: "sort_order"}
)

func (s Schema) allowsFilter(name string) bool {
	for _, f := range s.Filters {
		if f == name {
			return true
		}
	}
	return false
}

func (s Schema) orderBy() []string {
	var order []string
	if s.SortColumn != "" {
		order = append(order, s.SortColumn+" ASC")
	}
	if s.DateColumn != "" {
		order = append(order, "COALESCE("+s.DateColumn+", created_at) DESC")
	} else {
		order = append(order, "created_at DESC")
	}
	return order
}
