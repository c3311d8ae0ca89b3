package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentBase is embedded by every client-scoped content item
type ContentBase struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID uuid.UUID `json:"clientId" gorm:"type:uuid;not null;index" binding:"required"`
	// PublishedAt is stamped on the first transition to published and never cleared
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (b *ContentBase) GetID() uuid.UUID { return b.ID }
func (b *ContentBase) SetID(id uuid.UUID) { b.ID = id }
func (b *ContentBase) GetClientID() uuid.UUID { return b.ClientID }
func (b *ContentBase) GetPublishedAt() *time.Time { return b.PublishedAt }
func (b *ContentBase) SetPublishedAt(t *time.Time) { b.PublishedAt = t }
func (b *ContentBase) SetTimestamps(created, updated time.Time) {
	b.CreatedAt = created
	b.UpdatedAt = updated
}

// News is a dated announcement
type News struct {
	ContentBase
	Title       Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Excerpt     Localized  `json:"excerpt" gorm:"embedded;embeddedPrefix:excerpt_"`
	Body        Localized  `json:"body" gorm:"embedded;embeddedPrefix:body_"`
	ImageURL    string     `json:"imageUrl" gorm:"type:varchar(500)"`
	Category    string     `json:"category" gorm:"type:varchar(100);index"`
	Date        *time.Time `json:"date"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (News) TableName() string { return "news" }
func (n *News) Published() bool { return n.IsPublished }

type NewsPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Excerpt     *Localized `json:"excerpt" gorm:"embeddedPrefix:excerpt_"`
	Body        *Localized `json:"body" gorm:"embeddedPrefix:body_"`
	ImageURL    *string    `json:"imageUrl"`
	Category    *string    `json:"category"`
	Date        *time.Time `json:"date"`
	IsPublished *bool      `json:"isPublished"`
}

// Employee is a staff member shown on the team page
type Employee struct {
	ContentBase
	FullName   Localized `json:"fullName" gorm:"embedded;embeddedPrefix:full_name_"`
	Position   Localized `json:"position" gorm:"embedded;embeddedPrefix:position_"`
	Bio        Localized `json:"bio" gorm:"embedded;embeddedPrefix:bio_"`
	Department string    `json:"department" gorm:"type:varchar(100);index"`
	PhotoURL   string    `json:"photoUrl" gorm:"type:varchar(500)"`
	Email      string    `json:"email" gorm:"type:varchar(255)"`
	Phone      string    `json:"phone" gorm:"type:varchar(50)"`
	SortOrder  int       `json:"sortOrder" gorm:"not null;default:0"`
	IsActive   bool      `json:"isActive" gorm:"not null;default:false;index"`
}

func (Employee) TableName() string { return "employees" }
func (e *Employee) Published() bool { return e.IsActive }

type EmployeePatch struct {
	FullName   *Localized `json:"fullName" gorm:"embeddedPrefix:full_name_"`
	Position   *Localized `json:"position" gorm:"embeddedPrefix:position_"`
	Bio        *Localized `json:"bio" gorm:"embeddedPrefix:bio_"`
	Department *string    `json:"department"`
	PhotoURL   *string    `json:"photoUrl"`
	Email      *string    `json:"email" binding:"omitempty,email"`
	Phone      *string    `json:"phone"`
	SortOrder  *int       `json:"sortOrder"`
	IsActive   *bool      `json:"isActive"`
}

// Document is a downloadable regulatory or informational file
type Document struct {
	ContentBase
	Title        Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Description  Localized  `json:"description" gorm:"embedded;embeddedPrefix:description_"`
	FileURL      string     `json:"fileUrl" gorm:"type:varchar(500)"`
	FileName     string     `json:"fileName" gorm:"type:varchar(255)"`
	Category     string     `json:"category" gorm:"type:varchar(100);index"`
	DocumentDate *time.Time `json:"documentDate"`
	IsPublished  bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (Document) TableName() string { return "documents" }
func (d *Document) Published() bool { return d.IsPublished }

type DocumentPatch struct {
	Title        *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Description  *Localized `json:"description" gorm:"embeddedPrefix:description_"`
	FileURL      *string    `json:"fileUrl"`
	FileName     *string    `json:"fileName"`
	Category     *string    `json:"category"`
	DocumentDate *time.Time `json:"documentDate"`
	IsPublished  *bool      `json:"isPublished"`
}

// Vacancy is an open position
type Vacancy struct {
	ContentBase
	Title        Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Description  Localized  `json:"description" gorm:"embedded;embeddedPrefix:description_"`
	Requirements Localized  `json:"requirements" gorm:"embedded;embeddedPrefix:requirements_"`
	Department   string     `json:"department" gorm:"type:varchar(100);index"`
	Salary       string     `json:"salary" gorm:"type:varchar(100)"`
	ContactEmail string     `json:"contactEmail" gorm:"type:varchar(255)"`
	ClosesAt     *time.Time `json:"closesAt"`
	IsActive     bool       `json:"isActive" gorm:"not null;default:false;index"`
}

func (Vacancy) TableName() string { return "vacancies" }
func (v *Vacancy) Published() bool { return v.IsActive }

type VacancyPatch struct {
	Title        *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Description  *Localized `json:"description" gorm:"embeddedPrefix:description_"`
	Requirements *Localized `json:"requirements" gorm:"embeddedPrefix:requirements_"`
	Department   *string    `json:"department"`
	Salary       *string    `json:"salary"`
	ContactEmail *string    `json:"contactEmail" binding:"omitempty,email"`
	ClosesAt     *time.Time `json:"closesAt"`
	IsActive     *bool      `json:"isActive"`
}

// Event is a scheduled public event
type Event struct {
	ContentBase
	Title       Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Description Localized  `json:"description" gorm:"embedded;embeddedPrefix:description_"`
	Location    Localized  `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	ImageURL    string     `json:"imageUrl" gorm:"type:varchar(500)"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (Event) TableName() string { return "events" }
func (e *Event) Published() bool { return e.IsPublished }

type EventPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Description *Localized `json:"description" gorm:"embeddedPrefix:description_"`
	Location    *Localized `json:"location" gorm:"embeddedPrefix:location_"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	ImageURL    *string    `json:"imageUrl"`
	IsPublished *bool      `json:"isPublished"`
}

// Publication is an article or methodical material authored by staff
type Publication struct {
	ContentBase
	Title       Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Summary     Localized  `json:"summary" gorm:"embedded;embeddedPrefix:summary_"`
	Authors     string     `json:"authors" gorm:"type:varchar(500)"`
	Kind        string     `json:"kind" gorm:"type:varchar(50);index"`
	FileURL     string     `json:"fileUrl" gorm:"type:varchar(500)"`
	PublishedOn *time.Time `json:"publishedOn"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (Publication) TableName() string { return "publications" }
func (p *Publication) Published() bool { return p.IsPublished }

type PublicationPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Summary     *Localized `json:"summary" gorm:"embeddedPrefix:summary_"`
	Authors     *string    `json:"authors"`
	Kind        *string    `json:"kind"`
	FileURL     *string    `json:"fileUrl"`
	PublishedOn *time.Time `json:"publishedOn"`
	IsPublished *bool      `json:"isPublished"`
}

// Memorandum is a cooperation agreement with a partner organization
type Memorandum struct {
	ContentBase
	Title       Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Partner     Localized  `json:"partner" gorm:"embedded;embeddedPrefix:partner_"`
	Description Localized  `json:"description" gorm:"embedded;embeddedPrefix:description_"`
	FileURL     string     `json:"fileUrl" gorm:"type:varchar(500)"`
	SignedOn    *time.Time `json:"signedOn"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (Memorandum) TableName() string { return "memoranda" }
func (m *Memorandum) Published() bool { return m.IsPublished }

type MemorandumPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Partner     *Localized `json:"partner" gorm:"embeddedPrefix:partner_"`
	Description *Localized `json:"description" gorm:"embeddedPrefix:description_"`
	FileURL     *string    `json:"fileUrl"`
	SignedOn    *time.Time `json:"signedOn"`
	IsPublished *bool      `json:"isPublished"`
}

// Attestation is a certificate, license or accreditation record
type Attestation struct {
	ContentBase
	Title       Localized  `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Description Localized  `json:"description" gorm:"embedded;embeddedPrefix:description_"`
	Category    string     `json:"category" gorm:"type:varchar(100);index"`
	FileURL     string     `json:"fileUrl" gorm:"type:varchar(500)"`
	IssuedOn    *time.Time `json:"issuedOn"`
	IsPublished bool       `json:"isPublished" gorm:"not null;default:false;index"`
}

func (Attestation) TableName() string { return "attestations" }
func (a *Attestation) Published() bool { return a.IsPublished }

type AttestationPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Description *Localized `json:"description" gorm:"embeddedPrefix:description_"`
	Category    *string    `json:"category"`
	FileURL     *string    `json:"fileUrl"`
	IssuedOn    *time.Time `json:"issuedOn"`
	IsPublished *bool      `json:"isPublished"`
}

// GovernanceSection is a block of the "management and governance" page
type GovernanceSection struct {
	ContentBase
	Title       Localized `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	Body        Localized `json:"body" gorm:"embedded;embeddedPrefix:body_"`
	Anchor      string    `json:"anchor" gorm:"type:varchar(100)"`
	SortOrder   int       `json:"sortOrder" gorm:"not null;default:0"`
	IsPublished bool      `json:"isPublished" gorm:"not null;default:false;index"`
}

func (GovernanceSection) TableName() string { return "governance_sections" }
func (g *GovernanceSection) Published() bool { return g.IsPublished }

type GovernanceSectionPatch struct {
	Title       *Localized `json:"title" gorm:"embeddedPrefix:title_"`
	Body        *Localized `json:"body" gorm:"embeddedPrefix:body_"`
	Anchor      *string    `json:"anchor"`
	SortOrder   *int       `json:"sortOrder"`
	IsPublished *bool      `json:"isPublished"`
}

// All returns every model managed by the schema, for auto-migration
func All() []interface{} {
	return []interface{}{
		&Client{},
		&User{},
		&News{},
		&Employee{},
		&Document{},
		&Vacancy{},
		&Feedback{},
		&Event{},
		&Publication{},
		&Memorandum{},
		&Attestation{},
		&GovernanceSection{},
		&FailedDelivery{},
	}
}
