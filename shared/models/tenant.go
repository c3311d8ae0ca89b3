package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents one organization (tenant) and its public identity
type Client struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Slug             string         `json:"slug" gorm:"type:varchar(100);not null;uniqueIndex"`
	Name             Localized      `json:"name" gorm:"embedded;embeddedPrefix:name_"`
	ShortName        string         `json:"shortName" gorm:"type:varchar(100)"`
	Address          Localized      `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Phone            string         `json:"phone" gorm:"type:varchar(50)"`
	Email            string         `json:"email" gorm:"type:varchar(255)"`
	Website          string         `json:"website" gorm:"type:varchar(255)"`
	LogoURL          string         `json:"logoUrl" gorm:"type:varchar(500)"`
	DirectorName     Localized      `json:"directorName" gorm:"embedded;embeddedPrefix:director_name_"`
	DirectorBio      Localized      `json:"directorBio" gorm:"embedded;embeddedPrefix:director_bio_"`
	DirectorPhotoURL string         `json:"directorPhotoUrl" gorm:"type:varchar(500)"`
	IsActive         bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Users []User `json:"users,omitempty" gorm:"foreignKey:ClientID"`
}

// TableName returns the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// ClientPatch is a partial update of a client. Slug is intentionally absent:
// it is immutable after creation.
type ClientPatch struct {
	Name             *Localized `json:"name" gorm:"embeddedPrefix:name_"`
	ShortName        *string    `json:"shortName"`
	Address          *Localized `json:"address" gorm:"embeddedPrefix:address_"`
	Phone            *string    `json:"phone"`
	Email            *string    `json:"email" binding:"omitempty,email"`
	Website          *string    `json:"website"`
	LogoURL          *string    `json:"logoUrl"`
	DirectorName     *Localized `json:"directorName" gorm:"embeddedPrefix:director_name_"`
	DirectorBio      *Localized `json:"directorBio" gorm:"embeddedPrefix:director_bio_"`
	DirectorPhotoURL *string    `json:"directorPhotoUrl"`
}
