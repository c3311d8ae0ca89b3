package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a question submitted through the public form. Answered and
// published entries form the FAQ.
type Feedback struct {
	ContentBase
	AuthorName   string     `json:"authorName" gorm:"type:varchar(255)"`
	AuthorEmail  string     `json:"authorEmail,omitempty" gorm:"type:varchar(255)"`
	AuthorPhone  string     `json:"authorPhone,omitempty" gorm:"type:varchar(50)"`
	Locale       string     `json:"locale" gorm:"type:varchar(5)"`
	Category     string     `json:"category" gorm:"type:varchar(100);index"`
	Question     string     `json:"question" gorm:"type:text;not null"`
	Answer       Localized  `json:"answer" gorm:"embedded;embeddedPrefix:answer_"`
	AnsweredByID *uuid.UUID `json:"answeredById,omitempty" gorm:"type:uuid"`
	AnsweredAt   *time.Time `json:"answeredAt,omitempty"`
	IsPublished  bool       `json:"isPublished" gorm:"not null;default:false;index"`

	AnsweredBy *User `json:"-" gorm:"foreignKey:AnsweredByID"`
}

func (Feedback) TableName() string { return "feedback" }
func (f *Feedback) Published() bool { return f.IsPublished }

// PublicView strips the submitter's contact details
func (f Feedback) PublicView() Feedback {
	f.AuthorEmail = ""
	f.AuthorPhone = ""
	return f
}

type FeedbackPatch struct {
	Category    *string    `json:"category"`
	Question    *string    `json:"question"`
	Answer      *Localized `json:"answer" gorm:"embeddedPrefix:answer_"`
	IsPublished *bool      `json:"isPublished"`
}

// FeedbackAnswer records who answered a question and when
type FeedbackAnswer struct {
	Answer       *Localized `json:"answer" gorm:"embeddedPrefix:answer_"`
	AnsweredByID *uuid.UUID `json:"-"`
	AnsweredAt   *time.Time `json:"-"`
	IsPublished  *bool      `json:"-"`
}
