package model

import (
	"time"
)

var ALL_SLOPCEL_TABLES []interface{} = []interface{}{
	Profile{}, Order{}, Project{}, IdeaCategory{}, Idea{}, BlogPost{}, WebhookEvent{},
}

// Profile mirrors the hosted auth service's user record. The auth service is
// the source of truth for credentials; this table only carries what the order
// logic needs.
type Profile struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key"`
	Email     string    `json:"email" gorm:"index;not null"`
	FullName  *string   `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"createdTime"`
	UpdatedAt time.Time `json:"updatedTime"`
}

type Order struct {
	ID string `json:"id" gorm:"type:uuid;primary_key"`
	// Provider correlation. An order carries identifiers from exactly one
	// provider; both columns are unique so duplicate triggers collapse onto
	// one row at the database level.
	Provider          string  `json:"provider" gorm:"index;not null"`
	ProviderSessionId *string `json:"provider_session_id,omitempty" gorm:"uniqueIndex"`
	ProviderPaymentId *string `json:"provider_payment_id,omitempty" gorm:"uniqueIndex"`
	// Amount in cents, always one of the tier prices.
	Amount             int64     `json:"amount" gorm:"not null"`
	Tier               string    `json:"tier" gorm:"not null"`
	Status             string    `json:"status" gorm:"index;not null"`
	UserId             *string   `json:"user_id,omitempty" gorm:"type:uuid;index"`
	PayerEmail         *string   `json:"payer_email,omitempty" gorm:"index"`
	HallOfFamePosition *int      `json:"hall_of_fame_position,omitempty" gorm:"uniqueIndex"`
	IdeaDescription    *string   `json:"idea_description,omitempty"`
	ProjectName        *string   `json:"project_name,omitempty"`
	ProjectId          *string   `json:"project_id,omitempty" gorm:"type:uuid"`
	CreatedAt          time.Time `json:"createdTime"`
	UpdatedAt          time.Time `json:"updatedTime"`
}

type Project struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"name" gorm:"index;not null"`
	Description *string   `json:"description,omitempty"`
	Url         *string   `json:"url,omitempty"`
	IsPublished bool      `json:"is_published" gorm:"not null"`
	CreatedAt   time.Time `json:"createdTime"`
	UpdatedAt   time.Time `json:"updatedTime"`
}

type IdeaCategory struct {
	ID   string `json:"id" gorm:"type:uuid;primary_key"`
	Name string `json:"name" gorm:"index;unique;not null"`
}

type Idea struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key"`
	Title       string    `json:"title" gorm:"not null"`
	Description *string   `json:"description,omitempty"`
	CategoryId  *string   `json:"category_id,omitempty" gorm:"type:uuid;index"`
	SubmittedBy *string   `json:"submitted_by,omitempty" gorm:"type:uuid"`
	CreatedAt   time.Time `json:"createdTime"`
	UpdatedAt   time.Time `json:"updatedTime"`
}

type BlogPost struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key"`
	Title       string    `json:"title" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"index;unique;not null"`
	Body        string    `json:"body" gorm:"not null"`
	IsPublished bool      `json:"is_published" gorm:"not null"`
	CreatedAt   time.Time `json:"createdTime"`
	UpdatedAt   time.Time `json:"updatedTime"`
}

// WebhookEvent is a dedup store for provider webhook deliveries. The
// provider+event id pair is unique so a redelivered event is detected before
// reconciliation runs a second time.
type WebhookEvent struct {
	ID              uint      `json:"id" gorm:"auto_increment;primary_key"`
	Provider        string    `json:"provider" gorm:"uniqueIndex:ux_webhook_provider_event;not null"`
	ProviderEventId string    `json:"provider_event_id" gorm:"uniqueIndex:ux_webhook_provider_event;not null"`
	EventType       string    `json:"event_type" gorm:"index"`
	SignatureValid  bool      `json:"signature_valid" gorm:"not null"`
	CreatedAt       time.Time `json:"createdTime"`
}
