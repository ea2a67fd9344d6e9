package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a tenant operating calling campaigns. MaxConcurrentCalls
// is the per-tenant admission limit; in-flight counts are always derived live
// from the calls table, never cached here.
type Customer struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UUID               uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`
	Email              string     `gorm:"type:varchar(255);not null;uniqueIndex:uk_customers_email" json:"email"`
	CompanyName        *string    `gorm:"type:varchar(255)" json:"company_name,omitempty"`
	MaxConcurrentCalls int        `gorm:"not null;default:5" json:"max_concurrent_calls"`
	IsActive           bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate is called before creating a new record
func (c *Customer) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CustomerFilter represents filter criteria for customers
type CustomerFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Email    *string    `json:"email,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
