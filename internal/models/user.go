package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the customer owning one or more policies. Managed by the profile
// flow; billing only reads the contact fields for invoices and notifications.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Address     string    `json:"address" db:"address"`
	City        string    `json:"city" db:"city"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
