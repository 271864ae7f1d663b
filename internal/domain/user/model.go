package user

import (
	"time"

	"github.com/google/uuid"
)

// Role values for the users table.
const (
	RoleAdmin   = "ADMIN"
	RoleDoctor  = "DOCTOR"
	RolePatient = "PATIENT"
)

// Status values for the users table.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// User maps to the users table. Doctors, patients and admins share one table
// distinguished by role.
type User struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	Email       string     `db:"email" json:"email"`
	PhoneNumber *string    `db:"phone_number" json:"phone_number,omitempty"`
	Role        string     `db:"role" json:"role"`
	Status      string     `db:"status" json:"status"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
