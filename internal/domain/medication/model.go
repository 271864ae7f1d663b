package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a catalog entry prescriptions reference. Strength and form
// together distinguish products sharing a name (e.g. Paracetamol 500mg tablet
// vs Paracetamol 250mg syrup).
type Medication struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Strength    string    `db:"strength" json:"strength"`
	Form        string    `db:"form" json:"form"`
	Unit        string    `db:"unit" json:"unit"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
