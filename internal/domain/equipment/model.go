package equipment

import (
	"time"

	"github.com/google/uuid"
)

// Equipment maps to the equipment table: one bookable imaging resource
// such as a CT scanner or an ultrasound cart.
type Equipment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Modality     string    `db:"modality" json:"modality"`
	Room         *string   `db:"room" json:"room,omitempty"`
	Manufacturer *string   `db:"manufacturer" json:"manufacturer,omitempty"`
	ModelNumber  *string   `db:"model_number" json:"model_number,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

var validModalities = map[string]bool{
	"CT": true, "MRI": true, "XR": true, "US": true,
	"MG": true, "NM": true, "PET": true, "DX": true,
}
