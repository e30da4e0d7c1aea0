package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Order maps to the imaging_order table: a physician's request for a
// study, which a booking later fulfills.
type Order struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	OrderNumber        string     `db:"order_number" json:"order_number"`
	AccessionNumber    string     `db:"accession_number" json:"accession_number"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	OrderingPhysician  string     `db:"ordering_physician" json:"ordering_physician"`
	Modality           string     `db:"modality" json:"modality"`
	ProcedureCode      *string    `db:"procedure_code" json:"procedure_code,omitempty"`
	ClinicalIndication *string    `db:"clinical_indication" json:"clinical_indication,omitempty"`
	Priority           string     `db:"priority" json:"priority"`
	Status             string     `db:"status" json:"status"`
	CreatedBy          *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusScheduled: true, StatusCompleted: true, StatusCancelled: true,
}

var validPriorities = map[string]bool{
	"routine": true, "urgent": true, "stat": true,
}

// NewOrderNumber returns a date-scoped order number with a random
// suffix, e.g. "ORD20260310H7Q2". Randomness avoids the scan-and-
// increment coordination bookings need; collisions are caught by the
// unique constraint and surface as an insert error.
func NewOrderNumber(now time.Time) string {
	return "ORD" + now.Format("20060102") + randomSuffix(4)
}

// NewAccessionNumber returns the study identifier sent to modalities,
// e.g. "ACC20260310X4T7".
func NewAccessionNumber(now time.Time) string {
	return "ACC" + now.Format("20060102") + randomSuffix(4)
}

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := range b {
		r, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("reading random suffix: %v", err))
		}
		b[i] = suffixAlphabet[r.Int64()]
	}
	return string(b)
}
