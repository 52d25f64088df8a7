package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommitmentFee is the upfront deposit on a contract. Paying it is the
// precondition for invoicing the first termin step. A zero Amount means the
// contract defines no commitment fee.
type CommitmentFee struct {
	Amount     float64    `bson:"amount" json:"amount"`
	Paid       bool       `bson:"paid" json:"paid"`
	ProofURI   string     `bson:"proof_uri,omitempty" json:"proof_uri,omitempty"`
	PaidAt     *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	ResponseBy string     `bson:"response_by,omitempty" json:"response_by,omitempty"`
}

// Kontrak is the signed contract for one work item: the aggregate root of the
// staged payment engine. Immutable once created except CommitmentFee payment
// state and the BAST fields, which are flipped by their own flows.
type Kontrak struct {
	Base         `bson:",inline"`
	NamaProject  string             `bson:"nama_project" json:"nama_project"`
	TerminID     primitive.ObjectID `bson:"termin_id" json:"termin_id"`
	HargaKontrak float64            `bson:"harga_kontrak" json:"harga_kontrak"`

	CommitmentFee CommitmentFee `bson:"commitment_fee" json:"commitment_fee"`

	// BAST (handover certificate). HasBast gates the last termin step.
	HasBast    bool       `bson:"has_bast" json:"has_bast"`
	BastNumber string     `bson:"bast_number,omitempty" json:"bast_number,omitempty"`
	BastDate   *time.Time `bson:"bast_date,omitempty" json:"bast_date,omitempty"`
	BastFoto   string     `bson:"bast_foto,omitempty" json:"bast_foto,omitempty"`

	DurasiKontrak  int        `bson:"durasi_kontrak,omitempty" json:"durasi_kontrak,omitempty"`
	TanggalMulai   *time.Time `bson:"tanggal_mulai,omitempty" json:"tanggal_mulai,omitempty"`
	TanggalSelesai *time.Time `bson:"tanggal_selesai,omitempty" json:"tanggal_selesai,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// SisaHari returns the number of days until the contract deadline, negative
// when overdue, nil when no deadline is set.
func (k *Kontrak) SisaHari(now time.Time) *int {
	if k.TanggalSelesai == nil {
		return nil
	}
	days := int(k.TanggalSelesai.Sub(now.Truncate(24*time.Hour)).Hours() / 24)
	return &days
}

// Deadline status buckets used by the reminder scan.
const (
	DeadlineUnknown = "unknown"
	DeadlineOverdue = "overdue"
	DeadlineUrgent  = "urgent"
	DeadlineWarning = "warning"
	DeadlineNormal  = "normal"
)

// DeadlineStatus classifies how close the contract is to its end date, with
// the urgent and warning windows given in days. Non-positive windows fall
// back to 7 and 14 days.
func (k *Kontrak) DeadlineStatus(now time.Time, urgentDays, warningDays int) string {
	if urgentDays <= 0 {
		urgentDays = 7
	}
	if warningDays <= 0 {
		warningDays = 14
	}
	sisa := k.SisaHari(now)
	if sisa == nil {
		return DeadlineUnknown
	}
	switch {
	case *sisa < 0:
		return DeadlineOverdue
	case *sisa <= urgentDays:
		return DeadlineUrgent
	case *sisa <= warningDays:
		return DeadlineWarning
	default:
		return DeadlineNormal
	}
}
