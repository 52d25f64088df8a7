package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoiceStatus is the persisted lifecycle state of a termin invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice bills one termin step of a contract. At most one non-cancelled
// invoice may exist per (kontrak_id, termin_step); the partial unique index
// created in db.EnsureIndexes is the authority on that.
//
// Once paid an invoice is immutable. Cancelled is terminal.
type Invoice struct {
	Base             `bson:",inline"`
	KontrakID        primitive.ObjectID `bson:"kontrak_id" json:"kontrak_id"`
	InvoiceNumber    string             `bson:"invoice_number" json:"invoice_number"`
	TerminStep       int                `bson:"termin_step" json:"termin_step"`
	TerminText       string             `bson:"termin_text" json:"termin_text"`
	TerminPersentase float64            `bson:"termin_persentase" json:"termin_persentase"`
	TotalAmount      float64            `bson:"total_amount" json:"total_amount"`
	Status           InvoiceStatus      `bson:"status" json:"status"`

	// Proof of payment ("bukti bayar"), an opaque URI. Set together with the
	// pending -> paid transition.
	BuktiBayar string     `bson:"bukti_bayar,omitempty" json:"bukti_bayar,omitempty"`
	PaidAt     *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`

	// First-step approval gate: PM (Kepala Marketing) response, then client
	// response, before a proof upload is accepted. Unused for steps > 1.
	PmResponseAt     *time.Time `bson:"pm_response_time,omitempty" json:"pm_response_time,omitempty"`
	PmResponseBy     string     `bson:"pm_response_by,omitempty" json:"pm_response_by,omitempty"`
	ClientResponseAt *time.Time `bson:"response_time,omitempty" json:"response_time,omitempty"`
	ClientResponseBy string     `bson:"response_by,omitempty" json:"response_by,omitempty"`

	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Active reports whether the invoice still occupies its step, i.e. it has not
// been cancelled.
func (i *Invoice) Active() bool {
	return i.Status != InvoiceStatusCancelled
}
