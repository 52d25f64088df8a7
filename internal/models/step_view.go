package models

// StepStatus is the derived (never persisted) state of a termin step.
type StepStatus string

const (
	StepStatusLocked      StepStatus = "locked"
	StepStatusAvailable   StepStatus = "available"
	StepStatusPending     StepStatus = "pending"
	StepStatusPaid        StepStatus = "paid"
	StepStatusWaitingBast StepStatus = "waiting_bast"
	StepStatusCancelled   StepStatus = "cancelled"
)

// StepView is the recomputed-on-read snapshot of one termin step. Nothing in
// it is stored; services.ResolveSteps derives it from current rows every time.
type StepView struct {
	Step         int        `json:"step"`
	Text         string     `json:"text"`
	Persentase   float64    `json:"persentase"`
	Nominal      float64    `json:"nominal"`
	Status       StepStatus `json:"status"`
	CanPay       bool       `json:"can_pay"`
	IsLastStep   bool       `json:"is_last_step"`
	LockedReason string     `json:"locked_reason,omitempty"`
	// Warning surfaces data inconsistencies that are reported but not blocked,
	// e.g. a paid final step on a contract without a BAST on record.
	Warning string   `json:"warning,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
}

// Payment categories as shown in the admin UI. Classification counts paid
// steps, not amounts: exactly one paid step is "dp" regardless of its
// percentage. That matches observed product behavior; whether it should be
// amount-weighted instead is an open product question, preserved as-is here.
const (
	PaymentCategoryBelumBayar = "belum_bayar"
	PaymentCategoryDp         = "dp"
	PaymentCategoryProses     = "proses"
	PaymentCategoryLunas      = "lunas"
)

// PaymentSummary aggregates invoices and the commitment fee into
// contract-level totals for reporting.
type PaymentSummary struct {
	HargaKontrak    float64 `json:"harga_kontrak"`
	TotalPaid       float64 `json:"total_paid"`
	RemainingToPay  float64 `json:"remaining_to_pay"`
	ProgressPercent int     `json:"progress_percent"`
	// CurrentStep is the first step without a paid invoice (a cancelled
	// invoice counts as absent), or TotalSteps+1 when everything is paid.
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	PaidSteps   int    `json:"paid_steps"`
	Category    string `json:"category"`
}
