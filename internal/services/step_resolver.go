package services

import (
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
)

// Human-readable reasons attached to steps that cannot be paid yet.
const (
	LockedReasonCommitmentFeeUnpaid = "commitment fee unpaid"
	LockedReasonPreviousStepUnpaid  = "previous step unpaid"
	LockedReasonWaitingBast         = "waiting for BAST document"

	warningPaidWithoutBast = "final step paid without a BAST on record"
)

// ResolveSteps derives the authoritative view of every termin step of a
// contract from current rows. Pure and deterministic: no I/O, no caching, no
// persisted status column anywhere. Callers re-run it on every read.
//
// Sequencing rules:
//   - step 1 requires the commitment fee to be paid (or no fee defined);
//   - step n > 1 requires step n-1's invoice to be paid;
//   - the last step additionally requires the contract's BAST to exist,
//     downgrading an otherwise available step to waiting_bast;
//   - cancelled invoices do not occupy their step and never satisfy the
//     previous-step requirement.
func ResolveSteps(kontrak *models.Kontrak, termin *models.Termin, invoices []models.Invoice) []models.StepView {
	totalSteps := termin.TotalSteps()
	if totalSteps == 0 {
		return nil
	}

	// Installments are computed over the contract price minus the commitment
	// fee; the fee itself is collected by its own flow.
	sisaPembayaran := kontrak.HargaKontrak - kontrak.CommitmentFee.Amount
	if sisaPembayaran < 0 {
		sisaPembayaran = 0
	}

	// One live invoice per step at most (partial unique index); remember the
	// latest cancelled one separately so the view can still show it.
	live := make(map[int]*models.Invoice, len(invoices))
	cancelled := make(map[int]*models.Invoice)
	for idx := range invoices {
		inv := &invoices[idx]
		if inv.Active() {
			live[inv.TerminStep] = inv
		} else {
			cancelled[inv.TerminStep] = inv
		}
	}

	views := make([]models.StepView, 0, totalSteps)
	for _, tahap := range termin.Tahapan {
		step := tahap.Step
		isLast := step == totalSteps

		view := models.StepView{
			Step:       step,
			Text:       tahap.Text,
			Persentase: tahap.Persentase,
			Nominal:    sisaPembayaran * tahap.Persentase / 100,
			IsLastStep: isLast,
		}

		if inv := live[step]; inv != nil {
			view.Invoice = inv
			switch inv.Status {
			case models.InvoiceStatusPaid:
				view.Status = models.StepStatusPaid
				if isLast && !kontrak.HasBast {
					// Payment already happened; surface the inconsistency
					// instead of blocking.
					view.Warning = warningPaidWithoutBast
				}
			case models.InvoiceStatusPending:
				view.Status = models.StepStatusPending
			}
			views = append(views, view)
			continue
		}

		// No live invoice. Evaluate preconditions; a cancelled invoice is
		// transparent here so the freed step can be re-generated.
		unmetReason := ""
		if step == 1 {
			if kontrak.CommitmentFee.Amount > 0 && !kontrak.CommitmentFee.Paid {
				unmetReason = LockedReasonCommitmentFeeUnpaid
			}
		} else {
			prev := live[step-1]
			if prev == nil || prev.Status != models.InvoiceStatusPaid {
				unmetReason = LockedReasonPreviousStepUnpaid
			}
		}

		switch {
		case unmetReason != "":
			view.Status = models.StepStatusLocked
			view.LockedReason = unmetReason
			if cancelled[step] != nil {
				// Blocked again after a cancellation; show the history.
				view.Status = models.StepStatusCancelled
				view.Invoice = cancelled[step]
			}
		case isLast && !kontrak.HasBast:
			view.Status = models.StepStatusWaitingBast
			view.LockedReason = LockedReasonWaitingBast
		default:
			view.Status = models.StepStatusAvailable
			view.CanPay = true
			if cancelled[step] != nil {
				view.Invoice = cancelled[step]
			}
		}

		views = append(views, view)
	}

	return views
}

// FindStepView returns the view for a given step number, or nil.
func FindStepView(views []models.StepView, step int) *models.StepView {
	for i := range views {
		if views[i].Step == step {
			return &views[i]
		}
	}
	return nil
}

// ProjectSummary aggregates invoices and the commitment fee into the
// contract-level payment totals. Progress is counted in paid steps, not
// amounts, on purpose; see the category constants in models.
func ProjectSummary(kontrak *models.Kontrak, termin *models.Termin, invoices []models.Invoice) models.PaymentSummary {
	totalSteps := termin.TotalSteps()

	totalPaid := 0.0
	if kontrak.CommitmentFee.Paid {
		totalPaid += kontrak.CommitmentFee.Amount
	}

	paidByStep := make(map[int]bool, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status == models.InvoiceStatusPaid {
			totalPaid += inv.TotalAmount
			paidByStep[inv.TerminStep] = true
		}
	}

	paidSteps := 0
	currentStep := totalSteps + 1
	for step := 1; step <= totalSteps; step++ {
		if paidByStep[step] {
			paidSteps++
		} else if step < currentStep {
			currentStep = step
		}
	}

	remaining := kontrak.HargaKontrak - totalPaid
	if remaining < 0 {
		remaining = 0
	}

	progress := 0
	if totalSteps > 0 {
		progress = paidSteps * 100 / totalSteps
	}

	return models.PaymentSummary{
		HargaKontrak:    kontrak.HargaKontrak,
		TotalPaid:       totalPaid,
		RemainingToPay:  remaining,
		ProgressPercent: progress,
		CurrentStep:     currentStep,
		TotalSteps:      totalSteps,
		PaidSteps:       paidSteps,
		Category:        paymentCategory(paidSteps, totalSteps),
	}
}

// paymentCategory buckets a contract by how many steps are paid:
// none, exactly one (the DP), some, or all.
func paymentCategory(paidSteps, totalSteps int) string {
	switch {
	case paidSteps == 0:
		return models.PaymentCategoryBelumBayar
	case paidSteps >= totalSteps:
		return models.PaymentCategoryLunas
	case paidSteps == 1:
		return models.PaymentCategoryDp
	default:
		return models.PaymentCategoryProses
	}
}
