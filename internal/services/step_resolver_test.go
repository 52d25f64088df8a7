package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
)

func testTermin(persentase ...float64) *models.Termin {
	termin := &models.Termin{
		Base:     models.NewBase(),
		KodeTipe: "T1",
		NamaTipe: "Termin Test",
	}
	for i, p := range persentase {
		termin.Tahapan = append(termin.Tahapan, models.TahapanStep{
			Step:       i + 1,
			Text:       "Tahap",
			Persentase: p,
		})
	}
	return termin
}

func testKontrak(harga, fee float64, feePaid bool) *models.Kontrak {
	return &models.Kontrak{
		Base:         models.NewBase(),
		NamaProject:  "Rumah Tipe 45",
		TerminID:     primitive.NewObjectID(),
		HargaKontrak: harga,
		CommitmentFee: models.CommitmentFee{
			Amount: fee,
			Paid:   feePaid,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func invoiceFor(kontrak *models.Kontrak, step int, status models.InvoiceStatus) models.Invoice {
	inv := models.Invoice{
		Base:       models.NewBase(),
		KontrakID:  kontrak.ID,
		TerminStep: step,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	if status == models.InvoiceStatusPaid {
		now := time.Now().UTC()
		inv.PaidAt = &now
	}
	return inv
}

func TestResolveSteps_FreshContract(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, true)
	termin := testTermin(30, 40, 30)

	views := ResolveSteps(kontrak, termin, nil)
	require.Len(t, views, 3)

	assert.Equal(t, models.StepStatusAvailable, views[0].Status)
	assert.True(t, views[0].CanPay)
	assert.Equal(t, models.StepStatusLocked, views[1].Status)
	assert.Equal(t, LockedReasonPreviousStepUnpaid, views[1].LockedReason)
	assert.Equal(t, models.StepStatusLocked, views[2].Status)
	assert.False(t, views[1].CanPay)
	assert.False(t, views[2].CanPay)
}

func TestResolveSteps_NominalExcludesCommitmentFee(t *testing.T) {
	kontrak := testKontrak(100_000_000, 10_000_000, true)
	termin := testTermin(30, 40, 30)

	views := ResolveSteps(kontrak, termin, nil)
	require.Len(t, views, 3)

	// 30/40/30 percent of (100M - 10M).
	assert.InDelta(t, 27_000_000, views[0].Nominal, 0.01)
	assert.InDelta(t, 36_000_000, views[1].Nominal, 0.01)
	assert.InDelta(t, 27_000_000, views[2].Nominal, 0.01)
}

func TestResolveSteps_CommitmentFeeGatesFirstStep(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, false)
	termin := testTermin(50, 50)

	views := ResolveSteps(kontrak, termin, nil)
	require.Len(t, views, 2)

	assert.Equal(t, models.StepStatusLocked, views[0].Status)
	assert.Equal(t, LockedReasonCommitmentFeeUnpaid, views[0].LockedReason)
	assert.False(t, views[0].CanPay)
}

func TestResolveSteps_NoCommitmentFeeDefined(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	views := ResolveSteps(kontrak, termin, nil)
	assert.Equal(t, models.StepStatusAvailable, views[0].Status)
	assert.True(t, views[0].CanPay)
}

func TestResolveSteps_SequentialUnlock(t *testing.T) {
	kontrak := testKontrak(200_000_000, 0, false)
	kontrak.HasBast = true
	termin := testTermin(25, 25, 25, 25)

	invoices := []models.Invoice{
		invoiceFor(kontrak, 1, models.InvoiceStatusPaid),
		invoiceFor(kontrak, 2, models.InvoiceStatusPaid),
	}

	views := ResolveSteps(kontrak, termin, invoices)
	require.Len(t, views, 4)

	assert.Equal(t, models.StepStatusPaid, views[0].Status)
	assert.Equal(t, models.StepStatusPaid, views[1].Status)
	assert.Equal(t, models.StepStatusAvailable, views[2].Status)
	assert.True(t, views[2].CanPay)
	assert.Equal(t, models.StepStatusLocked, views[3].Status)
}

func TestResolveSteps_PendingInvoiceOccupiesStep(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{invoiceFor(kontrak, 1, models.InvoiceStatusPending)}

	views := ResolveSteps(kontrak, termin, invoices)
	assert.Equal(t, models.StepStatusPending, views[0].Status)
	assert.False(t, views[0].CanPay)
	require.NotNil(t, views[0].Invoice)

	// A pending invoice does not satisfy the previous-step requirement.
	assert.Equal(t, models.StepStatusLocked, views[1].Status)
	assert.Equal(t, LockedReasonPreviousStepUnpaid, views[1].LockedReason)
}

func TestResolveSteps_LastStepWaitsForBast(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{invoiceFor(kontrak, 1, models.InvoiceStatusPaid)}

	views := ResolveSteps(kontrak, termin, invoices)
	require.Len(t, views, 2)
	assert.Equal(t, models.StepStatusWaitingBast, views[1].Status)
	assert.Equal(t, LockedReasonWaitingBast, views[1].LockedReason)
	assert.False(t, views[1].CanPay)

	kontrak.HasBast = true
	views = ResolveSteps(kontrak, termin, invoices)
	assert.Equal(t, models.StepStatusAvailable, views[1].Status)
	assert.True(t, views[1].CanPay)
}

func TestResolveSteps_PaidLastStepWithoutBastWarns(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{
		invoiceFor(kontrak, 1, models.InvoiceStatusPaid),
		invoiceFor(kontrak, 2, models.InvoiceStatusPaid),
	}

	views := ResolveSteps(kontrak, termin, invoices)
	assert.Equal(t, models.StepStatusPaid, views[1].Status)
	assert.NotEmpty(t, views[1].Warning)

	kontrak.HasBast = true
	views = ResolveSteps(kontrak, termin, invoices)
	assert.Empty(t, views[1].Warning)
}

func TestResolveSteps_CancelledInvoiceFreesStep(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{invoiceFor(kontrak, 1, models.InvoiceStatusCancelled)}

	views := ResolveSteps(kontrak, termin, invoices)
	// The freed step is re-generatable; the cancelled invoice stays visible.
	assert.Equal(t, models.StepStatusAvailable, views[0].Status)
	assert.True(t, views[0].CanPay)
	require.NotNil(t, views[0].Invoice)
	assert.Equal(t, models.InvoiceStatusCancelled, views[0].Invoice.Status)

	// A cancelled invoice never satisfies the previous-step requirement.
	assert.Equal(t, models.StepStatusLocked, views[1].Status)
}

func TestResolveSteps_CancelledShownWhenStillBlocked(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{invoiceFor(kontrak, 1, models.InvoiceStatusCancelled)}

	views := ResolveSteps(kontrak, termin, invoices)
	// Fee got un-payable after the cancel; the step shows its history.
	assert.Equal(t, models.StepStatusCancelled, views[0].Status)
	assert.False(t, views[0].CanPay)
	require.NotNil(t, views[0].Invoice)
}

func TestResolveSteps_ZeroPercentageStepStillGated(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(100, 0)

	views := ResolveSteps(kontrak, termin, nil)
	require.Len(t, views, 2)
	assert.InDelta(t, 0, views[1].Nominal, 0.01)
	assert.Equal(t, models.StepStatusLocked, views[1].Status)
}

func TestResolveSteps_SingleStepTemplate(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, false)
	termin := testTermin(100)

	// Single step is both first and last: commitment fee gate wins first.
	views := ResolveSteps(kontrak, termin, nil)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsLastStep)
	assert.Equal(t, models.StepStatusLocked, views[0].Status)
	assert.Equal(t, LockedReasonCommitmentFeeUnpaid, views[0].LockedReason)

	// Fee paid, still no BAST.
	kontrak.CommitmentFee.Paid = true
	views = ResolveSteps(kontrak, termin, nil)
	assert.Equal(t, models.StepStatusWaitingBast, views[0].Status)

	kontrak.HasBast = true
	views = ResolveSteps(kontrak, termin, nil)
	assert.Equal(t, models.StepStatusAvailable, views[0].Status)
	assert.True(t, views[0].CanPay)
}

func TestResolveSteps_AtMostOnePayableStep(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	kontrak.HasBast = true
	termin := testTermin(20, 20, 20, 20, 20)

	states := [][]models.Invoice{
		nil,
		{invoiceFor(kontrak, 1, models.InvoiceStatusPaid)},
		{invoiceFor(kontrak, 1, models.InvoiceStatusPaid), invoiceFor(kontrak, 2, models.InvoiceStatusPaid)},
		{invoiceFor(kontrak, 1, models.InvoiceStatusPaid), invoiceFor(kontrak, 2, models.InvoiceStatusPending)},
	}

	for _, invoices := range states {
		payable := 0
		for _, v := range ResolveSteps(kontrak, termin, invoices) {
			if v.CanPay {
				payable++
			}
		}
		assert.LessOrEqual(t, payable, 1)
	}
}

func TestFindStepView(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)
	views := ResolveSteps(kontrak, termin, nil)

	assert.NotNil(t, FindStepView(views, 1))
	assert.NotNil(t, FindStepView(views, 2))
	assert.Nil(t, FindStepView(views, 3))
	assert.Nil(t, FindStepView(views, 0))
}

func TestProjectSummary_FreshContract(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, false)
	termin := testTermin(30, 40, 30)

	summary := ProjectSummary(kontrak, termin, nil)
	assert.Equal(t, 100_000_000.0, summary.HargaKontrak)
	assert.Equal(t, 0.0, summary.TotalPaid)
	assert.Equal(t, 100_000_000.0, summary.RemainingToPay)
	assert.Equal(t, 0, summary.ProgressPercent)
	assert.Equal(t, 1, summary.CurrentStep)
	assert.Equal(t, models.PaymentCategoryBelumBayar, summary.Category)
}

func TestProjectSummary_IncludesCommitmentFee(t *testing.T) {
	kontrak := testKontrak(100_000_000, 5_000_000, true)
	termin := testTermin(50, 50)

	summary := ProjectSummary(kontrak, termin, nil)
	assert.Equal(t, 5_000_000.0, summary.TotalPaid)
	assert.Equal(t, 95_000_000.0, summary.RemainingToPay)
	// The fee is not a termin step; progress stays zero.
	assert.Equal(t, 0, summary.ProgressPercent)
	assert.Equal(t, models.PaymentCategoryBelumBayar, summary.Category)
}

func TestProjectSummary_ProgressAndCategories(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(30, 40, 30)

	paid := func(step int, amount float64) models.Invoice {
		inv := invoiceFor(kontrak, step, models.InvoiceStatusPaid)
		inv.TotalAmount = amount
		return inv
	}

	one := []models.Invoice{paid(1, 30_000_000)}
	summary := ProjectSummary(kontrak, termin, one)
	assert.Equal(t, 33, summary.ProgressPercent)
	assert.Equal(t, 2, summary.CurrentStep)
	assert.Equal(t, 1, summary.PaidSteps)
	assert.Equal(t, models.PaymentCategoryDp, summary.Category)

	two := append(one, paid(2, 40_000_000))
	summary = ProjectSummary(kontrak, termin, two)
	assert.Equal(t, 66, summary.ProgressPercent)
	assert.Equal(t, 3, summary.CurrentStep)
	assert.Equal(t, models.PaymentCategoryProses, summary.Category)

	three := append(two, paid(3, 30_000_000))
	summary = ProjectSummary(kontrak, termin, three)
	assert.Equal(t, 100, summary.ProgressPercent)
	assert.Equal(t, 4, summary.CurrentStep)
	assert.Equal(t, 100_000_000.0, summary.TotalPaid)
	assert.Equal(t, 0.0, summary.RemainingToPay)
	assert.Equal(t, models.PaymentCategoryLunas, summary.Category)
}

func TestProjectSummary_SingleStepPaidIsLunas(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(100)

	inv := invoiceFor(kontrak, 1, models.InvoiceStatusPaid)
	inv.TotalAmount = 100_000_000

	summary := ProjectSummary(kontrak, termin, []models.Invoice{inv})
	// One paid step out of one is lunas, not dp.
	assert.Equal(t, models.PaymentCategoryLunas, summary.Category)
	assert.Equal(t, 100, summary.ProgressPercent)
}

func TestProjectSummary_CancelledAndPendingDoNotCount(t *testing.T) {
	kontrak := testKontrak(100_000_000, 0, false)
	termin := testTermin(50, 50)

	invoices := []models.Invoice{
		invoiceFor(kontrak, 1, models.InvoiceStatusCancelled),
		invoiceFor(kontrak, 2, models.InvoiceStatusPending),
	}

	summary := ProjectSummary(kontrak, termin, invoices)
	assert.Equal(t, 0.0, summary.TotalPaid)
	assert.Equal(t, 0, summary.PaidSteps)
	assert.Equal(t, 1, summary.CurrentStep)
	assert.Equal(t, models.PaymentCategoryBelumBayar, summary.Category)
}
