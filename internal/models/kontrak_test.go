package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kontrakEndingIn(now time.Time, days int) *Kontrak {
	deadline := now.AddDate(0, 0, days)
	return &Kontrak{
		Base:           NewBase(),
		NamaProject:    "Renovasi Kantor",
		TanggalSelesai: &deadline,
	}
}

func TestKontrak_SisaHari(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	k := kontrakEndingIn(now, 10)
	sisa := k.SisaHari(now)
	require.NotNil(t, sisa)
	assert.Equal(t, 10, *sisa)

	overdue := kontrakEndingIn(now, -3)
	sisa = overdue.SisaHari(now)
	require.NotNil(t, sisa)
	assert.Equal(t, -3, *sisa)

	noDeadline := &Kontrak{Base: NewBase()}
	assert.Nil(t, noDeadline.SisaHari(now))
}

func TestKontrak_DeadlineStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want string
	}{
		{-1, DeadlineOverdue},
		{0, DeadlineUrgent},
		{7, DeadlineUrgent},
		{8, DeadlineWarning},
		{14, DeadlineWarning},
		{15, DeadlineNormal},
		{60, DeadlineNormal},
	}
	for _, tc := range cases {
		k := kontrakEndingIn(now, tc.days)
		assert.Equal(t, tc.want, k.DeadlineStatus(now, 7, 14), "deadline in %d days", tc.days)
	}

	noDeadline := &Kontrak{Base: NewBase()}
	assert.Equal(t, DeadlineUnknown, noDeadline.DeadlineStatus(now, 7, 14))
}

func TestKontrak_DeadlineStatus_ConfiguredWindows(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Wider windows reclassify the same deadline.
	k := kontrakEndingIn(now, 10)
	assert.Equal(t, DeadlineWarning, k.DeadlineStatus(now, 7, 14))
	assert.Equal(t, DeadlineUrgent, k.DeadlineStatus(now, 10, 30))
	assert.Equal(t, DeadlineNormal, k.DeadlineStatus(now, 3, 5))

	// Non-positive windows fall back to the 7/14 defaults.
	assert.Equal(t, DeadlineWarning, k.DeadlineStatus(now, 0, 0))
}

func TestInvoice_Active(t *testing.T) {
	pending := &Invoice{Status: InvoiceStatusPending}
	paid := &Invoice{Status: InvoiceStatusPaid}
	cancelled := &Invoice{Status: InvoiceStatusCancelled}

	assert.True(t, pending.Active())
	assert.True(t, paid.Active())
	assert.False(t, cancelled.Active())
}

func TestTermin_TotalSteps(t *testing.T) {
	termin := &Termin{Tahapan: []TahapanStep{{Step: 1}, {Step: 2}}}
	assert.Equal(t, 2, termin.TotalSteps())
	assert.Equal(t, 0, (&Termin{}).TotalSteps())
}
