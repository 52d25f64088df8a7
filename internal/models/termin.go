package models

// TahapanStep is a single installment step within a termin template.
// Step numbers are 1-based and contiguous; Persentase values of a template
// must sum to 100 (enforced when the template is authored, not at runtime).
type TahapanStep struct {
	Step       int     `bson:"step" json:"step"`
	Text       string  `bson:"text" json:"text"`
	Persentase float64 `bson:"persentase" json:"persentase"`
}

// Termin is a payment-installment template ("termin"): an ordered list of
// percentage-weighted steps a contract price is paid in. Read-only reference
// data from the payment engine's point of view.
type Termin struct {
	Base      `bson:",inline"`
	KodeTipe  string        `bson:"kode_tipe" json:"kode_tipe"`
	NamaTipe  string        `bson:"nama_tipe" json:"nama_tipe"`
	Deskripsi string        `bson:"deskripsi,omitempty" json:"deskripsi,omitempty"`
	Tahapan   []TahapanStep `bson:"tahapan" json:"tahapan"`
}

// TotalSteps returns the number of steps in the template.
func (t *Termin) TotalSteps() int {
	return len(t.Tahapan)
}
