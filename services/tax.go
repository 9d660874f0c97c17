package services

import (
	"github.com/jpdeguzman/submeter-billing/backend/models"
)

// PenaltyRate is the surcharge applied to penalty-flagged tenants, as a
// whole-number percent. It runs through NormalizeRate like any stored rate.
const PenaltyRate = 25.0

// NormalizeRate resolves the dual percent representation used in stored tax
// codes: values >= 1 are whole-number percents (12 means 12%), values below 1
// are already fractions (0.12). Existing configuration data depends on this
// convention; every tax-rate read goes through here.
func NormalizeRate(r float64) float64 {
	if r >= 1 {
		return r / 100
	}
	return r
}

// ComputeTax applies the VAT / withholding / penalty cascade to a monetary
// base. Withholding is a fraction of the VAT amount, not of the base. Each
// output figure is rounded to 2 decimals independently; the total is derived
// from the unrounded intermediates and rounded once.
func ComputeTax(base, vatRate, wtRate float64, penaltySubject bool, penaltyRate float64) models.TaxBreakdown {
	vat := base * NormalizeRate(vatRate)
	wt := vat * NormalizeRate(wtRate)

	penalty := 0.0
	if penaltySubject {
		penalty = base * NormalizeRate(penaltyRate)
	}

	total := base + vat + penalty - wt

	return models.TaxBreakdown{
		Base:    Round2(base),
		Vat:     Round2(vat),
		Wt:      Round2(wt),
		Penalty: Round2(penalty),
		Total:   Round2(total),
	}
}
