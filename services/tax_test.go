package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRate(t *testing.T) {
	assert.Equal(t, 0.12, NormalizeRate(12))
	assert.Equal(t, 0.12, NormalizeRate(0.12))
	assert.Equal(t, 0.01, NormalizeRate(1))
	assert.Equal(t, 0.0, NormalizeRate(0))
	assert.Equal(t, 0.999, NormalizeRate(0.999))
}

func TestComputeTaxCascade(t *testing.T) {
	b := ComputeTax(1000, 12, 5, false, PenaltyRate)

	assert.Equal(t, 1000.0, b.Base)
	assert.Equal(t, 120.0, b.Vat)
	// Withholding applies to the VAT amount, not the base
	assert.Equal(t, 6.0, b.Wt)
	assert.Equal(t, 0.0, b.Penalty)
	assert.Equal(t, 1114.0, b.Total)
}

func TestComputeTaxPenalty(t *testing.T) {
	b := ComputeTax(1000, 12, 5, true, PenaltyRate)

	assert.Equal(t, 250.0, b.Penalty)
	assert.Equal(t, 1364.0, b.Total)
}

func TestComputeTaxRateRepresentationsEquivalent(t *testing.T) {
	whole := ComputeTax(847.33, 12, 5, true, 25)
	fraction := ComputeTax(847.33, 0.12, 0.05, true, 0.25)

	assert.Equal(t, whole, fraction)
}

func TestComputeTaxZeroRates(t *testing.T) {
	b := ComputeTax(500, 0, 0, false, PenaltyRate)

	assert.Equal(t, 500.0, b.Base)
	assert.Equal(t, 0.0, b.Vat)
	assert.Equal(t, 0.0, b.Wt)
	assert.Equal(t, 500.0, b.Total)
}

func TestComputeTaxRoundsOutputs(t *testing.T) {
	// base 333.333 * 12% = 39.99996, rounds to 40.00
	b := ComputeTax(333.333, 12, 0, false, PenaltyRate)

	assert.Equal(t, 333.33, b.Base)
	assert.Equal(t, 40.0, b.Vat)
	// Total derives from unrounded intermediates: 333.333 + 39.99996 = 373.33296
	assert.Equal(t, 373.33, b.Total)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 120.0, Round2(119.99999999999999))
	assert.Equal(t, -2.34, Round2(-2.344))
}
