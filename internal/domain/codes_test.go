package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardClass(t *testing.T) {
	for _, c := range []string{"C", "D", "P", "H", "R"} {
		got, err := ParseCardClass(c)
		assert.NoError(t, err, c)
		assert.NotEmpty(t, got.Description())
	}
	assert.True(t, CardClassCharge.IsExtended())
	assert.True(t, CardClassDeferredDebit.IsExtended())
	assert.False(t, CardClassCredit.IsExtended())

	_, err := ParseCardClass("X")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestProductType(t *testing.T) {
	assert.Equal(t, "Consumer Card", ProductTypeConsumer.Description())
	assert.Equal(t, "Commercial or Corporate Card", ProductTypeCommercial.Description())

	_, err := ParseProductType("cn")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOptionalFlags(t *testing.T) {
	assert.True(t, DCCFlagNone.IsValid())
	assert.True(t, DCCFlagAllowed.Allowed())
	_, err := ParseDCCFlag("DCC ALLOWED")
	assert.ErrorIs(t, err, ErrValidation)

	assert.True(t, GamingOCTNotStated.IsValid())
	_, err = ParseAcceptsGamingOCTPayments("X")
	assert.ErrorIs(t, err, ErrValidation)

	for _, f := range []string{"", "D", "N", "Y", "C"} {
		_, err := ParseFastFundsIndicator(f)
		assert.NoError(t, err, f)
	}
	_, err = ParseFastFundsIndicator("Z")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnonymousPrepaidCardMarker(t *testing.T) {
	for _, m := range []string{"A", "E", "N", "U"} {
		_, err := ParseAnonymousPrepaidCardMarker(m)
		assert.NoError(t, err, m)
	}
	_, err := ParseAnonymousPrepaidCardMarker("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSchemeProduct(t *testing.T) {
	assert.True(t, SchemeProduct("AC000").IsKnown())
	assert.False(t, SchemeProduct("ZZ999").IsKnown())
}
