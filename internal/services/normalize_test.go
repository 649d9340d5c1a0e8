package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestComputeWasteQty(t *testing.T) {
	assert.Equal(t, 11.0, ComputeWasteQty(10, 10))
	assert.Equal(t, 10.0, ComputeWasteQty(10, 0))
	assert.Equal(t, 20.0, ComputeWasteQty(10, 100))
	assert.Equal(t, 0.0, ComputeWasteQty(0, 50))
}

func TestComputeWasteKgMassUnits(t *testing.T) {
	kg := ComputeWasteKg(10, 10, UnitKg, nil, nil)
	require.NotNil(t, kg)
	assert.Equal(t, 11.0, *kg)

	kg = ComputeWasteKg(10, 10, UnitTonne, nil, nil)
	require.NotNil(t, kg)
	assert.Equal(t, 11000.0, *kg)
}

func TestComputeWasteKgLinear(t *testing.T) {
	kg := ComputeWasteKg(10, 10, UnitM, f64(50), nil)
	require.NotNil(t, kg)
	assert.InDelta(t, 550.0, *kg, 1e-9)

	// No linear factor available: indeterminate, not zero.
	assert.Nil(t, ComputeWasteKg(10, 10, UnitM, nil, nil))
}

func TestComputeWasteKgVolume(t *testing.T) {
	kg := ComputeWasteKg(10, 10, UnitM3, nil, f64(1200))
	require.NotNil(t, kg)
	assert.InDelta(t, 13200.0, *kg, 1e-9)

	// Litres convert through cubic metres.
	kg = ComputeWasteKg(2000, 0, UnitL, nil, f64(1000))
	require.NotNil(t, kg)
	assert.InDelta(t, 2000.0, *kg, 1e-9)

	assert.Nil(t, ComputeWasteKg(10, 10, UnitM3, nil, nil))
	assert.Nil(t, ComputeWasteKg(10, 10, UnitL, nil, nil))
}

func TestComputeWasteKgNonMassUnits(t *testing.T) {
	// Area and count never resolve to mass, even with factors present.
	assert.Nil(t, ComputeWasteKg(10, 10, UnitM2, f64(50), f64(1200)))
	assert.Nil(t, ComputeWasteKg(10, 10, UnitItem, f64(50), f64(1200)))
}

func TestComputeWasteKgDeterministic(t *testing.T) {
	a := ComputeWasteKg(7.3, 12.5, UnitM3, nil, f64(845.2))
	b := ComputeWasteKg(7.3, 12.5, UnitM3, nil, f64(845.2))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b)
}

func TestValidateQuantityInput(t *testing.T) {
	assert.NoError(t, ValidateQuantityInput(10, 10, UnitKg))
	assert.NoError(t, ValidateQuantityInput(0, 0, UnitItem))
	assert.NoError(t, ValidateQuantityInput(5, 100, UnitTonne))

	assert.Error(t, ValidateQuantityInput(-1, 10, UnitKg))
	assert.Error(t, ValidateQuantityInput(10, -1, UnitKg))
	assert.Error(t, ValidateQuantityInput(10, 101, UnitKg))
	assert.Error(t, ValidateQuantityInput(math.NaN(), 10, UnitKg))
	assert.Error(t, ValidateQuantityInput(math.Inf(1), 10, UnitKg))
	assert.Error(t, ValidateQuantityInput(10, math.NaN(), UnitKg))
	assert.Error(t, ValidateQuantityInput(10, 10, "bags"))

	var ve *ValidationError
	err := ValidateQuantityInput(10, 10, "bags")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "unit", ve.Field)
}

func TestUnitNeedsFactor(t *testing.T) {
	assert.True(t, UnitNeedsFactor(UnitM))
	assert.True(t, UnitNeedsFactor(UnitM3))
	assert.True(t, UnitNeedsFactor(UnitL))
	assert.False(t, UnitNeedsFactor(UnitKg))
	assert.False(t, UnitNeedsFactor(UnitTonne))
	assert.False(t, UnitNeedsFactor(UnitM2))
	assert.False(t, UnitNeedsFactor(UnitItem))
}
