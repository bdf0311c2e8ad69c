package momentum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
)

func TestAggregateSectorAverages(t *testing.T) {
	metrics := map[string]Metrics{
		"RENDER": {Return7d: 10, VsBenchmark7d: 4, Return30d: 20},
		"TAO":    {Return7d: 20, VsBenchmark7d: 8, Return30d: 40},
	}

	agg, err := AggregateSector("AI", []string{"RENDER", "TAO"}, metrics)
	require.NoError(t, err)

	assert.Equal(t, "AI", agg.Sector)
	assert.Equal(t, 2, agg.ConstituentCount)
	assert.InDelta(t, 15.0, agg.AvgReturn7d, 1e-9)
	assert.InDelta(t, 6.0, agg.AvgVsBenchmark7d, 1e-9)
	assert.Equal(t, "TAO", agg.TopPerformer)
}

func TestAggregateSectorSkipsUnresolved(t *testing.T) {
	metrics := map[string]Metrics{
		"RENDER": {Return7d: 10},
	}

	agg, err := AggregateSector("AI", []string{"RENDER", "TAO", "FET"}, metrics)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.ConstituentCount)
	assert.Equal(t, "RENDER", agg.TopPerformer)
}

func TestAggregateSectorZeroResolvedFails(t *testing.T) {
	_, err := AggregateSector("AI", []string{"TAO", "FET"}, map[string]Metrics{})

	var insufficient *errs.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "AI", insufficient.Symbol)
	assert.Equal(t, 0, insufficient.Actual)
}

func TestAggregateSectorTopPerformerTieBreaksAlphabetically(t *testing.T) {
	metrics := map[string]Metrics{
		"FET": {Return7d: 12},
		"TAO": {Return7d: 12},
	}

	agg, err := AggregateSector("AI", []string{"TAO", "FET"}, metrics)
	require.NoError(t, err)
	assert.Equal(t, "FET", agg.TopPerformer)
}
