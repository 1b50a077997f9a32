package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmvmax_dev_v1_202602/internal/model"
)

func TestSummariseMetrics(t *testing.T) {
	rows := []model.MetricsRow{
		{Date: "2025-01-01", Spend: 10, GMV: 30, Orders: 2},
		{Date: "2025-01-02", Spend: 5, GMV: 15, Orders: 1},
	}

	sum := SummariseMetrics(rows)

	assert.Equal(t, float64(15), sum.Spend)
	assert.Equal(t, float64(45), sum.GMV)
	assert.Equal(t, int64(3), sum.Orders)
	require.NotNil(t, sum.ROAS)
	assert.InDelta(t, 3.0, *sum.ROAS, 1e-9)
}

func TestSummariseMetrics_NoSpendNoROAS(t *testing.T) {
	sum := SummariseMetrics([]model.MetricsRow{{GMV: 100}})

	assert.Nil(t, sum.ROAS)
}
