package normalize

import "gmvmax_dev_v1_202602/internal/model"

// SummariseMetrics 聚合报表行
// ROAS = Σgmv / Σspend，仅在 spend>0 时给出
func SummariseMetrics(rows []model.MetricsRow) model.MetricsSummary {
	var sum model.MetricsSummary
	for _, r := range rows {
		sum.Spend += r.Spend
		sum.GMV += r.GMV
		sum.Orders += r.Orders
	}
	if sum.Spend > 0 {
		roas := sum.GMV / sum.Spend
		sum.ROAS = &roas
	}
	return sum
}
