package screener

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ScanSummary aggregates scan-level statistics for the dashboard header
type ScanSummary struct {
	Count               int     `json:"count"`
	MeanScore           float64 `json:"mean_score"`
	TopQuartileScore    float64 `json:"top_quartile_score"`
	MeanNetDebit        float64 `json:"mean_net_debit"`
	MeanAnnualizedROI   float64 `json:"mean_annualized_roi"`
	MedianAnnualizedROI float64 `json:"median_annualized_roi"`
	StdDevAnnualizedROI float64 `json:"stddev_annualized_roi"`
}

// Summarize computes summary statistics over a normalized scan.
// An empty scan yields a zero summary.
func Summarize(opps []NormalizedOpportunity) ScanSummary {
	if len(opps) == 0 {
		return ScanSummary{}
	}

	scores := make([]float64, len(opps))
	debits := make([]float64, len(opps))
	rois := make([]float64, len(opps))
	for i := range opps {
		scores[i] = opps[i].Score
		debits[i] = opps[i].NetDebit
		rois[i] = opps[i].AnnualizedROI
	}

	// Quantile requires sorted input
	sort.Float64s(scores)
	sort.Float64s(rois)

	summary := ScanSummary{
		Count:               len(opps),
		MeanScore:           stat.Mean(scores, nil),
		TopQuartileScore:    stat.Quantile(0.75, stat.Empirical, scores, nil),
		MeanNetDebit:        stat.Mean(debits, nil),
		MeanAnnualizedROI:   stat.Mean(rois, nil),
		MedianAnnualizedROI: stat.Quantile(0.5, stat.Empirical, rois, nil),
	}
	if len(rois) > 1 {
		summary.StdDevAnnualizedROI = stat.StdDev(rois, nil)
	}
	return summary
}
