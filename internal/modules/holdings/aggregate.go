package holdings

import "sort"

// SectorSummaries groups holdings by sector label and aggregates each
// group. Committed quantities only: sector rows reflect saved state,
// not in-flight edits. The portfolio's total investment is passed in to
// avoid a second scan. Output is sorted by sector label so repeated
// runs over the same collection compare equal.
//
// Sector membership is by label, so zero-quantity holdings still count
// toward their sector's row.
func SectorSummaries(hs []Holding, totalInvestment float64) []SectorSummary {
	groups := make(map[string]*SectorSummary)

	for _, h := range hs {
		s, ok := groups[h.Sector]
		if !ok {
			s = &SectorSummary{Sector: h.Sector}
			groups[h.Sector] = s
		}

		s.TotalInvestment += Investment(h, nil)
		s.PresentValue += PresentValue(h, nil)
		s.HoldingCount++
		s.TotalQuantity += h.Quantity
	}

	summaries := make([]SectorSummary, 0, len(groups))
	for _, s := range groups {
		s.GainLoss = s.PresentValue - s.TotalInvestment
		if totalInvestment != 0 {
			s.PortfolioPercent = s.TotalInvestment / totalInvestment * 100
		}
		summaries = append(summaries, *s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Sector < summaries[j].Sector
	})

	return summaries
}

// Summarize reduces the holding collection into portfolio-wide totals.
// StockCount counts positions, including zero-quantity ones.
func Summarize(hs []Holding) PortfolioSummary {
	sectors := make(map[string]bool)
	summary := PortfolioSummary{
		StockCount: len(hs),
	}

	for _, h := range hs {
		summary.TotalInvestment += Investment(h, nil)
		summary.TotalValue += PresentValue(h, nil)
		sectors[h.Sector] = true
	}

	summary.TotalGainLoss = summary.TotalValue - summary.TotalInvestment
	if summary.TotalInvestment != 0 {
		summary.TotalGainLossPercent = summary.TotalGainLoss / summary.TotalInvestment * 100
	}
	summary.SectorCount = len(sectors)

	return summary
}
