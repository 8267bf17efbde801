package holdings

import "math"

// Valuation of a single holding. All functions are pure and accept an
// optional effective-quantity override (nil means the stored quantity),
// so an uncommitted edit can be previewed through the same code path as
// committed state. Wherever a denominator can be zero the result is 0
// by policy, never NaN or Inf.

func effectiveQuantity(h Holding, qty *int64) float64 {
	if qty != nil {
		return float64(*qty)
	}
	return float64(h.Quantity)
}

// Investment returns the cost basis: purchase price times effective quantity
func Investment(h Holding, qty *int64) float64 {
	return h.PurchasePrice * effectiveQuantity(h, qty)
}

// PresentValue returns current price times effective quantity
func PresentValue(h Holding, qty *int64) float64 {
	return h.CurrentPrice * effectiveQuantity(h, qty)
}

// GainLoss returns present value minus investment, computed with the
// same effective quantity on both sides so the identity holds exactly.
func GainLoss(h Holding, qty *int64) float64 {
	return PresentValue(h, qty) - Investment(h, qty)
}

// GainLossPercent returns gain/loss over investment as a percentage.
// Zero investment (zero purchase price or zero quantity) yields 0.
func GainLossPercent(h Holding, qty *int64) float64 {
	investment := Investment(h, qty)
	if investment == 0 {
		return 0
	}
	return GainLoss(h, qty) / investment * 100
}

// PortfolioPercent returns this holding's share of the portfolio's
// total investment as a percentage. Zero total investment yields 0.
func PortfolioPercent(h Holding, totalInvestment float64, qty *int64) float64 {
	if totalInvestment == 0 {
		return 0
	}
	return Investment(h, qty) / totalInvestment * 100
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
