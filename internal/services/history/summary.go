package history

import (
	"math"

	"github.com/bobmcallan/bolsa/internal/models"
)

// SummarizeSymbol computes the price path statistics of an ascending series.
// Daily moves are the records' own percent changes; volatility is their
// population standard deviation.
func SummarizeSymbol(ascending []models.MarketRecord) models.SymbolSummary {
	var s models.SymbolSummary
	n := len(ascending)
	if n == 0 {
		return s
	}

	first, last := ascending[0], ascending[n-1]
	s.FirstPrice = first.CurrentPrice
	s.LastPrice = last.CurrentPrice
	s.Change = last.CurrentPrice - first.CurrentPrice
	if first.CurrentPrice > 0 {
		s.ReturnPercent = percentOf(s.Change, first.CurrentPrice)
	}
	s.FirstDate = first.Date
	s.LastDate = last.Date
	s.TotalDays = n

	s.MinPrice = first.CurrentPrice
	s.MaxPrice = first.CurrentPrice
	maxMove := math.Inf(-1)
	minMove := math.Inf(1)
	var priceSum, moveSum float64
	for _, r := range ascending {
		priceSum += r.CurrentPrice
		s.MinPrice = math.Min(s.MinPrice, r.CurrentPrice)
		s.MaxPrice = math.Max(s.MaxPrice, r.CurrentPrice)

		move := r.PercentChange
		moveSum += move
		maxMove = math.Max(maxMove, move)
		minMove = math.Min(minMove, move)
		switch {
		case move > 0:
			s.UpDays++
		case move < 0:
			s.DownDays++
		default:
			s.FlatDays++
		}
	}
	s.MeanPrice = priceSum / float64(n)
	s.MaxDailyGain = maxMove
	s.MaxDailyLoss = math.Abs(minMove)

	if n > 1 {
		mean := moveSum / float64(n)
		var variance float64
		for _, r := range ascending {
			d := r.PercentChange - mean
			variance += d * d
		}
		s.Volatility = math.Sqrt(variance / float64(n))
	}
	return s
}
