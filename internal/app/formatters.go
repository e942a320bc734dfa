package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/bolsa/internal/models"
)

// formatNumber renders v with places decimals and '.' thousands grouping,
// the way the exchange publishes prices.
func formatNumber(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := grouped.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func formatSignedPct(v float64) string {
	if v > 0 {
		return "+" + formatNumber(v, 2) + "%"
	}
	return formatNumber(v, 2) + "%"
}

// formatDay formats a session as markdown
func formatDay(day *models.Day) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Session %s\n\n", day.Date.Display()))
	if day.Empty() {
		sb.WriteString("No data for this date.\n")
		return sb.String()
	}

	if day.Index != nil {
		sb.WriteString(fmt.Sprintf("**Índice General:** %s (%s)\n\n",
			formatNumber(day.Index.Value, 2), formatSignedPct(day.Index.PercentChange)))
	}

	records := make([]models.MarketRecord, len(day.Records))
	copy(records, day.Records)
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })

	sb.WriteString("| Symbol | Name | Previous | Close | Change | Change % | Quantity | Amount | Source |\n")
	sb.WriteString("|--------|------|----------|-------|--------|----------|----------|--------|--------|\n")
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %d | %s | %s |\n",
			r.Symbol, r.DisplayName,
			formatNumber(r.PreviousPrice, 2), formatNumber(r.CurrentPrice, 2),
			formatNumber(r.AbsoluteChange, 4), formatSignedPct(r.PercentChange),
			r.TradedQuantity, formatNumber(r.TradedAmount, 2), r.Source))
	}
	sb.WriteString(fmt.Sprintf("\n%d symbols traded.\n", len(records)))
	return sb.String()
}

// formatSymbolHistory formats a symbol range query as markdown
func formatSymbolHistory(h *models.SymbolHistory) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s: %s to %s\n\n", h.Symbol, h.From.Display(), h.To.Display()))
	if h.Series == nil || h.Series.Len() == 0 {
		sb.WriteString("No records in this range.\n")
		return sb.String()
	}

	s := h.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Sessions:** %d (up %d, down %d, flat %d)\n", s.TotalDays, s.UpDays, s.DownDays, s.FlatDays))
	sb.WriteString(fmt.Sprintf("**First / Last:** %s / %s\n", formatNumber(s.FirstPrice, 2), formatNumber(s.LastPrice, 2)))
	sb.WriteString(fmt.Sprintf("**Return:** %s (%s)\n", formatNumber(s.Change, 2), formatSignedPct(s.ReturnPercent)))
	sb.WriteString(fmt.Sprintf("**Range:** %s - %s (mean %s)\n", formatNumber(s.MinPrice, 2), formatNumber(s.MaxPrice, 2), formatNumber(s.MeanPrice, 2)))
	sb.WriteString(fmt.Sprintf("**Volatility:** %s%%\n", formatNumber(s.Volatility, 2)))
	sb.WriteString(fmt.Sprintf("**Best / Worst Day:** %s / -%s%%\n\n", formatSignedPct(s.MaxDailyGain), formatNumber(s.MaxDailyLoss, 2)))

	sb.WriteString("## Records\n\n")
	sb.WriteString("| Date | Close | Change % | Quantity | Source |\n")
	sb.WriteString("|------|-------|----------|----------|--------|\n")
	for _, r := range h.Series.Descending() {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			r.Date.Display(), formatNumber(r.CurrentPrice, 2), formatSignedPct(r.PercentChange), r.TradedQuantity, r.Source))
	}
	if h.FromCache {
		sb.WriteString("\n_Served from cache._\n")
	}
	return sb.String()
}

// formatIndexHistory formats an index range query as markdown
func formatIndexHistory(h *models.IndexHistory) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Índice General: %s to %s\n\n", h.From.Display(), h.To.Display()))
	if len(h.Points) == 0 {
		sb.WriteString("No index values in this range.\n")
		return sb.String()
	}

	st := h.Stats
	sb.WriteString(fmt.Sprintf("**Values:** %d (%d automatic, %d manual, %d adjusted)\n", st.Count, st.AutomaticCount, st.ManualCount, st.AdjustedCount))
	sb.WriteString(fmt.Sprintf("**Range:** %s - %s (mean %s)\n", formatNumber(st.Min, 2), formatNumber(st.Max, 2), formatNumber(st.Mean, 2)))
	sb.WriteString(fmt.Sprintf("**Change:** %s\n\n", formatSignedPct(st.HistoricChange)))

	sb.WriteString("| Date | Value | Change % | Source | Adjusted |\n")
	sb.WriteString("|------|-------|----------|--------|----------|\n")
	for i := len(h.Points) - 1; i >= 0; i-- {
		p := h.Points[i]
		adjusted := ""
		if p.Adjusted {
			adjusted = "yes"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			p.Date.Display(), formatNumber(p.Value, 2), formatSignedPct(p.PercentChange), p.Source, adjusted))
	}
	return sb.String()
}

// formatStats formats store and cache state as markdown
func formatStats(st *models.ServiceStats) string {
	var sb strings.Builder

	sb.WriteString("# Store\n\n")
	sb.WriteString(fmt.Sprintf("- Records: %d\n", st.Store.Records))
	sb.WriteString(fmt.Sprintf("- Index values: %d\n", st.Store.Indices))
	sb.WriteString(fmt.Sprintf("- Manual records: %d\n", st.Store.ManualRecords))
	sb.WriteString(fmt.Sprintf("- Manual index values: %d\n", st.Store.ManualIndices))
	sb.WriteString(fmt.Sprintf("- Distinct dates: %d\n", st.Store.DistinctDates))
	sb.WriteString(fmt.Sprintf("- Exchange rates: %d\n\n", st.Store.ExchangeRates))

	q := st.QueryCache
	sb.WriteString("# Caches\n\n")
	sb.WriteString(fmt.Sprintf("- Record cache: %d / %d days\n", st.RecordCacheEntries, st.RecordCacheCapacity))
	sb.WriteString(fmt.Sprintf("- Query cache: %d / %d entries, %d hits, %d misses (%s hit rate)\n",
		q.Entries, q.Capacity, q.Hits, q.Misses, formatNumber(q.HitRate*100, 1)+"%"))

	if len(q.MostFrequent) > 0 {
		sb.WriteString("\n## Most used queries\n\n")
		for _, e := range q.MostFrequent {
			sb.WriteString(fmt.Sprintf("- %s %s..%s (%d hits)\n", e.Symbol, e.From, e.To, e.HitCount))
		}
	}
	return sb.String()
}
