// Package fx imports and serves the official (BCV) dollar exchange rates.
package fx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/datfile"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

// headerScanRows bounds how far down the sheet the header row may sit.
const headerScanRows = 10

// ErrNoHeader is returned when the workbook lacks the Fecha and Tasa columns.
var ErrNoHeader = errors.New("workbook has no Fecha/Tasa header row")

// Service implements FXService
type Service struct {
	rates  interfaces.RateStore
	logger *common.Logger
}

// NewService creates the exchange-rate service over a rate store.
func NewService(rates interfaces.RateStore, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{rates: rates, logger: logger}
}

type columns struct {
	date, rate, change int
}

// ImportWorkbook loads the first sheet of an .xlsx file. Rows that cannot be
// read are skipped. Existing dates are overwritten. Returns the rows stored.
func (s *Service) ImportWorkbook(ctx context.Context, path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	start, cols, ok := findHeader(rows)
	if !ok {
		return 0, ErrNoHeader
	}

	var rates []models.ExchangeRate
	skipped := 0
	for _, row := range rows[start:] {
		rate, ok := parseRow(row, cols)
		if !ok {
			if !blank(row) {
				skipped++
			}
			continue
		}
		rates = append(rates, rate)
	}

	if len(rates) > 0 {
		if err := s.rates.SaveRates(ctx, rates); err != nil {
			return 0, err
		}
	}

	s.logger.Info().
		Str("file", path).
		Str("sheet", sheets[0]).
		Int("rates", len(rates)).
		Int("skipped", skipped).
		Msg("Exchange rates imported")
	return len(rates), nil
}

// RateFor returns the rate for date, or the closest earlier one.
func (s *Service) RateFor(ctx context.Context, date models.Date) (*models.ExchangeRate, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	rate, err := s.rates.RateOnOrBefore(ctx, date)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, fmt.Errorf("%w: no exchange rate on or before %s", models.ErrNotFound, date)
	}
	return rate, nil
}

// Rates lists stored rates over [from, to], ascending.
func (s *Service) Rates(ctx context.Context, from, to models.Date) ([]models.ExchangeRate, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: range %q..%q", models.ErrInvalidDate, from, to)
	}
	from, to = models.OrderRange(from, to)
	return s.rates.ListRates(ctx, from, to)
}

// DollarComparison restates each record in dollars and compares its daily
// move with the rate's. Records without a rate keep zero dollar values.
func (s *Service) DollarComparison(ctx context.Context, records []models.MarketRecord) ([]models.DollarPoint, error) {
	lookups := make(map[models.Date]*models.ExchangeRate)
	out := make([]models.DollarPoint, 0, len(records))

	for _, r := range records {
		rate, seen := lookups[r.Date]
		if !seen {
			var err error
			rate, err = s.rates.RateOnOrBefore(ctx, r.Date)
			if err != nil {
				return nil, err
			}
			lookups[r.Date] = rate
		}

		p := models.DollarPoint{
			Date:          r.Date,
			Symbol:        r.Symbol,
			Price:         r.CurrentPrice,
			PreviousPrice: r.PreviousPrice,
			VersusDollar:  r.PercentChange,
		}
		if rate != nil && rate.Rate > 0 {
			p.Rate = rate.Rate
			p.RateDate = rate.Date
			p.ExactRate = rate.Date == r.Date
			p.PriceUSD = divide(r.CurrentPrice, rate.Rate)
			p.PreviousUSD = divide(r.PreviousPrice, rate.Rate)
			if p.PreviousUSD > 0 {
				p.ChangeUSDPercent = round2((p.PriceUSD - p.PreviousUSD) / p.PreviousUSD * 100)
			}
			p.RateChangePercent = round2(rate.Change * 100)
			p.VersusDollar = round2(r.PercentChange - p.RateChangePercent)
		}
		out = append(out, p)
	}
	return out, nil
}

func findHeader(rows [][]string) (int, columns, bool) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		cols := columns{date: -1, rate: -1, change: -1}
		for j, cell := range rows[i] {
			name := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case name == "fecha":
				cols.date = j
			case name == "tasa":
				cols.rate = j
			case strings.HasPrefix(name, "variaci"):
				cols.change = j
			}
		}
		if cols.date >= 0 && cols.rate >= 0 {
			return i + 1, cols, true
		}
	}
	return 0, columns{}, false
}

func parseRow(row []string, cols columns) (models.ExchangeRate, bool) {
	date, ok := parseCellDate(cell(row, cols.date))
	if !ok {
		return models.ExchangeRate{}, false
	}
	rate := parseCellNumber(cell(row, cols.rate))
	if rate <= 0 {
		return models.ExchangeRate{}, false
	}
	return models.ExchangeRate{
		Date:   date,
		Rate:   rate,
		Change: parseCellNumber(cell(row, cols.change)),
	}, true
}

// parseCellDate accepts YYYYMMDD, YYYY-MM-DD, DD/MM/YYYY and Excel serial days.
func parseCellDate(text string) (models.Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if d, err := models.ParseDate(text); err == nil {
		return d, true
	}
	if t, err := time.Parse("02/01/2006", text); err == nil {
		return models.DateOf(t), true
	}
	if serial, err := strconv.ParseFloat(text, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return models.DateOf(t), true
		}
	}
	return "", false
}

func parseCellNumber(text string) float64 {
	text = strings.TrimSpace(text)
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v
	}
	return datfile.ParseNumber(text)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func divide(amount, rate float64) float64 {
	return decimal.NewFromFloat(amount).Div(decimal.NewFromFloat(rate)).Round(4).InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Ensure Service implements FXService
var _ interfaces.FXService = (*Service)(nil)
