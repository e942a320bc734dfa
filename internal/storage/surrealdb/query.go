package surrealdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/bolsa/internal/models"
)

const upsertAttempts = 3

// recordID keys a row by [date, symbol]. The array form keeps symbols such
// as "MVZ.A" and "MVZ-A" distinct without escaping.
func recordID(table string, date models.Date, symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, []any{string(date), models.NormalizeSymbol(symbol)})
}

func dateID(table string, date models.Date) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, string(date))
}

// selectRows runs sql and returns the first statement's rows.
func selectRows[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return nil, nil
}

// upsert writes data under rid, retrying transient failures.
func upsert[T any](ctx context.Context, db *surrealdb.DB, rid surrealmodels.RecordID, data T) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": rid, "data": data}

	var lastErr error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		_, err := surrealdb.Query[[]T](ctx, db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("upsert %s:%v after retries: %w", rid.Table, rid.ID, lastErr)
}

type countResult struct {
	Cnt int `json:"cnt"`
}

func count(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) (int, error) {
	rows, err := selectRows[countResult](ctx, db, sql, vars)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Cnt, nil
}

type dateResult struct {
	Date string `json:"date"`
}

func distinctDates(ctx context.Context, db *surrealdb.DB, table string) ([]models.Date, error) {
	rows, err := selectRows[dateResult](ctx, db, "SELECT date FROM "+table+" GROUP BY date", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list dates in %s: %w", table, err)
	}
	dates := make([]models.Date, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, models.Date(r.Date))
	}
	sortDates(dates)
	return dates, nil
}

func sortDates(dates []models.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
}

func rangeVars(from, to models.Date) map[string]any {
	from, to = models.OrderRange(from, to)
	return map[string]any{"from": string(from), "to": string(to)}
}
