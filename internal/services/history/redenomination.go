// Package history merges automatic and manual data over date ranges and
// summarises the merged series.
package history

import "github.com/bobmcallan/bolsa/internal/models"

// Redenomination defaults: the bolivar lost three zeros on 2025-07-27.
const (
	DefaultCutover models.Date = "20250727"
	DefaultDivisor             = 1000.0
)

// Redenomination rescales index values dated strictly before Cutover.
// It is applied on read and never persisted.
type Redenomination struct {
	Cutover models.Date
	Divisor float64
}

// DefaultRedenomination returns the production rule.
func DefaultRedenomination() Redenomination {
	return Redenomination{Cutover: DefaultCutover, Divisor: DefaultDivisor}
}

// Apply returns the adjusted value and whether the rule fired.
// A zero rule (no cutover or non-positive divisor) never fires.
func (r Redenomination) Apply(date models.Date, value float64) (float64, bool) {
	if r.Cutover == "" || r.Divisor <= 0 || !date.Before(r.Cutover) {
		return value, false
	}
	return value / r.Divisor, true
}
