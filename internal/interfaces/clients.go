package interfaces

import (
	"context"

	"github.com/bobmcallan/bolsa/internal/models"
)

// DaySource fetches one trading date from an external tier.
// Absence is (empty day, nil); errors mean the tier is unavailable.
type DaySource interface {
	FetchDay(ctx context.Context, date models.Date) (*models.Day, error)
}

// ArchiveStore is the local .dat archive
type ArchiveStore interface {
	DaySource
	ListDates() ([]models.Date, error)
	SaveRaw(date models.Date, payload []byte) error
}

// RawArchiver accepts raw payloads for archiving
type RawArchiver interface {
	SaveRaw(date models.Date, payload []byte) error
}

// DayResolver resolves a date to its records through the tier chain
type DayResolver interface {
	Resolve(ctx context.Context, date models.Date) (*models.Day, error)
}
