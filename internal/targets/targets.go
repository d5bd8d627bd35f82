// Package targets defines the PandaHoHo import targets: the template, the
// required columns, the row checks and the transform for each content type.
package targets

import (
	"context"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// Sink accepts transformed records in bulk. The Postgres store and the HTTP
// bulk client both implement it.
type Sink interface {
	UpsertCities(ctx context.Context, cities []domain.City) (core.BulkResult, error)
	UpsertTriplists(ctx context.Context, triplists []domain.Triplist) (core.BulkResult, error)
	UpsertCarouselItems(ctx context.Context, items []domain.CarouselItem) (core.BulkResult, error)
}

// Target keys. They double as the resource names of the bulk endpoints.
const (
	KeyCities    = "cities"
	KeyTriplists = "triplists"
	KeyCarousel  = "carousel"
)

// Register adds every target to reg. A nil sink registers targets that can
// preview and render templates but not submit.
func Register(reg *core.Registry, sink Sink) {
	reg.Register(Cities(sink))
	reg.Register(Triplists(sink))
	reg.Register(Carousel(sink))
}

// NewRegistry returns a registry holding every target.
func NewRegistry(sink Sink) *core.Registry {
	reg := core.NewRegistry()
	Register(reg, sink)
	return reg
}

func rowCheck(errs []string) core.RowCheck {
	return core.RowCheck{Valid: len(errs) == 0, Errors: errs}
}
