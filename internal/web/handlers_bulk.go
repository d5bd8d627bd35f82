package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
	"github.com/pandahoho/importer/internal/targets"
)

var errInvalidBody = errors.New("invalid request body")

// handleBulk upserts a JSON array of records for one resource. The whole
// array is stored in one transaction or rejected.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize*2)

	var (
		result core.BulkResult
		err    error
	)
	switch resource {
	case targets.KeyCities:
		result, err = bulkUpsert(r, checkCityRecord, s.store.UpsertCities)
	case targets.KeyTriplists:
		result, err = bulkUpsert(r, checkTriplistRecord, s.store.UpsertTriplists)
	case targets.KeyCarousel:
		result, err = bulkUpsert(r, checkCarouselRecord, s.store.UpsertCarouselItems)
	default:
		err = fmt.Errorf("%w %q", errUnknownTarget, resource)
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	requestLogger(r, "resource", resource).Info("bulk request stored",
		"count", result.Count,
		"created", result.Created,
		"updated", result.Updated,
	)
	writeJSON(w, http.StatusOK, result)
}

func bulkUpsert[T any](
	r *http.Request,
	check func(T) error,
	upsert func(context.Context, []T) (core.BulkResult, error),
) (core.BulkResult, error) {
	var records []T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.BulkResult{}, errFileTooLarge
		}
		return core.BulkResult{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	var problems []string
	for i, rec := range records {
		if err := check(rec); err != nil {
			problems = append(problems, fmt.Sprintf("record %d: %v", i+1, err))
		}
	}
	if len(problems) > 0 {
		return core.BulkResult{}, fmt.Errorf("%w: %s", errInvalidBody, strings.Join(problems, "; "))
	}

	return upsert(r.Context(), records)
}

// The bulk endpoints also serve clients other than the import pipeline, so
// they repeat the shape checks the row validators apply.

func checkCityRecord(c domain.City) error {
	switch {
	case c.Name == "":
		return errors.New("required field \"name\" is empty")
	case c.Province == "":
		return errors.New("required field \"province\" is empty")
	case !targets.IsSlug(c.Slug):
		return fmt.Errorf("invalid slug %q", c.Slug)
	case c.ImageURL != "" && !targets.IsHTTPURL(c.ImageURL):
		return fmt.Errorf("invalid url %q in imageUrl", c.ImageURL)
	}
	return nil
}

func checkTriplistRecord(t domain.Triplist) error {
	switch {
	case t.Title == "":
		return errors.New("required field \"title\" is empty")
	case !targets.IsSlug(t.Slug):
		return fmt.Errorf("invalid slug %q", t.Slug)
	case !targets.IsSlug(t.CitySlug):
		return fmt.Errorf("invalid slug %q in citySlug", t.CitySlug)
	case !slices.Contains(domain.TriplistCategories, t.Category):
		return fmt.Errorf("invalid category %q", t.Category)
	case t.DurationDays < 1:
		return fmt.Errorf("invalid number %d in durationDays, must be 1 or more", t.DurationDays)
	}
	return nil
}

func checkCarouselRecord(c domain.CarouselItem) error {
	switch {
	case c.Title == "":
		return errors.New("required field \"title\" is empty")
	case !targets.IsHTTPURL(c.ImageURL):
		return fmt.Errorf("invalid url %q in imageUrl", c.ImageURL)
	}
	return nil
}
