package targets

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// Triplists returns the triplist import target.
func Triplists(sink Sink) *core.Definition[domain.Triplist] {
	def := &core.Definition[domain.Triplist]{
		Key:      KeyTriplists,
		Label:    "Triplists",
		Resource: KeyTriplists,
		Pipeline: core.Pipeline[domain.Triplist]{
			Template: core.Template{
				Filename: "triplists-template.csv",
				Fields: []core.TemplateField{
					{Name: "title", Value: "48 Hours of Street Food in Xi'an"},
					{Name: "slug", Value: "xian-street-food"},
					{Name: "city_slug", Value: "xian"},
					{Name: "category", Value: "food"},
					{Name: "description", Value: "Muslim Quarter skewers, biangbiang noodles and roujiamo."},
					{Name: "duration_days", Value: 2},
				},
			},
			RequiredColumns: []string{"title", "city_slug", "category"},
			ValidateRow:     checkTriplist,
			TransformRow:    toTriplist,
		},
	}
	if sink != nil {
		def.Submit = sink.UpsertTriplists
	}
	return def
}

func checkTriplist(row core.RawRecord) core.RowCheck {
	var errs []string

	if msg := checkSlug(row["slug"], row["title"]); msg != "" {
		errs = append(errs, msg)
	}
	if city := CleanCell(row["city_slug"]); city != "" && !IsSlug(city) {
		errs = append(errs, fmt.Sprintf("invalid slug %q in city_slug", city))
	}
	if cat := CleanCell(row["category"]); cat != "" && !validCategory(cat) {
		errs = append(errs, fmt.Sprintf("invalid category %q: use one of %s", cat, strings.Join(domain.TriplistCategories, ", ")))
	}
	if _, err := parseDuration(row["duration_days"]); err != nil {
		errs = append(errs, err.Error())
	}

	return rowCheck(errs)
}

func toTriplist(row core.RawRecord) (domain.Triplist, error) {
	days, err := parseDuration(row["duration_days"])
	if err != nil {
		return domain.Triplist{}, err
	}
	title := CleanCell(row["title"])

	return domain.Triplist{
		Title:        title,
		Slug:         slugOrDerived(row["slug"], title),
		CitySlug:     CleanCell(row["city_slug"]),
		Category:     strings.ToLower(CleanCell(row["category"])),
		Description:  CleanCell(row["description"]),
		DurationDays: days,
	}, nil
}

func validCategory(s string) bool {
	return slices.Contains(domain.TriplistCategories, strings.ToLower(s))
}

func parseDuration(s string) (int, error) {
	days, err := ParseInt(s, 1)
	if err != nil {
		return 0, fmt.Errorf("duration_days: %w", err)
	}
	if days < 1 {
		return 0, fmt.Errorf("duration_days: invalid number %d, must be 1 or more", days)
	}
	return days, nil
}
