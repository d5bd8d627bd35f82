package targets

import (
	"fmt"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// Cities returns the city import target.
func Cities(sink Sink) *core.Definition[domain.City] {
	def := &core.Definition[domain.City]{
		Key:      KeyCities,
		Label:    "Cities",
		Resource: KeyCities,
		Pipeline: core.Pipeline[domain.City]{
			Template: core.Template{
				Filename: "cities-template.csv",
				Fields: []core.TemplateField{
					{Name: "name", Value: "Chengdu"},
					{Name: "slug", Value: "chengdu"},
					{Name: "province", Value: "Sichuan"},
					{Name: "description", Value: "Giant pandas, teahouses and Sichuan hotpot."},
					{Name: "image_url", Value: "https://images.pandahoho.com/cities/chengdu.jpg"},
					{Name: "featured", Value: true},
				},
			},
			RequiredColumns: []string{"name", "province"},
			ValidateRow:     checkCity,
			TransformRow:    toCity,
		},
	}
	if sink != nil {
		def.Submit = sink.UpsertCities
	}
	return def
}

func checkCity(row core.RawRecord) core.RowCheck {
	var errs []string

	if msg := checkSlug(row["slug"], row["name"]); msg != "" {
		errs = append(errs, msg)
	}
	if img := CleanCell(row["image_url"]); img != "" && !IsHTTPURL(img) {
		errs = append(errs, fmt.Sprintf("invalid url %q in image_url", img))
	}
	if _, err := ParseBool(row["featured"], false); err != nil {
		errs = append(errs, fmt.Sprintf("featured: %v", err))
	}

	return rowCheck(errs)
}

func toCity(row core.RawRecord) (domain.City, error) {
	featured, err := ParseBool(row["featured"], false)
	if err != nil {
		return domain.City{}, fmt.Errorf("featured: %w", err)
	}
	name := CleanCell(row["name"])

	return domain.City{
		Name:        name,
		Slug:        slugOrDerived(row["slug"], name),
		Province:    NormalizeProvince(row["province"]),
		Description: CleanCell(row["description"]),
		ImageURL:    CleanCell(row["image_url"]),
		Featured:    featured,
	}, nil
}

// checkSlug validates an explicit slug, or makes sure one can be derived
// from the fallback when the slug cell is blank. An empty fallback is left
// to the required-field check.
func checkSlug(slug, fallback string) string {
	slug = CleanCell(slug)
	if slug != "" {
		if !IsSlug(slug) {
			return fmt.Sprintf("invalid slug %q: use lowercase letters, digits and hyphens", slug)
		}
		return ""
	}
	if name := CleanCell(fallback); name != "" && Slugify(name) == "" {
		return fmt.Sprintf("invalid slug: cannot derive one from %q, fill in the slug column", name)
	}
	return ""
}

func slugOrDerived(slug, fallback string) string {
	if slug = CleanCell(slug); slug != "" {
		return slug
	}
	return Slugify(fallback)
}
