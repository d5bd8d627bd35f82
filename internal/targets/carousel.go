package targets

import (
	"fmt"
	"strings"

	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/domain"
)

// Carousel returns the home page carousel import target.
func Carousel(sink Sink) *core.Definition[domain.CarouselItem] {
	def := &core.Definition[domain.CarouselItem]{
		Key:      KeyCarousel,
		Label:    "Carousel",
		Resource: KeyCarousel,
		Pipeline: core.Pipeline[domain.CarouselItem]{
			Template: core.Template{
				Filename: "carousel-template.csv",
				Fields: []core.TemplateField{
					{Name: "title", Value: "Spring on the Great Wall"},
					{Name: "subtitle", Value: "Hike Mutianyu before the crowds"},
					{Name: "image_url", Value: "https://images.pandahoho.com/carousel/great-wall.jpg"},
					{Name: "link_url", Value: "/triplists/great-wall-day-trip"},
					{Name: "sort_order", Value: 1},
					{Name: "active", Value: "yes"},
				},
			},
			RequiredColumns: []string{"title", "image_url"},
			ValidateRow:     checkCarouselItem,
			TransformRow:    toCarouselItem,
		},
	}
	if sink != nil {
		def.Submit = sink.UpsertCarouselItems
	}
	return def
}

func checkCarouselItem(row core.RawRecord) core.RowCheck {
	var errs []string

	if img := CleanCell(row["image_url"]); img != "" && !IsHTTPURL(img) {
		errs = append(errs, fmt.Sprintf("invalid url %q in image_url", img))
	}
	if link := CleanCell(row["link_url"]); link != "" && !isLink(link) {
		errs = append(errs, fmt.Sprintf("invalid url %q in link_url: use a site path like /cities/beijing or a full URL", link))
	}
	if _, err := ParseInt(row["sort_order"], 0); err != nil {
		errs = append(errs, fmt.Sprintf("sort_order: %v", err))
	}
	if _, err := ParseBool(row["active"], true); err != nil {
		errs = append(errs, fmt.Sprintf("active: %v", err))
	}

	return rowCheck(errs)
}

func toCarouselItem(row core.RawRecord) (domain.CarouselItem, error) {
	order, err := ParseInt(row["sort_order"], 0)
	if err != nil {
		return domain.CarouselItem{}, fmt.Errorf("sort_order: %w", err)
	}
	active, err := ParseBool(row["active"], true)
	if err != nil {
		return domain.CarouselItem{}, fmt.Errorf("active: %w", err)
	}

	return domain.CarouselItem{
		Title:     CleanCell(row["title"]),
		Subtitle:  CleanCell(row["subtitle"]),
		ImageURL:  CleanCell(row["image_url"]),
		LinkURL:   CleanCell(row["link_url"]),
		SortOrder: order,
		Active:    active,
	}, nil
}

// isLink accepts site-relative paths and absolute http(s) URLs.
func isLink(s string) bool {
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return true
	}
	return IsHTTPURL(s)
}
