// Package domain defines the PandaHoHo content records that the importer
// produces and the bulk endpoints accept.
package domain

// City is a destination page.
type City struct {
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Province    string `json:"province" yaml:"province"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Featured    bool   `json:"featured" yaml:"featured"`
}

// Triplist is a curated list of things to do in one city.
type Triplist struct {
	Title        string `json:"title" yaml:"title"`
	Slug         string `json:"slug" yaml:"slug"`
	CitySlug     string `json:"citySlug" yaml:"citySlug"`
	Category     string `json:"category" yaml:"category"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	DurationDays int    `json:"durationDays" yaml:"durationDays"`
}

// CarouselItem is one slide of the home page carousel. Items are keyed by
// title and link.
type CarouselItem struct {
	Title     string `json:"title" yaml:"title"`
	Subtitle  string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	ImageURL  string `json:"imageUrl" yaml:"imageUrl"`
	LinkURL   string `json:"linkUrl,omitempty" yaml:"linkUrl,omitempty"`
	SortOrder int    `json:"sortOrder" yaml:"sortOrder"`
	Active    bool   `json:"active" yaml:"active"`
}

// TriplistCategories are the categories a triplist may be filed under.
var TriplistCategories = []string{
	"food",
	"culture",
	"history",
	"nature",
	"nightlife",
	"shopping",
	"family",
}
