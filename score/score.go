// Package score maps a numeric resume score onto the badge category shown in
// the review UI.
package score

import "strings"

// Category is the badge bucket a score falls into
type Category string

const (
	CategoryStrong    Category = "Strong"
	CategoryGoodStart Category = "Good Start"
	CategoryNeedsWork Category = "Needs Work"
)

// Thresholds are exclusive lower bounds, checked in order
const (
	StrongThreshold    = 70
	GoodStartThreshold = 49
)

// BaseStyle is shared by every badge regardless of category
const BaseStyle = "px-3 py-1 rounded-full font-semibold text-sm inline-block"

var categoryStyles = map[Category]string{
	CategoryStrong:    "bg-green-100 text-green-700",
	CategoryGoodStart: "bg-yellow-100 text-yellow-700",
	CategoryNeedsWork: "bg-red-100 text-red-700",
}

// Categorize returns the category for a score. Every float is accepted,
// including negatives, values above 100 and NaN (which lands in Needs Work).
func Categorize(value float64) Category {
	if value > StrongThreshold {
		return CategoryStrong
	}
	if value > GoodStartThreshold {
		return CategoryGoodStart
	}
	return CategoryNeedsWork
}

// Label returns the text shown inside the badge
func (c Category) Label() string {
	return string(c)
}

// Style returns the colour classes for the category
func (c Category) Style() string {
	if style, ok := categoryStyles[c]; ok {
		return style
	}
	return categoryStyles[CategoryNeedsWork]
}

// Classes returns the full class list for a badge of this category
func (c Category) Classes() []string {
	return append(strings.Fields(BaseStyle), strings.Fields(c.Style())...)
}

// Badge is the rendered description of a score
type Badge struct {
	Score    float64  `json:"score"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Style    string   `json:"style"`
}

// NewBadge evaluates a score into a Badge
func NewBadge(value float64) Badge {
	category := Categorize(value)
	return Badge{
		Score:    value,
		Category: category,
		Label:    category.Label(),
		Style:    BaseStyle + " " + category.Style(),
	}
}
