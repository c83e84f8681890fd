package model

import (
	"fmt"
	"slices"
)

// Category groups tasks by area (work, health, study, etc.).
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryFinance  Category = "finance"
	CategoryShopping Category = "shopping"
	CategoryOther    Category = "other"
)

// DefaultCategory is used when a task is created without one.
const DefaultCategory = CategoryPersonal

var categoryOrder = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryStudy,
	CategoryHealth,
	CategoryFinance,
	CategoryShopping,
	CategoryOther,
}

var categoryNames = map[Category]string{
	CategoryWork:     "Work & Business",
	CategoryPersonal: "Personal",
	CategoryStudy:    "Study & Learning",
	CategoryHealth:   "Health & Fitness",
	CategoryFinance:  "Finance & Money",
	CategoryShopping: "Shopping",
	CategoryOther:    "Other",
}

// Categories returns every category in its fixed enumeration order.
func Categories() []Category {
	return slices.Clone(categoryOrder)
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	return slices.Contains(categoryOrder, c)
}

// DisplayName returns the human-readable label, or the raw value when unmapped.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseCategory validates raw against the enumerated set.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", newValidationError("category", fmt.Sprintf("Kategori tidak valid: %s", raw))
	}
	return c, nil
}
