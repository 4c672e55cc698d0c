package types

import (
	"fmt"
	"strings"
	"time"
)

// PlaceCategory is the app's own category, independent of the provider taxonomy.
type PlaceCategory string

const (
	CategoryRestaurant PlaceCategory = "restaurant"
	CategoryCafe       PlaceCategory = "cafe"
	CategoryHotel      PlaceCategory = "hotel"
)

// AllCategories lists every category in picker order.
var AllCategories = []PlaceCategory{CategoryRestaurant, CategoryCafe, CategoryHotel}

func (c PlaceCategory) DisplayName() string {
	switch c {
	case CategoryRestaurant:
		return "Restaurant"
	case CategoryCafe:
		return "Café"
	case CategoryHotel:
		return "Hotel"
	}
	return string(c)
}

// Token returns the provider category token used in search requests.
func (c PlaceCategory) Token() string {
	switch c {
	case CategoryRestaurant:
		return "catering.restaurant"
	case CategoryCafe:
		return "catering.cafe"
	case CategoryHotel:
		return "accommodation.hotel"
	}
	return ""
}

func (c PlaceCategory) Glyph() string {
	switch c {
	case CategoryRestaurant:
		return "🍽"
	case CategoryCafe:
		return "☕"
	case CategoryHotel:
		return "🏨"
	}
	return "📍"
}

func (c PlaceCategory) Valid() bool {
	switch c {
	case CategoryRestaurant, CategoryCafe, CategoryHotel:
		return true
	}
	return false
}

func ParsePlaceCategory(s string) (PlaceCategory, error) {
	c := PlaceCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown place category %q", s)
	}
	return c, nil
}

// inferenceRules are checked in order; the first rule with any matching token wins.
var inferenceRules = []struct {
	pattern  string
	category PlaceCategory
}{
	{"catering.restaurant", CategoryRestaurant},
	{"catering.cafe", CategoryCafe},
	{"accommodation.hotel", CategoryHotel},
	{"accommodation", CategoryHotel},
	{"catering", CategoryRestaurant},
}

// InferCategory guesses the app category from raw provider tokens.
// Matching is case-insensitive and substring based.
func InferCategory(tokens []string) (PlaceCategory, bool) {
	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}
	for _, rule := range inferenceRules {
		for _, t := range lower {
			if strings.Contains(t, rule.pattern) {
				return rule.category, true
			}
		}
	}
	return "", false
}

// NormalizedCategoryToken picks the value stored on Place.Category: the
// inferred category's token, else the first raw token.
func NormalizedCategoryToken(tokens []string) string {
	if c, ok := InferCategory(tokens); ok {
		return c.Token()
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

// CategoryAnimation describes the header animation for a place detail view.
// The renderer owns the actual animation state.
type CategoryAnimation struct {
	Kind        string        `json:"kind"`
	Duration    time.Duration `json:"duration"`
	RotationDeg float64       `json:"rotation_deg,omitempty"`
	ScaleFrom   float64       `json:"scale_from,omitempty"`
	ScaleTo     float64       `json:"scale_to,omitempty"`
	Repeat      bool          `json:"repeat,omitempty"`
	// Stagger holds the start delay of each repeated element (steam puffs).
	Stagger []time.Duration `json:"stagger,omitempty"`
}

func (c PlaceCategory) Animation() *CategoryAnimation {
	switch c {
	case CategoryRestaurant:
		return &CategoryAnimation{Kind: "rotate", Duration: time.Second, RotationDeg: 360}
	case CategoryCafe:
		return &CategoryAnimation{
			Kind:     "steam",
			Duration: time.Second,
			Repeat:   true,
			Stagger:  []time.Duration{0, 300 * time.Millisecond, 600 * time.Millisecond},
		}
	case CategoryHotel:
		return &CategoryAnimation{Kind: "spring", Duration: 500 * time.Millisecond, ScaleFrom: 0.5, ScaleTo: 1.0}
	}
	return nil
}

// CategoryAnimationFor resolves a free-form Place.Category value.
func CategoryAnimationFor(token string) *CategoryAnimation {
	c, ok := InferCategory([]string{token})
	if !ok {
		return nil
	}
	return c.Animation()
}
