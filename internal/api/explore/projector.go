package explore

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

// ProjectionParams is everything the list projection depends on.
type ProjectionParams struct {
	Query         string
	Sort          types.SortMode
	OnlyFavorites bool
	FavoriteIDs   map[string]struct{}
	Center        types.LatLon
	// RatingLookup returns the average fill of a place; nil means unrated.
	RatingLookup func(placeID string) float64
	// Locale drives alphabetical ordering; zero value is language.Und.
	Locale language.Tag
}

// Project filters and orders raw search results for display. It never
// modifies raw and the same inputs always give the same output.
func Project(raw []types.Place, p ProjectionParams) []types.Place {
	out := make([]types.Place, 0, len(raw))
	// the query is matched as typed; only "" disables the filter
	needle := foldText(p.Query)

	for _, place := range raw {
		if p.Query != "" && !matchesQuery(place, needle) {
			continue
		}
		if p.OnlyFavorites {
			if _, ok := p.FavoriteIDs[place.ID]; !ok {
				continue
			}
		}
		out = append(out, place)
	}

	switch p.Sort {
	case types.SortRating:
		lookup := p.RatingLookup
		if lookup == nil {
			lookup = func(string) float64 { return 0 }
		}
		sortByKey(out, func(pl types.Place) float64 { return lookup(pl.ID) }, cmpFloatDesc)
	case types.SortName:
		c := collatorFor(p.Locale)
		slices.SortStableFunc(out, func(a, b types.Place) int {
			return c.compare(a.Name, b.Name)
		})
	default:
		sortByKey(out, func(pl types.Place) float64 { return DistanceMeters(p.Center, pl.Coordinate) }, cmpFloatAsc)
	}
	return out
}

// sortByKey computes key once per element and stable-sorts places by it.
func sortByKey(places []types.Place, key func(types.Place) float64, cmp func(a, b float64) int) {
	type keyed struct {
		place types.Place
		key   float64
	}
	tmp := make([]keyed, len(places))
	for i, pl := range places {
		tmp[i] = keyed{place: pl, key: key(pl)}
	}
	slices.SortStableFunc(tmp, func(a, b keyed) int { return cmp(a.key, b.key) })
	for i := range tmp {
		places[i] = tmp[i].place
	}
}

func matchesQuery(p types.Place, needle string) bool {
	if strings.Contains(foldText(p.Name), needle) {
		return true
	}
	return p.Address != nil && strings.Contains(foldText(*p.Address), needle)
}

// foldText normalizes s for case-insensitive substring matching.
func foldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func cmpFloatAsc(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloatDesc(a, b float64) int {
	return cmpFloatAsc(b, a)
}

// lockedCollator guards a collate.Collator, which is not safe for
// concurrent use.
type lockedCollator struct {
	mu sync.Mutex
	c  *collate.Collator
}

func (l *lockedCollator) compare(a, b string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.CompareString(a, b)
}

var collators sync.Map // language.Tag -> *lockedCollator

func collatorFor(tag language.Tag) *lockedCollator {
	if c, ok := collators.Load(tag); ok {
		return c.(*lockedCollator)
	}
	c, _ := collators.LoadOrStore(tag, &lockedCollator{c: collate.New(tag, collate.IgnoreCase)})
	return c.(*lockedCollator)
}
