package rating

import (
	"fmt"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

const MaxStars = 5

// AverageFill maps the mean rating onto [0, 1]; no ratings is 0.
func AverageFill(ratings []types.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	fill := float64(sum) / float64(len(ratings)) / MaxStars
	return min(max(fill, 0), 1)
}

func AverageStars(fill float64) float64 {
	return fill * MaxStars
}

// FormatStars renders a fill as "4.2 / 5".
func FormatStars(fill float64) string {
	return fmt.Sprintf("%.1f / %d", AverageStars(fill), MaxStars)
}

func Summarize(placeID string, ratings []types.Rating) types.PlaceRatingSummary {
	fill := AverageFill(ratings)
	return types.PlaceRatingSummary{
		PlaceID:      placeID,
		AverageFill:  fill,
		AverageStars: AverageStars(fill),
		Count:        len(ratings),
		Display:      FormatStars(fill),
	}
}
