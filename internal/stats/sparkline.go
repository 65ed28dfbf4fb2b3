package stats

import (
	"math"
	"strings"

	"github.com/example/satbot/pkg/models"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders scores (oldest first) as unicode block characters,
// scaled to the 0–44 score range
func Sparkline(scores []int) string {
	return sparklineScaled(scores, models.MinMathScore, models.MaxMathScore)
}

func sparklineScaled(scores []int, lo, hi int) string {
	if len(scores) == 0 {
		return "(no scores yet)"
	}
	var b strings.Builder
	for _, s := range scores {
		if s < lo {
			s = lo
		}
		if s > hi {
			s = hi
		}
		t := 0.0
		if hi > lo {
			t = float64(s-lo) / float64(hi-lo)
		}
		idx := int(math.Round(t * float64(len(sparkBlocks)-1)))
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
