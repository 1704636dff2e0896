package ui

import (
	"fmt"
	"strings"

	"github.com/cmon-dev/cmon/internal/monitor"
)

// Block characters from lowest to highest.
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline draws the last width percentages on a fixed 0-100 scale,
// so 50% always sits at the same height regardless of the other samples.
// Each block is colored by the band its own sample falls in, which makes
// excursions into warning or critical visible after they recover.
func RenderSparkline(data []float64, width int, bands monitor.Bands) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	var sb strings.Builder
	sb.Grow(len(data) * 16)

	// Runs of same-level samples share one styled segment.
	var run []rune
	runLevel := bands.Classify(data[0])
	flush := func() {
		if len(run) > 0 {
			sb.WriteString(LevelStyle(runLevel).Render(string(run)))
			run = run[:0]
		}
	}

	for _, v := range data {
		level := bands.Classify(v)
		if level != runLevel {
			flush()
			runLevel = level
		}
		run = append(run, sparklineBlock(v))
	}
	flush()

	return sb.String()
}

// sparklineBlock maps a percentage to a block, clamping to 0-100.
func sparklineBlock(pct float64) rune {
	n := len(sparklineBlockRunes)
	switch {
	case pct <= 0:
		return sparklineBlockRunes[0]
	case pct >= 100:
		return sparklineBlockRunes[n-1]
	}
	i := int(pct / 100 * float64(n))
	if i >= n {
		i = n - 1
	}
	return sparklineBlockRunes[i]
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
