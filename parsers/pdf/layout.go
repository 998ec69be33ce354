package pdf

import "sort"

// Layout thresholds: two runs belong to the same
// line when their baselines are within lineHeightThreshold of the
// tallest font size seen on the page, and a run starts a new word
// (rather than continuing the previous one) when the horizontal gap
// since the previous run's end exceeds its font size divided by
// wordGapDivisor. Both are fixed constants, not configurable tunables.
const (
	lineHeightThreshold = 0.65
	wordGapDivisor      = 3.5
)

// GroupLines reorders runs into reading order (top-to-bottom, left-to-
// right) and joins same-line runs into single strings, inserting a space
// wherever the horizontal gap between consecutive runs implies a word
// boundary rather than a continued glyph run.
func GroupLines(runs []Run) []string {
	if len(runs) == 0 {
		return nil
	}

	maxFont := 0.0
	for _, r := range runs {
		if r.FontSize > maxFont {
			maxFont = r.FontSize
		}
	}
	if maxFont == 0 {
		maxFont = 1
	}
	threshold := maxFont * lineHeightThreshold

	ordered := make([]Run, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Y > ordered[j].Y
	})

	var lines [][]Run
	for _, r := range ordered {
		placed := false
		for i := range lines {
			if absFloat(lines[i][0].Y-r.Y) <= threshold {
				lines[i] = append(lines[i], r)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []Run{r})
		}
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		out = append(out, joinRuns(line))
	}
	return out
}

func joinRuns(line []Run) string {
	text := ""
	lastEndX := 0.0
	for i, r := range line {
		if i > 0 {
			gap := r.X - lastEndX
			fontSize := r.FontSize
			if fontSize == 0 {
				fontSize = 1
			}
			if gap > fontSize/wordGapDivisor {
				text += " "
			}
		}
		text += r.Text
		lastEndX = r.X + float64(len(r.Text))*r.FontSize
	}
	return text
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
