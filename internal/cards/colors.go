package cards

import (
	"fmt"
	"sort"
)

// ClusterHues maps each distinct cluster label to a hue on the color
// wheel. Labels are enumerated in sort order and split into two
// interleaved halves: even sort positions fill the first half of the
// hue positions, odd positions are offset by half the label count.
// Adjacent clusters in sort order therefore land far apart in hue
// space, so runs of small clusters don't render in near-identical
// colors.
func ClusterHues(labels []int) map[int]int {
	distinct := make(map[int]bool, len(labels))
	for _, l := range labels {
		distinct[l] = true
	}

	sorted := make([]int, 0, len(distinct))
	for l := range distinct {
		sorted = append(sorted, l)
	}
	sort.Ints(sorted)

	n := len(sorted)
	hues := make(map[int]int, n)
	for i, label := range sorted {
		pos := i / 2
		if i%2 == 1 {
			pos += (n + 1) / 2
		}
		hues[label] = pos * 360 / n
	}
	return hues
}

// hueColor renders a hue as a display color string.
func hueColor(hue int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", hue)
}
