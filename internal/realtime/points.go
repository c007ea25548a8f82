package realtime

import (
	"cmp"
	"slices"

	"github.com/rickgao/stockstream/internal/model"
)

// mergePoints appends incoming onto existing, orders the result by
// timestamp and keeps the newest max points. A later point replaces an
// earlier one with the same timestamp.
func mergePoints(existing, incoming []model.Point, max int) []model.Point {
	out := make([]model.Point, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	out = append(out, incoming...)

	slices.SortStableFunc(out, func(a, b model.Point) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	out = dedupeLast(out)
	return truncate(out, max)
}

// dedupeLast collapses runs of equal timestamps to their last element.
// points must be sorted.
func dedupeLast(points []model.Point) []model.Point {
	if len(points) < 2 {
		return points
	}
	w := 0
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp == points[w].Timestamp {
			points[w] = points[i]
			continue
		}
		w++
		points[w] = points[i]
	}
	return points[:w+1]
}

// truncate keeps the newest max points in a fresh slice.
func truncate(points []model.Point, max int) []model.Point {
	if max <= 0 || len(points) <= max {
		return points
	}
	return slices.Clone(points[len(points)-max:])
}

// Normalize aligns several per-symbol series on the union of their
// timestamps. A symbol missing a timestamp gets a copy of its last earlier
// point. A timestamp before a symbol's first point stays absent for that
// symbol. Input series must be sorted by timestamp. Every input symbol is
// present in the output; a symbol with no points maps to an empty slice.
func Normalize(data map[string][]model.Point) map[string][]model.Point {
	var stamps []int64
	for _, points := range data {
		for _, p := range points {
			stamps = append(stamps, p.Timestamp)
		}
	}
	slices.Sort(stamps)
	stamps = slices.Compact(stamps)

	out := make(map[string][]model.Point, len(data))
	for sym, points := range data {
		series := make([]model.Point, 0, len(stamps))
		i := 0
		var last *model.Point
		for _, t := range stamps {
			// Advance past anything at or before t; the last one wins.
			for i < len(points) && points[i].Timestamp <= t {
				p := points[i]
				last = &p
				i++
			}
			if last == nil {
				continue
			}
			p := *last
			p.Timestamp = t
			series = append(series, p)
		}
		out[sym] = series
	}
	return out
}
