package graph

import "math"

// Cell is one aligned pair of indices (I into x, J into y).
type Cell struct {
	I, J int
}

// Path is a warping path from (0, 0) to (len(x)-1, len(y)-1).
type Path []Cell

// span is the [lo, hi) range of y indices searched for one x index.
type span struct {
	lo, hi int
}

// step records which neighbour a cell was reached from.
type step uint8

const (
	fromUp step = iota
	fromLeft
	fromDiag
)

// DTW returns the exact dynamic time warping cost between x and y under the
// pointwise cost |x_i - y_j|, together with an optimal path. It is quadratic
// in time and memory.
func DTW(x, y []float64) (float64, Path) {
	band := make([]span, len(x))
	for i := range band {
		band[i] = span{0, len(y)}
	}
	return dtwBand(x, y, band)
}

// FastDTW approximates DTW in linear time (Salvador & Chan): the series are
// halved recursively, the coarse path is projected onto the finer resolution
// and widened by radius cells, and DTW is run only inside that window.
// The result is never below the exact cost and reaches it once radius covers
// the series. A radius below 1 is treated as 1.
func FastDTW(x, y []float64, radius int) (float64, Path) {
	if radius < 1 {
		radius = 1
	}
	minSize := radius + 2
	if len(x) < minSize || len(y) < minSize {
		return DTW(x, y)
	}
	_, coarse := FastDTW(halve(x), halve(y), radius)
	return dtwBand(x, y, expandWindow(coarse, len(x), len(y), radius))
}

// halve averages consecutive pairs, dropping an odd trailing sample.
func halve(x []float64) []float64 {
	out := make([]float64, len(x)/2)
	for i := range out {
		out[i] = (x[2*i] + x[2*i+1]) / 2
	}
	return out
}

// expandWindow widens a coarse path by radius cells and projects it onto a
// grid twice as fine. The expanded region is contiguous in every row because
// the coarse path is monotone.
func expandWindow(coarse Path, n, m, radius int) []span {
	band := make([]span, n)
	for i := range band {
		band[i] = span{m, 0}
	}
	for _, c := range coarse {
		jlo := max(2*(c.J-radius), 0)
		jhi := min(2*(c.J+radius)+2, m)
		if jlo >= jhi {
			continue
		}
		for a := -radius; a <= radius; a++ {
			for _, i := range [2]int{2 * (c.I + a), 2*(c.I+a) + 1} {
				if i < 0 || i >= n {
					continue
				}
				band[i].lo = min(band[i].lo, jlo)
				band[i].hi = max(band[i].hi, jhi)
			}
		}
	}
	// rows left uncovered inherit their neighbour so the band stays connected
	for i := range band {
		if band[i].lo < band[i].hi {
			continue
		}
		if i == 0 {
			band[i] = span{0, 1}
		} else {
			band[i] = band[i-1]
		}
	}
	band[n-1].hi = m
	return band
}

// dtwBand runs DTW restricted to band, one span per index of x.
func dtwBand(x, y []float64, band []span) (float64, Path) {
	n, m := len(x), len(y)
	if n == 0 || m == 0 {
		if n == m {
			return 0, nil
		}
		return math.Inf(1), nil
	}

	cost := make([][]float64, n)
	from := make([][]step, n)
	at := func(i, j int) float64 {
		switch {
		case i < 0 && j < 0:
			return 0
		case i < 0 || j < 0:
			return math.Inf(1)
		}
		b := band[i]
		if j < b.lo || j >= b.hi {
			return math.Inf(1)
		}
		return cost[i][j-b.lo]
	}

	for i := range n {
		b := band[i]
		cost[i] = make([]float64, b.hi-b.lo)
		from[i] = make([]step, b.hi-b.lo)
		for j := b.lo; j < b.hi; j++ {
			best, dir := at(i-1, j), fromUp
			if v := at(i, j-1); v < best {
				best, dir = v, fromLeft
			}
			if v := at(i-1, j-1); v < best {
				best, dir = v, fromDiag
			}
			cost[i][j-b.lo] = best + math.Abs(x[i]-y[j])
			from[i][j-b.lo] = dir
		}
	}

	total := at(n-1, m-1)
	if math.IsInf(total, 1) {
		return total, nil
	}

	var path Path
	i, j := n-1, m-1
	for i >= 0 && j >= 0 {
		path = append(path, Cell{i, j})
		switch from[i][j-band[i].lo] {
		case fromUp:
			i--
		case fromLeft:
			j--
		default:
			i, j = i-1, j-1
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return total, path
}
