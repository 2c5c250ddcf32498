package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Column extracts the named column from rows laid out as header.
func Column(header []string, rows [][]float64, name string) ([]float64, error) {
	idx := -1
	for i, h := range header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no column %q", name)
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d has no column %q", i, name)
		}
		out[i] = row[idx]
	}
	return out, nil
}

// PhasePortraitToASCII plots ys against xs on a width x height grid. The
// bounds are padded by a tenth of the range and zero axes are drawn when
// visible. Earlier points are drawn lighter than later ones.
func PhasePortraitToASCII(xs, ys []float64, width, height int) string {
	n := min(len(xs), len(ys))
	if n == 0 || width < 2 || height < 2 {
		return ""
	}
	xs, ys = xs[:n], ys[:n]

	pad := func(v []float64) (float64, float64) {
		lo, hi := floats.Min(v), floats.Max(v)
		r := hi - lo
		if r == 0 {
			r = 1
		}
		return lo - r*0.1, hi + r*0.1
	}
	minX, maxX := pad(xs)
	minY, maxY := pad(ys)
	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}

	marks := []rune{'.', 'o', '•'}
	for i := range xs {
		canvas[row(ys[i])][col(xs[i])] = marks[i*len(marks)/n]
	}

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
