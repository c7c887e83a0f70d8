// Package spatial provides a uniform grid for broad-phase collision queries.
//
// The grid stores integer indices into the caller's dense slices, never
// pointers, so it can be rebuilt every tick without allocating.
package spatial

import (
	"math"
	"slices"
)

// Grid buckets entity indices into fixed-size cells over a rectangle that
// starts at (0, 0). Callers translate world coordinates into grid-local ones.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type Grid struct {
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32 // reusable buffer for query results
	count       int
}

// NewGrid creates a grid covering width x height.
// cellSize should be close to the largest query diameter.
func NewGrid(width, height, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 64
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))

	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 4 {
		avgPerCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &Grid{
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear resets all cells without deallocating underlying memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert adds an entity index at (x, y). Positions outside the grid are
// clamped into the border cells so nothing is ever lost.
func (g *Grid) Insert(id uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

func (g *Grid) colRow(x, y float64) (int, int) {
	col := int(math.Floor(x * g.invCellSize))
	row := int(math.Floor(y * g.invCellSize))
	return clampInt(col, 0, g.cols-1), clampInt(row, 0, g.rows-1)
}

func (g *Grid) cellIndex(x, y float64) int {
	col, row := g.colRow(x, y)
	return row*g.cols + col
}

// QueryRadius returns every index whose cell intersects the square around
// (cx, cy). Results are sorted ascending so callers can honour insertion order.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// The caller must still do the precise distance check (narrow phase).
func (g *Grid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.colRow(cx-radius, cy-radius)
	maxCol, maxRow := g.colRow(cx+radius, cy+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}

	slices.Sort(g.scratch)
	return g.scratch
}

// Len returns the number of inserted indices.
func (g *Grid) Len() int { return g.count }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
