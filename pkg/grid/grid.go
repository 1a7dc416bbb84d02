// Package grid implements the row-major coordinate math shared by a Board's
// cell array and its rendering: converting a flat cell index to (x, y) and
// back, the same mapping the teacher's GetGridCoords helper provided for its
// framebuffer.
package grid

// Index returns the flat, row-major index of the cell at (x, y) in a grid
// of the given width.
func Index(x, y, width int) int {
	return y*width + x
}

// Coords returns the (x, y) position of the cell at the given flat index in
// a grid of the given width, the inverse of Index.
func Coords(index, width int) (x, y int) {
	if width <= 0 {
		return 0, 0
	}
	return index % width, index / width
}

// InBounds reports whether (x, y) lies within a width x height grid.
func InBounds(x, y, width, height int) bool {
	return x >= 0 && y >= 0 && x < width && y < height
}
