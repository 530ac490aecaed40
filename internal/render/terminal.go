package render

import (
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/misterem/RandomWalker/internal/geometry"
)

// DefaultCellSize is how many world units one terminal cell covers.
const DefaultCellSize = 5.0

const trailRune = '█'

// Terminal rasterizes segments onto a tcell screen. The world origin sits in
// the middle of the screen and +y points down, as on a canvas.
type Terminal struct {
	mu       sync.Mutex
	screen   tcell.Screen
	cellSize float64
	styles   map[string]tcell.Style
}

// NewTerminal wraps an initialized screen. cellSize <= 0 uses DefaultCellSize.
func NewTerminal(screen tcell.Screen, cellSize float64) *Terminal {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Terminal{
		screen:   screen,
		cellSize: cellSize,
		styles:   make(map[string]tcell.Style),
	}
}

// Cell maps a world position to a screen cell.
func (t *Terminal) Cell(p geometry.Position) (int, int) {
	w, h := t.screen.Size()
	col := w/2 + int(math.Round(p.X/t.cellSize))
	row := h/2 + int(math.Round(p.Y/t.cellSize))
	return col, row
}

func (t *Terminal) style(color string) tcell.Style {
	if s, ok := t.styles[color]; ok {
		return s
	}
	s := tcell.StyleDefault
	if c := tcell.GetColor(color); c != tcell.ColorDefault {
		s = s.Foreground(c)
	}
	t.styles[color] = s
	return s
}

// DrawSegment plots the cells the segment passes through and shows the screen.
// Cells off screen are dropped.
func (t *Terminal) DrawSegment(s geometry.Segment, color string) {
	if s.Validate() != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.style(color)
	w, h := t.screen.Size()
	x0, y0 := t.Cell(s.From)
	x1, y1 := t.Cell(s.To)

	// Bresenham
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if x0 >= 0 && x0 < w && y0 >= 0 && y0 < h {
			t.screen.SetContent(x0, y0, trailRune, nil, style)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
	t.screen.Show()
}

// DrawObstacles outlines walls and portal entries so the walk has context.
func (t *Terminal) DrawObstacles(walls, portals []geometry.Segment) {
	for _, w := range walls {
		t.DrawSegment(w, "white")
	}
	for _, p := range portals {
		t.DrawSegment(p, "purple")
	}
}

// Clear blanks the screen.
func (t *Terminal) Clear() {
	t.mu.Lock()
	t.screen.Clear()
	t.screen.Show()
	t.mu.Unlock()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
