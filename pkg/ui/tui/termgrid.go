package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/flashchine/benchterm/pkg/helpers/syncutil"
)

// TermGrid is a fixed-size character grid showing the emulated MPPT screen.
// It implements render.CellSink; the renderer pushes only changed cells.
type TermGrid struct {
	*tview.Box
	chars  [][]rune
	colors [][]tcell.Color
	cols   int
	rows   int
	mu     syncutil.Mutex
}

// NewTermGrid creates a blank cols x rows grid.
func NewTermGrid(cols, rows int) *TermGrid {
	g := &TermGrid{
		Box:  tview.NewBox(),
		cols: cols,
		rows: rows,
	}
	g.Box.SetBorder(true).SetTitle(" MPPT Terminal ")
	g.chars = make([][]rune, rows)
	g.colors = make([][]tcell.Color, rows)
	for row := 0; row < rows; row++ {
		g.chars[row] = make([]rune, cols)
		g.colors[row] = make([]tcell.Color, cols)
		for col := 0; col < cols; col++ {
			g.chars[row][col] = ' '
			g.colors[row][col] = tcell.ColorDefault
		}
	}
	return g
}

// SetCell stores one cell. Out-of-range coordinates are dropped.
func (g *TermGrid) SetCell(row, col int, ch rune, fg tcell.Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	g.chars[row][col] = ch
	g.colors[row][col] = fg
}

// Size returns the grid dimensions.
func (g *TermGrid) Size() (cols, rows int) {
	return g.cols, g.rows
}

// Draw paints the stored cells inside the box.
func (g *TermGrid) Draw(screen tcell.Screen) {
	g.Box.DrawForSubclass(screen, g)
	x, y, w, h := g.GetInnerRect()

	g.mu.Lock()
	defer g.mu.Unlock()
	for row := 0; row < g.rows && row < h; row++ {
		for col := 0; col < g.cols && col < w; col++ {
			style := tcell.StyleDefault.Foreground(g.colors[row][col])
			screen.SetContent(x+col, y+row, g.chars[row][col], nil, style)
		}
	}
}
