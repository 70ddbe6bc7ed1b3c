// Package console implements hal.Console against a 32-bpp linear
// framebuffer, the format §6 prefers. Glyph rasterization is delegated to a
// Font collaborator (out of scope per §1: "the framebuffer font renderer");
// this package only ever calls DrawGlyph/CellWidth/CellHeight on it, mirroring
// the teacher's driver/video/console.Console interface (Dimensions/Clear/
// Scroll/Write) narrowed to the five operations §6 names.
package console

import "unsafe"

// Font rasterizes one character cell; supplied by an out-of-scope font
// renderer driver.
type Font interface {
	CellWidth() uint16
	CellHeight() uint16
	DrawGlyph(fb *Framebuffer, ch byte, fg, bg uint32, cellX, cellY uint16)
}

// Framebuffer is the bootloader-initialized 32-bpp linear buffer (§6): the
// kernel writes pixels directly, addressed through the HHDM the same way
// every other physical-memory structure in this kernel is.
type Framebuffer struct {
	Addr   uintptr
	Width  uint32
	Height uint32
	Pitch  uint32 // bytes per row
}

// pixels returns the framebuffer as a row-major []uint32, one word per
// pixel (32bpp).
func (fb *Framebuffer) pixels() []uint32 {
	words := int(fb.Pitch/4) * int(fb.Height)
	return unsafe.Slice((*uint32)(unsafe.Pointer(fb.Addr)), words)
}

// SetPixel writes one 0xAARRGGBB pixel, clipped to the buffer bounds.
func (fb *Framebuffer) SetPixel(x, y uint32, color uint32) {
	if x >= fb.Width || y >= fb.Height {
		return
	}
	fb.pixels()[y*(fb.Pitch/4)+x] = color
}

const (
	colorFg = 0xFFAAAAAA
	colorBg = 0xFF000000
)

// Console drives a Framebuffer through a Font, implementing hal.Console's
// five operations: Clear, SetPosition, WriteString, RedrawLine, DrawCursor.
type Console struct {
	fb   *Framebuffer
	font Font

	cols, rows uint16
	cells      [][]byte

	curX, curY uint16
}

// Init sizes the character grid from fb and font, and allocates a blank
// cell buffer so RedrawLine can replay a row without re-deriving it from
// pixels.
func (c *Console) Init(fb *Framebuffer, font Font) {
	c.fb = fb
	c.font = font
	c.cols = uint16(fb.Width) / font.CellWidth()
	c.rows = uint16(fb.Height) / font.CellHeight()

	c.cells = make([][]byte, c.rows)
	for i := range c.cells {
		c.cells[i] = make([]byte, c.cols)
	}
	c.Clear()
}

// Clear blanks every cell and resets the cursor to the origin.
func (c *Console) Clear() {
	for y := uint16(0); y < c.rows; y++ {
		for x := uint16(0); x < c.cols; x++ {
			c.cells[y][x] = ' '
		}
		c.redrawRow(y)
	}
	c.curX, c.curY = 0, 0
}

// SetPosition moves the cursor, clamped to the grid.
func (c *Console) SetPosition(x, y uint16) {
	if x >= c.cols {
		x = c.cols - 1
	}
	if y >= c.rows {
		y = c.rows - 1
	}
	c.curX, c.curY = x, y
}

// WriteString writes s starting at the current cursor position, handling
// '\n' (advance row, reset column) the way the teacher's tty.Vt handles LF.
func (c *Console) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\n' {
			c.curX = 0
			c.advanceRow()
			continue
		}
		c.cells[c.curY][c.curX] = b
		c.font.DrawGlyph(c.fb, b, colorFg, colorBg, c.curX, c.curY)
		c.curX++
		if c.curX == c.cols {
			c.curX = 0
			c.advanceRow()
		}
	}
}

func (c *Console) advanceRow() {
	c.curY++
	if c.curY == c.rows {
		c.scrollUp()
		c.curY = c.rows - 1
	}
}

func (c *Console) scrollUp() {
	copy(c.cells, c.cells[1:])
	c.cells[c.rows-1] = make([]byte, c.cols)
	for y := uint16(0); y < c.rows; y++ {
		c.redrawRow(y)
	}
}

// RedrawLine repaints row y from the retained cell buffer, per §6.
func (c *Console) RedrawLine(y uint16) {
	if y >= c.rows {
		return
	}
	c.redrawRow(y)
}

func (c *Console) redrawRow(y uint16) {
	for x := uint16(0); x < c.cols; x++ {
		c.font.DrawGlyph(c.fb, c.cells[y][x], colorFg, colorBg, x, y)
	}
}

// DrawCursor paints a cursor glyph at the current position.
func (c *Console) DrawCursor() {
	c.font.DrawGlyph(c.fb, '_', colorFg, colorBg, c.curX, c.curY)
}

// Position returns the current cursor cell coordinates.
func (c *Console) Position() (uint16, uint16) {
	return c.curX, c.curY
}
