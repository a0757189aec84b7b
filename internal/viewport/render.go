package viewport

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

const upperHalf = "▀"

// Rendition is a frame drawn as half-block terminal cells: every cell shows
// two vertically stacked pixels, the upper as foreground and the lower as
// background. When PxRows is odd the lower half of the last row is blank.
type Rendition struct {
	Text   string
	Cols   int
	Rows   int
	PxRows int
}

// Rect is the rendition's display-space rectangle in half-cell pixels,
// relative to its top-left cell. It covers only drawn pixels.
func (r Rendition) Rect() Rect {
	return Rect{Width: float64(r.Cols), Height: float64(r.PxRows)}
}

// CellPoint converts a cell offset inside a rendition to the display-space
// point at the cell's center.
func CellPoint(col, row int) Point {
	return Point{X: float64(col) + 0.5, Y: float64(2*row) + 1}
}

// Fit returns the largest cols x rows that shows native inside the given
// cell budget with its aspect ratio kept.
func Fit(native Size, maxCols, maxRows int) (cols, rows int) {
	cols, pxRows := fitPixels(native, maxCols, maxRows)
	return cols, (pxRows + 1) / 2
}

// fitPixels sizes native into cols x pxRows half-cell pixels. The pixel
// height follows from the rounded width so both axes share one scale.
func fitPixels(native Size, maxCols, maxRows int) (cols, pxRows int) {
	if native.Width <= 0 || native.Height <= 0 || maxCols <= 0 || maxRows <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxCols)/float64(native.Width), float64(2*maxRows)/float64(native.Height))
	cols = min(maxCols, max(1, int(math.Round(float64(native.Width)*scale))))
	pxRows = int(math.Round(float64(native.Height) * float64(cols) / float64(native.Width)))
	return cols, min(2*maxRows, max(1, pxRows))
}

// Render scales img into at most maxCols x maxRows cells.
func Render(img image.Image, maxCols, maxRows int) Rendition {
	if img == nil {
		return Rendition{}
	}
	b := img.Bounds()
	cols, pxRows := fitPixels(Size{Width: b.Dx(), Height: b.Dy()}, maxCols, maxRows)
	if cols == 0 || pxRows == 0 {
		return Rendition{}
	}
	rows := (pxRows + 1) / 2

	dst := image.NewRGBA(image.Rect(0, 0, cols, pxRows))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var sb strings.Builder
	sb.Grow(rows * cols * 40)
	for r := 0; r < rows; r++ {
		hasLower := 2*r+1 < pxRows
		if !hasLower {
			sb.WriteString("\x1b[49m")
		}
		var lastFg, lastBg color.RGBA
		first := true
		for c := 0; c < cols; c++ {
			fg := dst.RGBAAt(c, 2*r)
			if first || fg != lastFg {
				writeColor(&sb, 38, fg)
			}
			if hasLower {
				bg := dst.RGBAAt(c, 2*r+1)
				if first || bg != lastBg {
					writeColor(&sb, 48, bg)
				}
				lastBg = bg
			}
			sb.WriteString(upperHalf)
			lastFg, first = fg, false
		}
		sb.WriteString("\x1b[0m")
		if r < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return Rendition{Text: sb.String(), Cols: cols, Rows: rows, PxRows: pxRows}
}

func writeColor(sb *strings.Builder, layer int, c color.RGBA) {
	sb.WriteString("\x1b[")
	sb.WriteString(strconv.Itoa(layer))
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(c.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.B)))
	sb.WriteByte('m')
}
