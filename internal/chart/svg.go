package chart

import (
	"fmt"
	"html"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultWidth is the rendered SVG width in pixels.
const DefaultWidth = 1400

// RenderSVG draws the timeline as a standalone SVG document: date axis on
// top with weekly gridlines, one row per category (first category at the
// top), bars colored by group with their label placed after the bar end,
// and a legend on the right.
func RenderSVG(w io.Writer, spec Spec, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	th := spec.Theme
	height := spec.Height

	labelW := categoryLabelWidth(spec.Categories, th.FontSize)
	plotX0 := float64(th.MarginLeft + labelW)
	plotX1 := float64(width - th.MarginRight - th.LegendWidth)
	plotY0 := float64(th.MarginTop)
	plotY1 := float64(height - th.MarginBottom)
	if plotX1 <= plotX0 {
		plotX1 = plotX0 + 1
	}

	span := spec.RangeEnd.Sub(spec.RangeStart).Seconds()
	if span <= 0 {
		span = 1
	}
	xOf := func(secondsFromStart float64) float64 {
		return plotX0 + secondsFromStart/span*(plotX1-plotX0)
	}

	rows := len(spec.Categories)
	if rows == 0 {
		rows = 1
	}
	rowH := (plotY1 - plotY0) / float64(rows)
	rowOf := make(map[string]int, len(spec.Categories))
	for i, c := range spec.Categories {
		rowOf[c] = i
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" font-family="%s" font-size="%d" fill="%s">`+"\n",
		width, height, width, height, esc(th.FontFamily), th.FontSize, th.FontColor)
	fmt.Fprintf(&svg, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", th.Background)
	if spec.Title != "" {
		fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="%d">%s</text>`+"\n",
			th.MarginLeft, th.TitleSize+10, th.TitleSize, esc(spec.Title))
	}

	// Horizontal gridlines and category labels.
	svg.WriteString(`<g class="categories">` + "\n")
	for i, c := range spec.Categories {
		cy := plotY0 + rowH*(float64(i)+0.5)
		fmt.Fprintf(&svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
			plotX0, cy, plotX1, cy, th.GridColor)
		fmt.Fprintf(&svg, `<text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
			plotX0-8, cy, esc(c))
	}
	svg.WriteString("</g>\n")

	// Weekly gridlines with "day month" ticks on the top axis.
	svg.WriteString(`<g class="ticks">` + "\n")
	for _, tk := range spec.Ticks {
		x := xOf(tk.At.Sub(spec.RangeStart).Seconds())
		fmt.Fprintf(&svg, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
			x, plotY0, x, plotY1, th.GridColor)
		fmt.Fprintf(&svg, `<text x="%.1f" y="%.1f" text-anchor="middle">%s</text>`+"\n",
			x, plotY0-10, esc(tk.Label))
	}
	svg.WriteString("</g>\n")

	// Bars.
	barH := rowH * 0.8
	svg.WriteString(`<g class="bars">` + "\n")
	for _, b := range spec.Bars {
		x0 := xOf(b.Start.Sub(spec.RangeStart).Seconds())
		x1 := xOf(b.End.Sub(spec.RangeStart).Seconds())
		y := plotY0 + rowH*float64(rowOf[b.Category]) + (rowH-barH)/2
		fmt.Fprintf(&svg, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="%.2f" stroke="%s" stroke-width="%d" data-row="%d">`,
			x0, y, x1-x0, barH, b.Color, b.Opacity*th.BaseOpacity, th.BarLineColor, th.BarLineWidth, b.RowIndex)
		fmt.Fprintf(&svg, `<title>%s&#10;%s&#10;%s</title></rect>`+"\n", esc(b.Label), esc(b.Duration), esc(b.Week))
		fmt.Fprintf(&svg, `<text x="%.1f" y="%.1f" font-size="%d" dominant-baseline="middle">%s</text>`+"\n",
			x1+4, y+barH/2, th.TextSize, esc(b.Label))
	}
	svg.WriteString("</g>\n")

	// Legend.
	lx := plotX1 + 20
	ly := plotY0
	fmt.Fprintf(&svg, `<g class="legend"><text x="%.1f" y="%.1f">%s</text>`+"\n", lx, ly, esc(spec.LegendTitle))
	for i, e := range spec.Legend {
		ey := ly + 22*float64(i+1)
		fmt.Fprintf(&svg, `<rect x="%.1f" y="%.1f" width="14" height="14" fill="%s"/>`, lx, ey-11, e.Color)
		fmt.Fprintf(&svg, `<text x="%.1f" y="%.1f">%s</text>`+"\n", lx+20, ey, esc(e.Name))
	}
	svg.WriteString("</g>\n</svg>\n")

	_, err := io.WriteString(w, svg.String())
	return err
}

// categoryLabelWidth estimates the space needed for the longest category
// label, capped so long topics do not squeeze the plot.
func categoryLabelWidth(categories []string, fontSize int) int {
	longest := 0
	for _, c := range categories {
		if n := utf8.RuneCountInString(c); n > longest {
			longest = n
		}
	}
	w := int(float64(longest*fontSize)*0.6) + 16
	if w > 320 {
		w = 320
	}
	return w
}

func esc(s string) string {
	return html.EscapeString(s)
}
