package sparkline

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// svgPath collects path commands. Stroke closes the current subpath into
// a <path> element.
type svgPath struct {
	d     strings.Builder
	paths []string
}

func (p *svgPath) MoveTo(x, y float64) {
	fmt.Fprintf(&p.d, "M%s %s", num(x), num(y))
}

func (p *svgPath) LineTo(x, y float64) {
	fmt.Fprintf(&p.d, " L%s %s", num(x), num(y))
}

func (p *svgPath) Stroke() {
	p.paths = append(p.paths, p.d.String())
	p.d.Reset()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SVG returns a standalone <svg> element for data. Short series give an
// empty element of the requested size.
func SVG(data []float64, opts Options) string {
	opts = opts.withDefaults()

	var p svgPath
	Draw(&p, data, float64(opts.Width), float64(opts.Height))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
	for _, d := range p.paths {
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linejoin="round"/>`,
			d, html.EscapeString(opts.Color), num(opts.LineWidth))
	}
	b.WriteString(`</svg>`)
	return b.String()
}
