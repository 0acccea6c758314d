package sparkline

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
)

// PNG renders data onto a transparent canvas and encodes it to w. Series
// shorter than two values produce an empty canvas.
func PNG(w io.Writer, data []float64, opts Options) error {
	opts = opts.withDefaults()

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetHexColor(opts.Color)
	dc.SetLineWidth(opts.LineWidth)
	Draw(dc, data, float64(opts.Width), float64(opts.Height))

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode sparkline: %w", err)
	}
	return nil
}
