package web

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"regexp"

	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func isValidHex(s string) bool {
	return hexColorRe.MatchString(s)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// LinkQRCode encodes a row's short URL. Query params: shape=square|circle,
// fg=#rrggbb, dl=1 to download.
func (h *ReportHandler) LinkQRCode(w http.ResponseWriter, r *http.Request) {
	row, ok := h.rowFromSnapshot(w, r)
	if !ok {
		return
	}
	if row.URL == "" {
		http.NotFound(w, r)
		return
	}

	shape := r.URL.Query().Get("shape")
	fg := r.URL.Query().Get("fg")
	dl := r.URL.Query().Get("dl")

	// Always transparent background
	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if shape == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}
	if isValidHex(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}

	qrc, err := qrcode.New(row.URL)
	if err != nil {
		http.Error(w, "failed to generate qr code", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	writer := standard.NewWithWriter(nopCloser{&buf}, opts...)
	if err := qrc.Save(writer); err != nil {
		http.Error(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if dl == "1" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+path.Base(row.URL)+"-qr.png\"")
	}
	w.Write(buf.Bytes())
}
