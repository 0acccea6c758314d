package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/scmmishra/clickboard/internal/notify"
)

const flashCookie = "clickboard_flash"

// setFlash stores a notice for the next report page load. It survives the
// redirect after a manual refresh, which the in-memory notices do not tie to
// a particular browser.
func setFlash(w http.ResponseWriter, typ, message string) {
	raw, err := json.Marshal(notify.Notice{Type: typ, Message: message, At: time.Now().UTC()})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/reports",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// getFlash reads and clears the flash cookie. Cookies that do not decode to a
// known notice type are dropped.
func getFlash(w http.ResponseWriter, r *http.Request) *notify.Notice {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/reports",
		HttpOnly: true,
		MaxAge:   -1,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var n notify.Notice
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		return nil
	}
	switch n.Type {
	case "success", "error":
		return &n
	}
	return nil
}
