package web

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/eventboard/internal/views"
)

// flashCookieName carries notifications across a post/redirect/get.
const flashCookieName = "eventboard_flash"

// setFlash stores notes for the next page the browser loads.
func setFlash(c echo.Context, notes []views.Notification) {
	if len(notes) == 0 {
		return
	}
	data, err := json.Marshal(notes)
	if err != nil {
		slog.Warn("encoding flash", slog.Any("error", err))
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash notes.
func takeFlash(c echo.Context) []views.Notification {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var notes []views.Notification
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil
	}
	return notes
}
