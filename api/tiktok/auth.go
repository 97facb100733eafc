package handler

import (
	"net/http"

	"tiktok-link/server"
)

// Authorize starts a link: /api/tiktok/auth?uid=...&key=...
func Authorize(w http.ResponseWriter, r *http.Request) {
	server.Forward(w, r, "/")
}
