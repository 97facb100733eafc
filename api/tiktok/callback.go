package handler

import (
	"net/http"

	"tiktok-link/server"
)

// Callback is the redirect URI registered with TikTok.
func Callback(w http.ResponseWriter, r *http.Request) {
	server.Forward(w, r, "/callback")
}
