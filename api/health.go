package handler

import (
	"net/http"

	"tiktok-link/server"
)

func Handler(w http.ResponseWriter, r *http.Request) {
	server.Forward(w, r, "/health")
}
