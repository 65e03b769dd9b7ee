package handlers

import (
	"net/http"
)

// Health reports liveness and the number of visitors held in memory.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "visitors": a.Visitors.Len()})
}
