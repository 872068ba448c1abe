package rest

import (
	"net/http"
	"strconv"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parsePage reads ?page= and ?limit=. Missing or malformed values fall back to the first
// page of defaultPageLimit items; limit is capped at maxPageLimit.
func parsePage(r *http.Request) models.Page {
	page := models.Page{Number: 1, Limit: defaultPageLimit}

	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		page.Number = n
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		page.Limit = min(l, maxPageLimit)
	}

	return page
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
