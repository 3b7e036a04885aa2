package shared

import (
	"net/http"
	"strconv"
)

// Page is a limit/offset window over a list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// ParsePagination reads ?limit= plus either ?offset= or a 1-based ?page=.
// Malformed values fall back to the defaults and limit is capped at maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Page {
	q := r.URL.Query()
	page := Page{Limit: atLeast(q.Get("limit"), 1, defaultLimit)}
	if maxLimit > 0 {
		page.Limit = min(page.Limit, maxLimit)
	}
	switch {
	case q.Has("offset"):
		page.Offset = atLeast(q.Get("offset"), 0, 0)
	case q.Has("page"):
		page.Offset = (atLeast(q.Get("page"), 1, 1) - 1) * page.Limit
	}
	return page
}

// SetTotal reports the unpaged size and whether rows remain past this page.
func (p Page) SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Has-More", strconv.FormatBool(p.Offset+p.Limit < total))
}

func atLeast(raw string, floor, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		return fallback
	}
	return v
}
