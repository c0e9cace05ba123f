package v1handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// ExpandURL handles POST /api/url.
func (h Handler) ExpandURL(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req URLRequest
	err := decodeBody(w, r, &req)
	var expanded string
	if err == nil {
		expanded, err = h.deps.Expander.Expand(r.Context(), req.URL)
	}
	h.observe(r.Context(), "url", start, err)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeMessage(w, "URL expanded successfully", func(e *jx.Encoder) {
		e.FieldStart("expandedUrl")
		e.Str(expanded)
	})
}
