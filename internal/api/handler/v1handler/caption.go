package v1handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"multiapi/internal/caption"
	"multiapi/pkg/controller"
)

// Caption handles POST /api/caption.
func (h Handler) Caption(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CaptionRequest
	err := decodeBody(w, r, &req)
	var res *caption.Caption
	if err == nil {
		res, err = h.deps.Caption.Extract(r.Context(), caption.Request{
			URL:      req.URL,
			Token:    req.Token,
			RemoteIP: controller.GetClientIP(r),
		})
	}
	h.observe(r.Context(), "caption", start, err)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeMessage(w, "Caption extracted successfully", func(e *jx.Encoder) {
		e.FieldStart("caption")
		if res.Text == nil {
			e.Null()

			return
		}
		e.Str(*res.Text)
	})
}
