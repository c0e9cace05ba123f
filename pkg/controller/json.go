package controller

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// writeJSON writes a JSON body produced by fn with the given status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeDenied writes the access denied body shared by the bot gate and CORS.
func writeDenied(w http.ResponseWriter, message, code string) {
	writeJSON(w, http.StatusForbidden, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str("Access Denied")
		e.FieldStart("message")
		e.Str(message)
		e.FieldStart("code")
		e.Str(code)
		e.FieldStart("timestamp")
		e.Str(time.Now().UTC().Format(time.RFC3339Nano))
		e.ObjEnd()
	})
}
