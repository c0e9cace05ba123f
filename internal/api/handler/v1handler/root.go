package v1handler

import (
	"net/http"
)

// Root answers GET / with a welcome message.
func (h Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, "Welcome to the multiple API server!", nil)
}

// Test answers GET /test; it is used as a liveness probe.
func (h Handler) Test(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, "Server is up.", nil)
}
