package sandbox

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/5w1tchy/library-client/internal/models"
	"github.com/5w1tchy/library-client/internal/validate"
)

// Response codes carried in the envelope, following the backend's numbering.
const (
	codeOK              = 1000
	codeInvalid         = 1001
	codeExists          = 1002
	codeNotFound        = 1005
	codeUnauthenticated = 1006
	codeUnauthorized    = 1007
	codeOutOfStock      = 1010
	codeUncategorized   = 9999
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func reply(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, models.Envelope[any]{Code: codeOK, Result: result})
}

func created(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusCreated, models.Envelope[any]{Code: codeOK, Result: result})
}

func fail(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

func invalid(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: codeInvalid, Message: msg, Field: field})
}

func notFound(w http.ResponseWriter, what string) {
	fail(w, http.StatusNotFound, codeNotFound, what+" not found")
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		invalid(w, "", "Invalid request body")
		return false
	}
	return true
}

// paging reads the 1-based page and size; the envelope echoes a 0-based page.
func paging(r *http.Request) (current, size int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	size, _ = strconv.Atoi(strings.TrimSpace(q.Get("size")))
	page, size = validate.ClampPage(page, size, 10, 100)
	return page - 1, size
}

func writePage[T any](w http.ResponseWriter, r *http.Request, all []T) {
	current, size := paging(r)
	reply(w, models.Paginate(all, current, size))
}
