package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/storage"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

const maxBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

var errForbidden = &httpError{status: http.StatusForbidden, msg: "forbidden"}

// fail maps err onto a status code and writes the error envelope.
func fail(w http.ResponseWriter, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		writeError(w, he.status, he.msg)
	case errors.Is(err, assessment.ErrNotFound), errors.Is(err, users.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assessment.ErrAlreadySubmitted), errors.Is(err, assessment.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, notify.ErrInvalid), errors.Is(err, storage.ErrBadKey),
		errors.Is(err, users.ErrInvalidRole), errors.Is(err, users.ErrPasswordRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into dst and runs struct validation.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return badRequest("bad json: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return badRequest("invalid request: %s", strings.Join(fields, "; "))
		}
		return badRequest("invalid request: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, k string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(k))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
