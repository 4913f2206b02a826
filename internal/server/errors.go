package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/robert-malhotra/h5view/internal/catalog"
	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/expr"
	"github.com/robert-malhotra/h5view/internal/params"
	"github.com/robert-malhotra/h5view/internal/pathfilter"
	"github.com/robert-malhotra/h5view/internal/session"
	"github.com/robert-malhotra/h5view/internal/tree"
)

// errorClass names the kind of a failure for responses and metrics.
func errorClass(err error) string {
	var (
		pe  *pathfilter.PatternError
		ee  *expr.Error
		rnf *params.ReferenceNotFoundError
		se  *tree.StructuralError
		re  *container.ReadError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "pattern"
	case errors.As(err, &ee):
		return "expression"
	case errors.As(err, &rnf):
		return "reference"
	case errors.As(err, &se):
		return "structural"
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNoFile),
		errors.Is(err, session.ErrNoGroup), errors.Is(err, params.ErrNoParameter),
		errors.Is(err, catalog.ErrNotFound), errors.Is(err, container.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrNoSelection):
		return "no_selection"
	case errors.Is(err, catalog.ErrTooLarge):
		return "too_large"
	case errors.Is(err, catalog.ErrBadName):
		return "bad_request"
	case errors.As(err, &re):
		return "read"
	}
	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	if errors.As(err, &maxErr) {
		return "too_large"
	}
	if errors.As(err, &syntaxErr) {
		return "bad_request"
	}
	return "internal"
}

var classStatus = map[string]int{
	"pattern":      http.StatusBadRequest,
	"expression":   http.StatusBadRequest,
	"bad_request":  http.StatusBadRequest,
	"reference":    http.StatusUnprocessableEntity,
	"structural":   http.StatusUnprocessableEntity,
	"not_found":    http.StatusNotFound,
	"no_selection": http.StatusConflict,
	"too_large":    http.StatusRequestEntityTooLarge,
	"read":         http.StatusInternalServerError,
	"internal":     http.StatusInternalServerError,
}

type errorBody struct {
	Error string `json:"error"`
	Class string `json:"class"`
	// Pos is the byte offset of an expression error, when known.
	Pos *int `json:"pos,omitempty"`
}

// fail writes err with the status of its class.
func (s *Server) fail(w http.ResponseWriter, err error) {
	class := errorClass(err)
	status, ok := classStatus[class]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := errorBody{Error: err.Error(), Class: class}
	var ee *expr.Error
	if errors.As(err, &ee) && ee.Pos >= 0 {
		body.Pos = &ee.Pos
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "class", class, "err", err)
	}
	s.writeJSON(w, status, body)
}

// badRequest reports a malformed request.
func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Class: "bad_request"})
}

// writeJSON encodes v before sending the status line, so a value that cannot
// be encoded becomes a 500 instead of a truncated body.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.Error("encoding response", "status", code, "err", err)
		buf.Reset()
		code = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(errorBody{Error: "encoding response: " + err.Error(), Class: "internal"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Debug("writing response", "err", err)
	}
}
