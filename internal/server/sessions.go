package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/h5view/internal/histogram"
	"github.com/robert-malhotra/h5view/internal/params"
	"github.com/robert-malhotra/h5view/internal/session"
)

type ctxKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
		if err != nil {
			s.fail(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ctxKey{}).(*session.Session)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) paramIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		s.badRequest(w, "parameter index must be an integer")
		return 0, false
	}
	return i, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(sessionFrom(r).ID); err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) open(r *http.Request, sess *session.Session, paths []string) error {
	start := time.Now()
	err := sess.OpenFiles(r.Context(), paths)
	s.metrics.Observe("index", errorClass(err), start)
	return err
}

// openFiles opens catalog uploads in the session.
func (s *Server) openFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	paths := make([]string, len(req.IDs))
	for i, id := range req.IDs {
		u, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			s.fail(w, err)
			return
		}
		paths[i] = u.Path
	}
	sess := sessionFrom(r)
	if err := s.open(r, sess, paths); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Clear()
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

type indexRequest struct {
	Index int `json:"index"`
}

func (s *Server) selectFile(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	if err := sess.SelectFile(req.Index); err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := sessionFrom(r).Groups()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, groups)
}

func (s *Server) selectGroup(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !s.decode(w, r, &req) {
		return
	}
	datasets, err := sessionFrom(r).SelectGroup(req.Index)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) clearGroup(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.ClearGroupSelection()
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	datasets, err := sessionFrom(r).Search(r.URL.Query().Get("q"))
	s.metrics.Observe("search", errorClass(err), start)
	if err != nil {
		s.fail(w, err)
		return
	}
	if datasets == nil {
		datasets = []string{}
	}
	s.writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot().Parameters)
}

func (s *Server) addParameter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		File int    `json:"file"`
		Path string `json:"path"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	start := time.Now()
	i, err := sess.AddParameter(req.File, req.Path)
	s.metrics.Observe("add", errorClass(err), start)
	if err != nil {
		s.fail(w, err)
		return
	}
	p, err := sess.Parameter(i)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.Validity.WithLabelValues(p.Validity.String()).Inc()
	s.writeJSON(w, http.StatusCreated, parameterBody(p))
}

// parameterJSON is a parameter with its filtered values.
type parameterJSON struct {
	session.ParamState
	Shape  []uint64  `json:"shape"`
	Values []float64 `json:"values"`
}

func parameterBody(p params.Parameter) parameterJSON {
	return parameterJSON{
		ParamState: session.ParamState{
			Index:      p.Index,
			File:       p.File,
			Path:       p.Path,
			Visible:    p.Visible,
			Validity:   p.Validity.String(),
			Raw:        len(p.Raw),
			Base:       len(p.Base),
			Filtered:   len(p.Filtered),
			Expression: p.Expression,
			Reference:  p.Reference,
		},
		Shape:  p.Shape,
		Values: finite(p.Filtered),
	}
}

// finite replaces NaN and ±Inf, which JSON cannot carry, with zero.
func finite(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}

func (s *Server) getParameter(w http.ResponseWriter, r *http.Request) {
	i, ok := s.paramIndex(w, r)
	if !ok {
		return
	}
	p, err := sessionFrom(r).Parameter(i)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, parameterBody(p))
}

// paramOp runs op on the parameter named in the URL and answers with the
// parameter list.
func (s *Server) paramOp(op func(sess *session.Session, i int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := s.paramIndex(w, r)
		if !ok {
			return
		}
		sess := sessionFrom(r)
		if err := op(sess, i); err != nil {
			s.fail(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sess.Snapshot().Parameters)
	}
}

func (s *Server) removeParameter(w http.ResponseWriter, r *http.Request) {
	s.paramOp((*session.Session).RemoveParameter)(w, r)
}

func (s *Server) showParameter(w http.ResponseWriter, r *http.Request) {
	s.paramOp((*session.Session).Show)(w, r)
}

func (s *Server) hideParameter(w http.ResponseWriter, r *http.Request) {
	s.paramOp((*session.Session).Hide)(w, r)
}

func (s *Server) resetFilter(w http.ResponseWriter, r *http.Request) {
	s.paramOp((*session.Session).ResetFilter)(w, r)
}

func (s *Server) applyFilter(w http.ResponseWriter, r *http.Request) {
	i, ok := s.paramIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Expression string `json:"expression"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	start := time.Now()
	err := sess.ApplyFilter(i, req.Expression)
	s.metrics.Observe("filter", errorClass(err), start)
	if err != nil {
		s.log.Info("filter rejected", "index", i, "expression", req.Expression, "err", err)
		s.fail(w, err)
		return
	}
	p, err := sess.Parameter(i)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, parameterBody(p))
}

// summaryJSON is a histogram summary with an undefined mode sent as null.
type summaryJSON struct {
	Label  string    `json:"label"`
	Counts []float64 `json:"counts"`
	Edges  []float64 `json:"edges"`
	Mode   *float64  `json:"mode"`
	N      int       `json:"n"`
}

func summaryBody(summaries []histogram.Summary) []summaryJSON {
	out := make([]summaryJSON, len(summaries))
	for i, h := range summaries {
		out[i] = summaryJSON{Label: h.Label, Counts: finite(h.Counts), Edges: finite(h.Edges), N: h.N}
		if !math.IsNaN(h.Mode) && !math.IsInf(h.Mode, 0) {
			mode := h.Mode
			out[i].Mode = &mode
		}
	}
	return out
}

func (s *Server) histograms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, summaryBody(sessionFrom(r).Histograms()))
}

func (s *Server) histogramImage(w http.ResponseWriter, r *http.Request) {
	opts := histogram.RenderOptions{
		Width:  queryInt(r, "width", 900),
		Height: queryInt(r, "height", 500),
	}
	if opts.Width > 4096 || opts.Height > 4096 {
		s.badRequest(w, "image too large")
		return
	}
	var buf bytes.Buffer
	if err := histogram.Render(&buf, sessionFrom(r).Histograms(), opts); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
