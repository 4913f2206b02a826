package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/h5view/internal/catalog"
)

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	all, err := s.catalog.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if all == nil {
		all = []catalog.Upload{}
	}
	s.writeJSON(w, http.StatusOK, all)
}

// uploadFiles stores every "file" part of a multipart body. With a session
// query parameter the stored files are also opened in that session.
func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	mr, err := r.MultipartReader()
	if err != nil {
		s.badRequest(w, "expected a multipart/form-data body")
		return
	}

	var stored []catalog.Upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}
		u, err := s.catalog.Save(r.Context(), part.FileName(), part)
		part.Close()
		s.metrics.Observe("upload", errorClass(err), start)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.log.Info("file uploaded", "file", u.Path, "id", u.ID, "size", u.Size)
		stored = append(stored, *u)
	}
	if len(stored) == 0 {
		s.badRequest(w, `no "file" parts in upload`)
		return
	}
	s.refreshUploads(r)

	if sid := r.URL.Query().Get("session"); sid != "" {
		sess, err := s.sessions.Get(sid)
		if err != nil {
			s.fail(w, err)
			return
		}
		paths := make([]string, len(stored))
		for i, u := range stored {
			paths[i] = u.Path
		}
		if err := s.open(r, sess, paths); err != nil {
			s.fail(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	u, err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.sessions.ForgetFile(u.Path)
	s.refreshUploads(r)
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) clearFiles(w http.ResponseWriter, r *http.Request) {
	removed, err := s.catalog.Clear(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, u := range removed {
		s.sessions.ForgetFile(u.Path)
	}
	s.refreshUploads(r)
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": len(removed)})
}

func (s *Server) refreshUploads(r *http.Request) {
	all, err := s.catalog.List(r.Context())
	if err != nil {
		s.log.Warn("counting uploads", "err", err)
		return
	}
	s.metrics.Uploads.Set(float64(len(all)))
}
