package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/pkg/model"
)

func (s *Server) handleListPartitions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "dataset")

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}
	opts.Clamp()

	parts, err := s.store.Partitions(r.Context(), name)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	total := len(parts)
	page := []dataset.Partition{}
	if opts.Offset < total {
		page = parts[opts.Offset:min(opts.Offset+opts.Limit, total)]
	}
	respondList(w, reqID, page, opts.Page(total))
}

func (s *Server) handleReadRecords(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{Code: model.CodeBadRequest, Message: "uri is required"})
		return
	}
	recs, err := s.store.Read(r.Context(), uri)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	respondOK(w, reqID, recs)
}
