package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/resolve"
	"github.com/me/gokite/pkg/model"
)

type jobResponse struct {
	Name  string                   `json:"name"`
	Slots []model.JobParameterSlot `json:"slots"`
}

type scheduleResponse struct {
	Job       string              `json:"job"`
	Frequency string              `json:"frequency"`
	Next      time.Time           `json:"next"`
	Views     []model.ViewBinding `json:"views"`
}

type resolveResponse struct {
	Job         string               `json:"job"`
	NominalTime time.Time            `json:"nominal_time"`
	Views       []model.ResolvedView `json:"views"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	names := s.jobs.Names()
	out := make([]jobResponse, 0, len(names))
	for _, name := range names {
		m, err := s.jobs.Describe(name)
		if err != nil {
			respondErr(w, reqID, err)
			return
		}
		out = append(out, jobResponse{Name: name, Slots: m.Slots})
	}
	respondOK(w, reqID, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")
	m, err := s.jobs.Describe(name)
	if err != nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("job", name))
		return
	}
	respondOK(w, reqID, jobResponse{Name: name, Slots: m.Slots})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	out := []scheduleResponse{}
	if s.app != nil {
		now := time.Now()
		for _, sc := range s.app.Schedules {
			out = append(out, scheduleResponse{
				Job:       sc.Job,
				Frequency: sc.Frequency,
				Next:      sc.Next(now),
				Views:     sc.Views,
			})
		}
	}
	respondOK(w, reqID, out)
}

// handleResolveSchedule resolves every view of a schedule for ?at=<nominal
// time> without running the job.
func (s *Server) handleResolveSchedule(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	jobName := chi.URLParam(r, "job")
	if s.app == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("schedule", jobName))
		return
	}
	sc, ok := s.app.Schedule(jobName)
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("schedule", jobName))
		return
	}

	at := r.URL.Query().Get("at")
	if at == "" {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{Code: model.CodeBadRequest, Message: "at is required"})
		return
	}
	nominal, err := bridge.ParseNominalTime(at)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}

	resp := resolveResponse{Job: jobName, NominalTime: nominal}
	for _, v := range sc.Views {
		rv, err := resolve.Resolve(v, nominal)
		if err != nil {
			respondErr(w, reqID, err)
			return
		}
		resp.Views = append(resp.Views, rv)
	}
	respondOK(w, reqID, resp)
}
