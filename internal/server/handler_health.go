package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/me/gokite/internal/scheduler"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Engine    string            `json:"engine"`
	Jobs      int               `json:"jobs"`
	App       string            `json:"app,omitempty"`
	Scheduler *scheduler.Status `json:"scheduler,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	resp := healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Engine:    "not_configured",
		Jobs:      len(s.jobs.Names()),
	}
	if s.engine != nil {
		resp.Engine = s.engine.State().String()
	}
	if s.app != nil {
		resp.App = s.app.Name
	}
	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
		if st.LastError != "" {
			resp.Status = "degraded"
		}
	}
	respondOK(w, reqID, resp)
}
