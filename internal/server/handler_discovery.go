package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	endpoints := []endpointInfo{
		{"/api/v1/jobs", []string{"GET"}, "Registered jobs and their view slots"},
		{"/api/v1/jobs/{name}", []string{"GET"}, "Single job slot table"},
		{"/api/v1/schedules", []string{"GET"}, "Application schedules with their next firing"},
		{"/api/v1/schedules/{job}/resolve", []string{"GET"}, "Resolve a schedule's views for ?at=<nominal time>"},
		{"/api/v1/datasets/{dataset}/partitions", []string{"GET"}, "Stored partitions of a dataset (?limit, ?offset)"},
		{"/api/v1/records", []string{"GET"}, "Records covered by ?uri=<view address>"},
		{"/api/v1/health", []string{"GET"}, "Engine and scheduler health"},
	}
	if s.metrics != nil {
		endpoints = append(endpoints, endpointInfo{"/metrics", []string{"GET"}, "Prometheus metrics"})
	}
	respondOK(w, reqID, discoveryResponse{
		Name:        "gokite API",
		Version:     "v1",
		Description: "gokite status API: jobs, schedules, dataset partitions",
		Endpoints:   endpoints,
	})
}
