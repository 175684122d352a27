// HTTP handlers for the gritd control endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spoolghost/gritd/internal/models"
	"github.com/spoolghost/gritd/internal/press"
)

func isBusy(err error) bool {
	return errors.Is(err, press.ErrBusy)
}

// printHandler triggers one slip (POST /print). An empty body means a
// weighted-random category.
func (s *Server) printHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.printHandler: processing print request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.printHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.PrintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Server.printHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.printHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slip, err := s.press.Trigger(r.Context(), press.Request{
		Category:    req.Category,
		Temperature: req.Temperature,
		Source:      models.SourceAPI,
	})
	if err != nil {
		if isBusy(err) {
			slog.Info("Server.printHandler: trigger rejected, slip in flight")
			writeJSONResponse(w, http.StatusConflict, models.Busy("A slip is already printing"))
			return
		}
		slog.Error("Server.printHandler: trigger failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to print slip"))
		return
	}

	slog.Info("Server.printHandler: slip printed", "slip_id", slip.ID, "category", slip.Category)
	writeJSONResponse(w, http.StatusOK, models.Success(models.PrintResult{
		SlipID:   slip.ID,
		Category: slip.Category,
		Source:   slip.Source,
		Chars:    slip.Chars(),
	}))
}

// categoriesHandler lists the catalog (GET /categories).
func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.categoriesHandler: processing categories request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.categoriesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.catalog.Categories()))
}

// journalHandler returns attempt metadata (GET /journal) or clears it
// (DELETE /journal). Slip bodies are never in the journal, so there is
// nothing to leak here.
func (s *Server) journalHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.journalHandler: processing journal request", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		records, err := s.journal.GetSlipRecords()
		if err != nil {
			slog.Error("Server.journalHandler: failed to fetch records", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch journal"))
			return
		}
		slog.Debug("Server.journalHandler: records fetched", "count", len(records))
		writeJSONResponse(w, http.StatusOK, models.Success(records))
	case http.MethodDelete:
		if err := s.journal.ClearSlipRecords(); err != nil {
			slog.Error("Server.journalHandler: failed to clear records", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to clear journal"))
			return
		}
		slog.Info("Server.journalHandler: journal cleared")
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Journal cleared", nil))
	default:
		w.Header().Set("Allow", "GET, DELETE")
		slog.Warn("Server.journalHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ambientHandler routes /ambient and /ambient/{id}.
func (s *Server) ambientHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.ambientHandler: processing ambient request", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/ambient")
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")

	if len(segments) == 0 || segments[0] == "" {
		switch r.Method {
		case http.MethodGet:
			s.listAmbientHandler(w, r)
		case http.MethodPost:
			s.addAmbientHandler(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodDelete:
			s.removeAmbientHandler(w, r, segments[0])
		default:
			w.Header().Set("Allow", http.MethodDelete)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown ambient endpoint"))
}

// listAmbientHandler handles GET /ambient.
func (s *Server) listAmbientHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jobs := make([]models.AmbientJob, 0, len(s.ambient))
	for id, job := range s.ambient {
		job.Next = s.sched.Next(id)
		jobs = append(jobs, job)
	}
	s.mu.Unlock()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	slog.Debug("Server.listAmbientHandler: returning jobs", "count", len(jobs))
	writeJSONResponse(w, http.StatusOK, models.Success(jobs))
}

// addAmbientHandler handles POST /ambient.
func (s *Server) addAmbientHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.AmbientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addAmbientHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	job, err := s.registerAmbient(req)
	if err != nil {
		slog.Warn("Server.addAmbientHandler: rejected", "schedule", req.Schedule, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.ScheduledWithMessage("Ambient schedule added", job))
}

// removeAmbientHandler handles DELETE /ambient/{id}.
func (s *Server) removeAmbientHandler(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		slog.Warn("Server.removeAmbientHandler: bad job ID", "id", rawID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid job ID"))
		return
	}

	entryID := cron.EntryID(id)
	s.mu.Lock()
	job, ok := s.ambient[entryID]
	if ok {
		delete(s.ambient, entryID)
	}
	s.mu.Unlock()
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No such ambient job"))
		return
	}

	s.sched.Remove(entryID)
	slog.Info("Server.removeAmbientHandler: ambient schedule removed", "id", job.ID, "schedule", job.Schedule)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Ambient schedule removed", job))
}

// registerAmbient validates and schedules one ambient print job. It backs
// both POST /ambient and the -ambient startup flags.
func (s *Server) registerAmbient(req models.AmbientRequest) (models.AmbientJob, error) {
	if err := req.Validate(); err != nil {
		return models.AmbientJob{}, err
	}

	category := req.Category
	id, err := s.sched.AddJob(req.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTriggerTimeout)
		defer cancel()
		if _, err := s.press.Trigger(ctx, press.Request{Category: category, Source: models.SourceCron}); err != nil {
			if isBusy(err) {
				slog.Info("Server.registerAmbient: scheduled print skipped, slip in flight", "category", category)
			} else {
				slog.Error("Server.registerAmbient: scheduled print failed", "category", category, "error", err)
			}
		}
	})
	if err != nil {
		return models.AmbientJob{}, err
	}

	job := models.AmbientJob{
		ID:       int(id),
		Schedule: req.Schedule,
		Category: req.Category,
		Next:     s.sched.Next(id),
	}
	s.mu.Lock()
	s.ambient[id] = job
	s.mu.Unlock()

	slog.Info("Server.registerAmbient: ambient schedule added",
		"id", job.ID, "schedule", job.Schedule, "category", job.Category)
	return job, nil
}

// healthHandler reports daemon health (GET /health).
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	health := models.HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Generator: s.press.Generator(),
		Printer:   s.press.Printer(),
	}

	records, err := s.journal.GetSlipRecords()
	if err != nil {
		slog.Warn("Server.healthHandler: journal unreachable", "error", err)
		health.Status = "degraded"
	} else {
		for _, rec := range records {
			if rec.Status == models.SlipStatusPrinted {
				health.Slips++
			}
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, health)
}
