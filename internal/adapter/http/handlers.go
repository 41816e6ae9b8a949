package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/report"
	"github.com/couchcryptid/outage-tracker/internal/service"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// maxBodyBytes caps request bodies; a draft is a handful of short strings.
const maxBodyBytes = 64 << 10

var (
	// errBadRequest marks malformed query parameters and bodies.
	errBadRequest = errors.New("bad request")
	// errRender marks export documents that failed to build.
	errRender = errors.New("render export")
)

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.svc.List(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	event, err := s.svc.Create(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/events/"+event.ID)
	sharedobs.WriteJSON(w, http.StatusCreated, event)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	event, err := s.svc.Update(r.Context(), r.PathValue("id"), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Overview(r.Context(), window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleDurations(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.DurationView(r.Context(), window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleDamages(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := parseCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.DamageView(r.Context(), window, category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	severity, err := parseSeverity(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.LocationView(r.Context(), severity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleKnownLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.svc.KnownLocations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, locations)
}

func (s *Server) handleCheckDuration(w http.ResponseWriter, r *http.Request) {
	check, err := s.svc.CheckDuration(r.URL.Query().Get("input"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, check)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	events, overview, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := report.BuildXLSX(events, overview)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: xlsx: %w", errRender, err))
		return
	}
	writeAttachment(w, report.ContentTypeXLSX, exportName(overview.GeneratedAt, "xlsx"), data)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	_, overview, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := report.BuildPDF(overview, overview.Recent)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: pdf: %w", errRender, err))
		return
	}
	writeAttachment(w, report.ContentTypePDF, exportName(overview.GeneratedAt, "pdf"), data)
}

// writeError maps service and domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrInvalidWindow):
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrEventNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrDuplicateID):
		sharedobs.WriteJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnknownLocation):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Hint:  "register the location first",
		})
	case domain.IsValidationError(err):
		resp := errorResponse{Error: err.Error()}
		if errors.Is(err, domain.ErrInvalidFormat) {
			resp.Hint = domain.DurationFormatHint
		}
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, errRender):
		s.logger.Error("export failed", "method", r.Method, "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "the export could not be generated",
		})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "the event store is unavailable, try again",
		})
	}
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (domain.Draft, error) {
	var d domain.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return domain.Draft{}, fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return d, nil
}

func parseQuery(r *http.Request) (service.Query, error) {
	var q service.Query
	var err error
	if q.Window, err = parseWindow(r); err != nil {
		return q, err
	}
	if q.Severity, err = parseSeverity(r); err != nil {
		return q, err
	}
	if q.Category, err = parseCategory(r); err != nil {
		return q, err
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		if q.Kind, err = domain.ParseFormKind(kind); err != nil {
			return q, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return q, nil
}

// parseWindow leaves the window empty when absent so the service default applies.
func parseWindow(r *http.Request) (domain.Window, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return "", nil
	}
	return domain.ParseWindow(raw)
}

func parseSeverity(r *http.Request) (domain.Severity, error) {
	raw := r.URL.Query().Get("severity")
	if raw == "" {
		return "", nil
	}
	sev, err := domain.ParseSeverity(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return sev, nil
}

func parseCategory(r *http.Request) (domain.Category, error) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return "", nil
	}
	category, ok := domain.ParseCategory(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", errBadRequest, raw)
	}
	return category, nil
}

func exportName(at time.Time, ext string) string {
	return fmt.Sprintf("outages-%s.%s", at.Format("20060102"), ext)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
