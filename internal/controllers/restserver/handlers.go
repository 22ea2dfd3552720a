package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/chrissnell/tempcast/internal/charts"
	"github.com/chrissnell/tempcast/internal/log"
	"github.com/chrissnell/tempcast/internal/predict"
	"github.com/chrissnell/tempcast/pkg/responseformat"
	"github.com/gorilla/mux"
)

const maxRequestBody = 64 << 10

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetHealth reports that the server is up
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, healthResponse{Status: "ok"})
}

// GetSession returns the caller's session id and whether the intro has played
func (h *Handlers) GetSession(w http.ResponseWriter, req *http.Request) {
	s := sessionFromContext(req.Context())
	h.write(w, req, http.StatusOK, sessionResponse{SessionID: s.ID, IntroSeen: s.IntroSeen()})
}

// MarkIntroSeen records that the intro sequence completed in this session
func (h *Handlers) MarkIntroSeen(w http.ResponseWriter, req *http.Request) {
	sessionFromContext(req.Context()).MarkIntroSeen()
	w.WriteHeader(http.StatusNoContent)
}

// Predict runs one prediction for the caller's session
func (h *Handlers) Predict(w http.ResponseWriter, req *http.Request) {
	s := sessionFromContext(req.Context())

	var body predictionRequest
	dec := json.NewDecoder(io.LimitReader(req.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if body.Month == nil || body.Hour == nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid prediction request",
			fmt.Errorf("%w: month and hour are required", predict.ErrInvalidRequest))
		return
	}

	if !s.BeginPrediction() {
		h.writeError(w, req, http.StatusConflict, "a prediction is already in progress for this session", nil)
		return
	}
	defer s.EndPrediction()

	result, err := h.controller.predictor.Predict(req.Context(), predict.Request{Month: *body.Month, Hour: *body.Hour})
	switch {
	case errors.Is(err, predict.ErrInvalidRequest):
		h.writeError(w, req, http.StatusBadRequest, "invalid prediction request", err)
		return
	case err != nil:
		h.controller.logger.Warnw("prediction aborted", "session_id", s.ID, "error", err)
		h.writeError(w, req, http.StatusServiceUnavailable, "prediction aborted", err)
		return
	}

	h.write(w, req, http.StatusOK, newPredictionResponse(result))
}

// GetHistory returns the session's history entries, newest first
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	s := sessionFromContext(req.Context())
	h.write(w, req, http.StatusOK, s.History.Entries())
}

// GetHistorySummary returns aggregate statistics over the session's history
func (h *Handlers) GetHistorySummary(w http.ResponseWriter, req *http.Request) {
	s := sessionFromContext(req.Context())
	h.write(w, req, http.StatusOK, s.History.Summary())
}

// DeleteHistoryEntry removes one entry from the session's history
func (h *Handlers) DeleteHistoryEntry(w http.ResponseWriter, req *http.Request) {
	s := sessionFromContext(req.Context())

	id, err := strconv.Atoi(mux.Vars(req)["id"])
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid history entry id", err)
		return
	}
	if !s.History.Delete(id) {
		h.writeError(w, req, http.StatusNotFound, fmt.Sprintf("history entry %d not found", id), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCharts returns the chart data shown on the results view
func (h *Handlers) GetCharts(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, charts.All())
}

// GetHTTPLogs returns the recent request log
func (h *Handlers) GetHTTPLogs(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, log.GetHTTPLogBuffer().Entries())
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, message string, err error) {
	if werr := h.formatter.WriteError(w, req, status, message, err); werr != nil {
		h.controller.logger.Errorf("error writing error response for %s: %v", req.URL.Path, werr)
	}
}
