package regression

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/chrissnell/tempcast/pkg/responseformat"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type predictResponse struct {
	PredictedTemperature float64 `json:"predicted_temperature"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server answers POST /predict with the model's estimate
type Server struct {
	model     *Model
	logger    *zap.SugaredLogger
	formatter *responseformat.Formatter
}

// NewServer creates a prediction server for model
func NewServer(model *Model, logger *zap.SugaredLogger) *Server {
	return &Server{model: model, logger: logger, formatter: responseformat.NewFormatter()}
}

// Router returns the server's routes
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	return router
}

func (s *Server) handlePredict(w http.ResponseWriter, req *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(req.Body, 64<<10)).Decode(&body); err != nil {
		s.write(w, req, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}

	month, err := intField(body, "month")
	if err != nil {
		s.write(w, req, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	hour, err := intField(body, "hour")
	if err != nil {
		s.write(w, req, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	t := math.Round(s.model.Predict(month, hour)*100) / 100
	s.logger.Debugw("prediction", "month", month, "hour", hour, "temperature", t)
	s.write(w, req, http.StatusOK, predictResponse{PredictedTemperature: t})
}

func (s *Server) handleModel(w http.ResponseWriter, req *http.Request) {
	s.write(w, req, http.StatusOK, s.model)
}

// intField accepts a JSON number or a numeric string and truncates it to an int
func intField(body map[string]json.RawMessage, name string) (int, error) {
	raw, ok := body[name]
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("field %q must be an integer, got %s", name, raw)
}

func (s *Server) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := s.formatter.WriteResponse(w, req, status, data); err != nil {
		s.logger.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}
