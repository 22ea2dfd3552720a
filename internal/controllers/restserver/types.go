package restserver

import "github.com/chrissnell/tempcast/internal/predict"

type healthResponse struct {
	Status string `json:"status"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	IntroSeen bool   `json:"intro_seen"`
}

// predictionRequest uses pointers so that a missing field can be told apart from zero
type predictionRequest struct {
	Month *int `json:"month"`
	Hour  *int `json:"hour"`
}

type predictionResponse struct {
	Temperature *float64       `json:"predicted_temperature,omitempty"`
	Source      predict.Source `json:"source"`
	Available   bool           `json:"available"`
}

func newPredictionResponse(r predict.Result) predictionResponse {
	resp := predictionResponse{Source: r.Source, Available: r.Available}
	if r.Available {
		t := r.Temperature
		resp.Temperature = &t
	}
	return resp
}
