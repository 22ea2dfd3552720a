// Command tempcast-predict requests a single temperature prediction from the
// command line, falling back the same way the web API does.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chrissnell/tempcast/internal/log"
	"github.com/chrissnell/tempcast/internal/predict"
	"github.com/chrissnell/tempcast/pkg/config"
)

func main() {
	baseURL := flag.String("url", config.DefaultPredictorURL, "Base URL of the prediction service")
	month := flag.Int("month", int(time.Now().Month()), "Month of the year (1-12)")
	hour := flag.Int("hour", time.Now().Hour(), "Hour of the day (0-23)")
	fallback := flag.String("fallback", config.FallbackSynthetic, "Behaviour when the service fails: 'synthetic' or 'unavailable'")
	timeout := flag.Duration("timeout", config.DefaultPredictorTimeout, "Per-request timeout")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug, log.FileOptions{}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.ConfigData{Predictor: config.PredictorData{
		BaseURL:  *baseURL,
		Timeout:  *timeout,
		Fallback: *fallback,
	}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	orchestrator := predict.NewFromConfig(cfg.Predictor, log.GetSugaredLogger())
	result, err := orchestrator.Predict(context.Background(), predict.Request{Month: *month, Hour: *hour})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if !result.Available {
		fmt.Printf("Prediction unavailable for month %d, hour %d\n", *month, *hour)
		os.Exit(1)
	}
	fmt.Printf("Predicted temperature for month %d, hour %d: %.1f°C (%s)\n", *month, *hour, result.Temperature, result.Source)
}
