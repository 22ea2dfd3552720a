// Command predictor-simulator serves a linear temperature model over HTTP so
// that tempcast can be run without the real prediction service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrissnell/tempcast/internal/log"
	"github.com/chrissnell/tempcast/internal/regression"
	"github.com/gorilla/handlers"
)

func main() {
	dataFile := flag.String("data", "", "Whitespace-separated data file with MONTH, HOUR and TEMP (tenths of a degree) columns; built-in sample data when empty")
	listen := flag.String("listen", ":5000", "Address to listen on")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug, log.FileOptions{}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	samples, err := loadSamples(*dataFile)
	if err != nil {
		log.Errorf("Failed to load samples: %v", err)
		os.Exit(1)
	}

	model, err := regression.Fit(samples)
	if err != nil {
		log.Errorf("Failed to fit model: %v", err)
		os.Exit(1)
	}
	log.Infow("model fitted",
		"samples", model.Samples,
		"intercept", model.Intercept,
		"month", model.Month,
		"hour", model.Hour,
		"r_squared", model.RSquared,
	)

	srv := regression.NewServer(model, log.GetSugaredLogger())
	server := &http.Server{
		Addr:              *listen,
		Handler:           handlers.CORS()(srv.Router()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("predictor simulator listening on %s", *listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("server error: %v", err)
		os.Exit(1)
	}
}

func loadSamples(path string) ([]regression.Sample, error) {
	if path == "" {
		log.Info("no data file given; using built-in sample data")
		return regression.SampleData(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return regression.LoadSamples(f)
}
