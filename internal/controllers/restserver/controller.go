package restserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chrissnell/tempcast/internal/predict"
	"github.com/chrissnell/tempcast/internal/session"
	"github.com/chrissnell/tempcast/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Predictor produces a prediction for a validated request
type Predictor interface {
	Predict(ctx context.Context, req predict.Request) (predict.Result, error)
}

// Controller represents the REST server controller
type Controller struct {
	Server        http.Server
	serverConfig  config.ServerData
	sessionConfig config.SessionData
	predictor     Predictor
	sessions      *session.Store
	logger        *zap.SugaredLogger
	handlers      *Handlers
}

// NewController creates a new REST server controller
func NewController(cfg *config.ConfigData, predictor Predictor, sessions *session.Store, logger *zap.SugaredLogger) (*Controller, error) {
	if predictor == nil {
		return nil, fmt.Errorf("REST server requires a predictor")
	}
	if sessions == nil {
		return nil, fmt.Errorf("REST server requires a session store")
	}

	ctrl := &Controller{
		serverConfig:  cfg.Server,
		sessionConfig: cfg.Session,
		predictor:     predictor,
		sessions:      sessions,
		logger:        logger,
	}

	if ctrl.serverConfig.ListenAddr == "" {
		logger.Info("server.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		ctrl.serverConfig.ListenAddr = config.DefaultListenAddr
	}
	if ctrl.serverConfig.Port == 0 {
		logger.Infof("server.port not provided; defaulting to %d", config.DefaultPort)
		ctrl.serverConfig.Port = config.DefaultPort
	}
	if ctrl.sessionConfig.CookieName == "" {
		ctrl.sessionConfig.CookieName = config.DefaultSessionCookie
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.serverConfig.ListenAddr, ctrl.serverConfig.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 5 * time.Second

	return ctrl, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down
func (c *Controller) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		c.logger.Infof("REST server listening on %s", c.Server.Addr)

		var err error
		if c.serverConfig.Cert != "" && c.serverConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.serverConfig.Cert, c.serverConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			errCh <- fmt.Errorf("REST server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("Shutting down the REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("REST server shutdown: %w", err)
	}
	return <-errCh
}

// Handler returns the fully wrapped HTTP handler
func (c *Controller) Handler() http.Handler {
	router := c.setupRouter()

	corsOpts := []handlers.CORSOption{
		handlers.AllowedOrigins(c.serverConfig.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	}
	if allowsAnyOrigin(c.serverConfig.AllowedOrigins) {
		c.logger.Warn("server.allowed_origins allows any origin; cross-origin front-ends will not send the session cookie. " +
			"List the front-end origin explicitly to enable credentialed requests")
	} else {
		corsOpts = append(corsOpts, handlers.AllowCredentials())
	}

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(c.logger.Desugar())),
		handlers.PrintRecoveryStack(true),
	)

	return recovery(handlers.CORS(corsOpts...)(router))
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/logs/http", c.handlers.GetHTTPLogs).Methods(http.MethodGet)
	api.HandleFunc("/charts", c.handlers.GetCharts).Methods(http.MethodGet)

	// Only the session endpoint creates sessions
	api.Handle("/session", c.sessionMiddleware(http.HandlerFunc(c.handlers.GetSession))).Methods(http.MethodGet)

	// Everything below is scoped to an existing session
	sess := api.NewRoute().Subrouter()
	sess.Use(c.requireSession)
	sess.HandleFunc("/session/intro", c.handlers.MarkIntroSeen).Methods(http.MethodPost)
	sess.HandleFunc("/predict", c.handlers.Predict).Methods(http.MethodPost)
	sess.HandleFunc("/history", c.handlers.GetHistory).Methods(http.MethodGet)
	sess.HandleFunc("/history/summary", c.handlers.GetHistorySummary).Methods(http.MethodGet)
	sess.HandleFunc("/history/{id}", c.handlers.DeleteHistoryEntry).Methods(http.MethodDelete)

	return router
}

func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
