package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const settingsSchema = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Settings are stored as dotted key/value rows, e.g. predictor.base_url.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitSchema creates the settings table if it does not exist
func (s *SQLiteProvider) InitSchema() error {
	if _, err := s.db.Exec(settingsSchema); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	r := settingsReader{values: settings}
	cfg := &ConfigData{
		Predictor: PredictorData{
			BaseURL:  r.str("predictor.base_url"),
			Timeout:  r.duration("predictor.timeout"),
			Fallback: r.str("predictor.fallback"),
			RateLimit: RateLimitData{
				RPS:   r.float("predictor.rate_limit.rps"),
				Burst: r.int("predictor.rate_limit.burst"),
			},
			Breaker: BreakerData{
				MaxFailures:  r.int("predictor.breaker.max_failures"),
				ResetTimeout: r.duration("predictor.breaker.reset_timeout"),
			},
		},
		Server: ServerData{
			ListenAddr:     r.str("server.listen_addr"),
			Port:           r.int("server.port"),
			Cert:           r.str("server.cert"),
			Key:            r.str("server.key"),
			AllowedOrigins: r.list("server.allowed_origins"),
		},
		Session: SessionData{
			TTL:        r.duration("session.ttl"),
			CookieName: r.str("session.cookie_name"),
		},
		Log: LogData{
			File:       r.str("log.file"),
			MaxSizeMB:  r.int("log.max_size_mb"),
			MaxBackups: r.int("log.max_backups"),
			MaxAgeDays: r.int("log.max_age_days"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// SaveConfig writes every setting of cfg, replacing existing values
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	values := map[string]string{
		"predictor.base_url":              cfg.Predictor.BaseURL,
		"predictor.timeout":               cfg.Predictor.Timeout.String(),
		"predictor.fallback":              cfg.Predictor.Fallback,
		"predictor.rate_limit.rps":        strconv.FormatFloat(cfg.Predictor.RateLimit.RPS, 'f', -1, 64),
		"predictor.rate_limit.burst":      strconv.Itoa(cfg.Predictor.RateLimit.Burst),
		"predictor.breaker.max_failures":  strconv.Itoa(cfg.Predictor.Breaker.MaxFailures),
		"predictor.breaker.reset_timeout": cfg.Predictor.Breaker.ResetTimeout.String(),
		"server.listen_addr":              cfg.Server.ListenAddr,
		"server.port":                     strconv.Itoa(cfg.Server.Port),
		"server.cert":                     cfg.Server.Cert,
		"server.key":                      cfg.Server.Key,
		"server.allowed_origins":          strings.Join(cfg.Server.AllowedOrigins, ","),
		"session.ttl":                     cfg.Session.TTL.String(),
		"session.cookie_name":             cfg.Session.CookieName,
		"log.file":                        cfg.Log.File,
		"log.max_size_mb":                 strconv.Itoa(cfg.Log.MaxSizeMB),
		"log.max_backups":                 strconv.Itoa(cfg.Log.MaxBackups),
		"log.max_age_days":                strconv.Itoa(cfg.Log.MaxAgeDays),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO settings(key, value) VALUES(?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare settings insert: %w", err)
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

// settingsReader converts raw setting strings, remembering the first parse error
type settingsReader struct {
	values map[string]string
	err    error
}

func (r *settingsReader) str(key string) string {
	return r.values[key]
}

func (r *settingsReader) int(key string) int {
	v, ok := r.values[key]
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("setting %s: %w", key, err)
	}
	return n
}

func (r *settingsReader) float(key string) float64 {
	v, ok := r.values[key]
	if !ok || v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("setting %s: %w", key, err)
	}
	return f
}

func (r *settingsReader) duration(key string) time.Duration {
	v, ok := r.values[key]
	if !ok || v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("setting %s: %w", key, err)
	}
	return d
}

func (r *settingsReader) list(key string) []string {
	v := r.values[key]
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
