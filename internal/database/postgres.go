package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/logging"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresDB wraps sqlx.DB with additional functionality. sqlx.DB embeds
// *sql.DB, so every sql.DB method is still available; the requeststore
// package layers Select/Get struct scanning on top of it.
type PostgresDB struct {
	*sqlx.DB
	config *config.DatabaseConfig
	logger *logging.Logger
}

// NewPostgresConnection creates a new PostgreSQL database connection
func NewPostgresConnection(cfg *config.DatabaseConfig, logger *logging.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{
		DB:     db,
		config: cfg,
		logger: logger,
	}

	logger.WithComponent("database").Info("PostgreSQL connection established")

	return pgDB, nil
}

// Close closes the database connection
func (db *PostgresDB) Close() error {
	db.logger.WithComponent("database").Info("Closing PostgreSQL connection")
	return db.DB.Close()
}

// Ping checks if the database connection is alive
func (db *PostgresDB) Ping(ctx context.Context) error {
	start := time.Now()
	err := db.DB.PingContext(ctx)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("ping", "", duration, err, nil)
	return err
}

// BeginSerializable starts a serializable-isolation transaction, the
// isolation level the trip assembler requires for its driver reservation
// and seat accounting (spec §4.G, §5).
func (db *PostgresDB) BeginSerializable(ctx context.Context) (*sqlx.Tx, error) {
	start := time.Now()
	tx, err := db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("begin_tx_serializable", "", duration, err, nil)

	return tx, err
}

// ExecContext executes a query with context and logging
func (db *PostgresDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("exec", extractTableName(query), duration, err, logging.Fields{
		"query": query,
		"args":  args,
	})

	return result, err
}

// QueryContext executes a query with context and logging
func (db *PostgresDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("query", extractTableName(query), duration, err, logging.Fields{
		"query": query,
		"args":  args,
	})

	return rows, err
}

// QueryRowContext executes a query that returns a single row with context and logging
func (db *PostgresDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("query_row", extractTableName(query), duration, nil, logging.Fields{
		"query": query,
		"args":  args,
	})

	return row
}

// BeginTx starts a transaction with context and logging
func (db *PostgresDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := db.DB.BeginTx(ctx, opts)
	duration := time.Since(start).Milliseconds()

	db.logger.LogDatabaseOperation("begin_tx", "", duration, err, nil)

	return tx, err
}

// GetStats returns database connection statistics
func (db *PostgresDB) GetStats() sql.DBStats {
	return db.DB.Stats()
}

// HealthCheck performs a comprehensive health check
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	// Check basic connectivity
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	// Check if we can execute a simple query
	var result int
	err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("simple query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected query result: %d", result)
	}

	// Check connection pool stats
	stats := db.GetStats()
	if stats.OpenConnections == 0 {
		return fmt.Errorf("no open connections")
	}

	return nil
}

// IsConnectionError checks if an error is a connection-related error
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// Check for PostgreSQL-specific connection errors
	if pqErr, ok := err.(*pq.Error); ok {
		// Connection errors typically have these codes
		switch pqErr.Code {
		case "08000", "08003", "08006", "08001", "08004":
			return true
		}
	}

	// Check for common connection error messages
	errorMsg := err.Error()
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"connection lost",
	}

	for _, connErr := range connectionErrors {
		if contains(errorMsg, connErr) {
			return true
		}
	}

	return false
}

// IsDuplicateKeyError checks if an error is a duplicate key constraint violation
func IsDuplicateKeyError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}

// IsForeignKeyError checks if an error is a foreign key constraint violation
func IsForeignKeyError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// IsNotNullError checks if an error is a not null constraint violation
func IsNotNullError(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23502" // not_null_violation
	}
	return false
}

// Helper functions

func extractTableName(query string) string {
	// Simple table name extraction - could be improved with proper SQL parsing
	// This is a basic implementation for logging purposes
	if len(query) < 10 {
		return "unknown"
	}

	// Match against a bounded prefix of the query
	q := query
	if len(q) > 100 {
		q = q[:100] // Limit length for performance
	}

	// Look for common SQL patterns
	patterns := map[string][]string{
		"drivers":            {"FROM drivers", "INTO drivers", "UPDATE drivers", "DELETE FROM drivers"},
		"vehicles":           {"FROM vehicles", "INTO vehicles", "UPDATE vehicles", "DELETE FROM vehicles"},
		"passenger_requests": {"FROM passenger_requests", "INTO passenger_requests", "UPDATE passenger_requests", "DELETE FROM passenger_requests"},
		"delivery_requests":  {"FROM delivery_requests", "INTO delivery_requests", "UPDATE delivery_requests", "DELETE FROM delivery_requests"},
		"trips":              {"FROM trips", "INTO trips", "UPDATE trips", "DELETE FROM trips"},
		"bookings":           {"FROM bookings", "INTO bookings", "UPDATE bookings", "DELETE FROM bookings"},
		"deliveries":         {"FROM deliveries", "INTO deliveries", "UPDATE deliveries", "DELETE FROM deliveries"},
		"system_metrics":     {"FROM system_metrics", "INTO system_metrics", "UPDATE system_metrics", "DELETE FROM system_metrics"},
		"event_logs":         {"FROM event_logs", "INTO event_logs", "UPDATE event_logs", "DELETE FROM event_logs"},
	}

	for table, tablePatterns := range patterns {
		for _, pattern := range tablePatterns {
			if contains(q, pattern) {
				return table
			}
		}
	}

	return "unknown"
}

func contains(s, substr string) bool {
	// Simple case-insensitive contains check
	s = toLower(s)
	substr = toLower(substr)
	return len(s) >= len(substr) && findSubstring(s, substr)
}

func toLower(s string) string {
	result := make([]byte, len(s))
	for i, b := range []byte(s) {
		if b >= 'A' && b <= 'Z' {
			result[i] = b + 32
		} else {
			result[i] = b
		}
	}
	return string(result)
}

func findSubstring(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	if len(s) < len(substr) {
		return false
	}

	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			if s[i+j] != substr[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}