package prerequisite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sony/gobreaker"

	"github.com/paldcore/paldcore/pkg/pald"
)

// expectedTables are the tables a healthy PALD deployment's schema should
// carry; fewer than all of them present is a warning, not a hard failure,
// since the database itself is reachable.
var expectedTables = []string{"artifacts", "bias_jobs"}

// DatabaseConnectivityChecker opens a short-lived, unpooled connection,
// runs a trivial query, and counts the expected tables. A gobreaker
// circuit wraps the dial so a down database stops being re-dialed on
// every check.
type DatabaseConnectivityChecker struct {
	DSN     string
	Timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewDatabaseConnectivityChecker returns a checker dialing dsn with the
// given per-attempt timeout.
func NewDatabaseConnectivityChecker(dsn string, timeout time.Duration) *DatabaseConnectivityChecker {
	return &DatabaseConnectivityChecker{
		DSN:     dsn,
		Timeout: timeout,
		breaker: newCheckerBreaker("database_connectivity"),
	}
}

func (c *DatabaseConnectivityChecker) Name() string            { return "database_connectivity" }
func (c *DatabaseConnectivityChecker) Kind() pald.CheckerKind { return pald.KindRequired }

func (c *DatabaseConnectivityChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	start := time.Now()

	connCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	tableCount, err := c.probe(connCtx)
	elapsed := time.Since(start)

	if err != nil {
		return c.classifyFailure(err, elapsed)
	}

	if tableCount >= len(expectedTables) {
		return pald.PrerequisiteResult{
			Name:             c.Name(),
			Status:           pald.StatusPassed,
			Message:          "database connected successfully with required schema",
			Details:          map[string]interface{}{"tables_found": tableCount, "tables_expected": len(expectedTables)},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}

	return pald.PrerequisiteResult{
		Name:    c.Name(),
		Status:  pald.StatusWarning,
		Message: "database connected but schema may be incomplete",
		Details: map[string]interface{}{"tables_found": tableCount, "tables_expected": len(expectedTables)},
		ResolutionSteps: []string{
			"Run the pending database migrations",
			"Check migration status",
			"Verify the database schema is up to date",
		},
		CheckTimeSeconds: elapsed.Seconds(),
		Kind:             c.Kind(),
	}
}

func (c *DatabaseConnectivityChecker) probe(ctx context.Context) (int, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		conn, err := pgx.Connect(ctx, c.DSN)
		if err != nil {
			return 0, err
		}
		defer conn.Close(ctx)

		if err := conn.Ping(ctx); err != nil {
			return 0, err
		}

		var count int
		row := conn.QueryRow(ctx, `
			SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = ANY($1)`, expectedTables)
		if err := row.Scan(&count); err != nil {
			return 0, err
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (c *DatabaseConnectivityChecker) classifyFailure(err error, elapsed time.Duration) pald.PrerequisiteResult {
	if err == gobreaker.ErrOpenState {
		return pald.PrerequisiteResult{
			Name:             c.Name(),
			Status:           pald.StatusFailed,
			Message:          "circuit open: database recently unreachable",
			ResolutionSteps:  []string{"Wait for the circuit breaker to reset", "Check the database status"},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return c.failure(fmt.Sprintf("connection timed out: %s", err), elapsed)
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "password") || strings.Contains(msg, "role"):
		return c.failure(fmt.Sprintf("authentication failed: %s", err), elapsed)
	default:
		return c.failure(fmt.Sprintf("connection failed: %s", err), elapsed)
	}
}

func (c *DatabaseConnectivityChecker) failure(message string, elapsed time.Duration) pald.PrerequisiteResult {
	return pald.PrerequisiteResult{
		Name:    c.Name(),
		Status:  pald.StatusFailed,
		Message: message,
		ResolutionSteps: []string{
			"Verify the database is running and reachable",
			"Check connection credentials",
			"Check network connectivity to the database host",
		},
		CheckTimeSeconds: elapsed.Seconds(),
		Kind:             c.Kind(),
	}
}
