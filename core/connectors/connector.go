// Package connectors provides database connectors for extraction scripts.
// All connectors implementing the Connector interface automatically benefit
// from parallel initialization and shutdown via Manager.
package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/strata-analytics/strata/core/frame"
)

// Connector runs one statement at a time against a database.
type Connector interface {
	// Query executes a statement and returns the result rows. limit > 0
	// stops reading after that many rows; limit <= 0 reads everything.
	// The context allows cancellation and timeout propagation.
	Query(ctx context.Context, statement string, limit int) (*frame.Frame, error)

	// Close closes the connector and releases resources
	Close() error
}

// Params describes one adapter's connection settings. Either DSN is set,
// or it is assembled from the host/port/service/user/pass fields.
type Params struct {
	Driver  string
	DSN     string
	Host    string
	Port    int
	Service string
	User    string
	Pass    string
	Options map[string]string
}

// New creates a connector for the configured driver.
func New(p Params) (Connector, error) {
	switch strings.ToLower(p.Driver) {
	case "oracle":
		return NewOracleConnector(p)
	case "postgres", "postgresql":
		return NewPostgresConnector(p)
	case "mysql":
		return NewMySQLConnector(p)
	case "":
		return nil, fmt.Errorf("adapter has no driver specified")
	default:
		return nil, fmt.Errorf("unsupported driver '%s'", p.Driver)
	}
}

// bytesToString converts []byte column values to strings so rendering and
// JSON output stay readable.
func bytesToString(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
