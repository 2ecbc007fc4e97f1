package connectors

import (
	"context"
	"database/sql"
	"fmt"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/logging"
)

// OracleConnector implements the Connector interface for Oracle via the
// pure-Go go-ora driver. Oracle is where the telecom warehouse lives, so
// this is the default driver for extraction scripts.
type OracleConnector struct {
	db *sql.DB
}

// NewOracleConnector creates a new Oracle connector. The DSN is built from
// host, port, service name and credentials unless given verbatim.
func NewOracleConnector(p Params) (*OracleConnector, error) {
	dsn := p.DSN
	if dsn == "" {
		dsn = go_ora.BuildUrl(p.Host, p.Port, p.Service, p.User, p.Pass, p.Options)
	}

	log := logging.New("connector:oracle")
	log.Debugf("Opening Oracle connection to service '%s'", p.Service)

	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping oracle database: %w", err)
	}

	// Extraction runs are sequential; a small pool is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	return &OracleConnector{db: db}, nil
}

// Query executes a statement against Oracle with context support.
func (o *OracleConnector) Query(ctx context.Context, statement string, limit int) (*frame.Frame, error) {
	rows, err := o.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return scanSQLRows(rows, limit)
}

// Close closes the database connection
func (o *OracleConnector) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

// scanSQLRows drains a database/sql row set into a frame, honoring limit.
func scanSQLRows(rows *sql.Rows, limit int) (*frame.Frame, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := frame.New(columns)
	for rows.Next() {
		if limit > 0 && result.NumRows() >= limit {
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i := range values {
			values[i] = bytesToString(values[i])
		}
		if err := result.AppendRow(values); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
