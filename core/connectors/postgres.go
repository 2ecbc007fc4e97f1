package connectors

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strata-analytics/strata/core/frame"
	"github.com/strata-analytics/strata/core/logging"
)

// PostgresConnector implements the Connector interface for PostgreSQL
// using pgx/v5.
type PostgresConnector struct {
	pool *pgxpool.Pool
}

// NewPostgresConnector creates a new PostgreSQL connector using pgx/v5.
func NewPostgresConnector(p Params) (*PostgresConnector, error) {
	dsn := p.DSN
	if dsn == "" {
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(p.User, p.Pass),
			Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
			Path:   "/" + p.Service,
		}
		q := u.Query()
		for key, value := range p.Options {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	log := logging.New("connector:postgres")
	log.Debugf("Opening PostgreSQL connection pool (pgx/v5)")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return &PostgresConnector{pool: pool}, nil
}

// Query executes a statement against PostgreSQL with context support.
func (p *PostgresConnector) Query(ctx context.Context, statement string, limit int) (*frame.Frame, error) {
	rows, err := p.pool.Query(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = string(fd.Name)
	}

	result := frame.New(columns)
	for rows.Next() {
		if limit > 0 && result.NumRows() >= limit {
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
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

// Close closes the connection pool
func (p *PostgresConnector) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
