package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"
)

// ErrUnavailable marks failures to reach the database, as opposed to query
// or constraint errors.
var ErrUnavailable = errors.New("graph database unavailable")

type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *zap.Logger
}

// NewNeo4jDriver only fails on a malformed URI or configuration. A server
// that cannot be reached yet is logged and the driver is returned anyway;
// queries report ErrUnavailable until it comes up.
func NewNeo4jDriver(ctx context.Context, uri, username, password, database string, log *zap.Logger, configurers ...func(*config.Config)) (*Neo4jDriver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), configurers...)
	if err != nil {
		return nil, err
	}

	d := &Neo4jDriver{Driver: driver, Database: database, log: log}
	if err := d.VerifyConnectivity(ctx); err != nil {
		log.Warn("neo4j not reachable, continuing degraded", zap.String("uri", uri), zap.Error(err))
		return d, nil
	}

	log.Info("connected to neo4j", zap.String("uri", uri), zap.String("database", database))
	return d, nil
}

// WithMaxRetryTime bounds how long a managed transaction keeps retrying
// transient and connectivity failures.
func WithMaxRetryTime(t time.Duration) func(*config.Config) {
	return func(c *config.Config) {
		c.MaxTransactionRetryTime = t
	}
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if err := d.Driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ExecuteQuery runs query in a managed write transaction. The driver retries
// transient failures (deadlocks, leader switches) before giving up.
func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (d *Neo4jDriver) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

func (d *Neo4jDriver) execute(ctx context.Context, query string, params map[string]interface{}, routing neo4j.ExecuteQueryConfigurationOption) (neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if d.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.Database))
	}

	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return neo4j.EagerResult{}, fmt.Errorf("%w: %v", ctxErr, err)
		}
		if isConnectivity(err) {
			return neo4j.EagerResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// isConnectivity also looks inside the error the driver returns once its
// retry budget is spent, which wraps every failed attempt.
func isConnectivity(err error) bool {
	if neo4j.IsConnectivityError(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var limit *neo4j.TransactionExecutionLimit
	if errors.As(err, &limit) {
		for _, e := range limit.Errors {
			if isConnectivity(e) {
				return true
			}
		}
	}
	return false
}

// BuildIndices creates the uniqueness constraints and lookup indexes the
// store relies on. Existing ones are left alone.
func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	for _, q := range SchemaQueries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return err
			}
			d.log.Warn("schema statement failed", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}

// IsConstraintViolation reports whether err came from a uniqueness
// constraint, e.g. a second persona with an existing name.
func IsConstraintViolation(err error) bool {
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		return nerr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed"
	}
	return false
}
