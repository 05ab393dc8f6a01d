package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver runs parameterised Cypher. Each ExecuteQuery call is one
// transaction: it commits entirely or not at all.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	VerifyConnectivity(ctx context.Context) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
