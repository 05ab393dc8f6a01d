package store

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MockDriver struct {
	QueryExecuted string
	QueryParams   map[string]interface{}
	Queries       []string
	MockResult    neo4j.EagerResult
	ResultQueue   []neo4j.EagerResult
	Err           error
	PingErr       error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.QueryExecuted = query
	m.QueryParams = params
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if len(m.ResultQueue) > 0 {
		res := m.ResultQueue[0]
		m.ResultQueue = m.ResultQueue[1:]
		return res, nil
	}
	return m.MockResult, nil
}

func (m *MockDriver) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return m.ExecuteQuery(ctx, query, params)
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.PingErr
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func record(keys []string, values ...interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func result(records ...*neo4j.Record) neo4j.EagerResult {
	return neo4j.EagerResult{Records: records}
}

var relationshipKeys = []string{"persona1_id", "persona1_name", "persona2_id", "persona2_name", "rel"}
