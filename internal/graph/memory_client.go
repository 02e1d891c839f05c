package graph

import (
	"context"
	"sync"
)

// QueryHandler answers a statement executed against a MemoryClient.
type QueryHandler func(cypher string, params map[string]any) (Result, error)

// MemoryClient is an in-memory Client for repository tests. It records every
// statement and answers from queued results, or from a handler when one is set.
type MemoryClient struct {
	mu           sync.Mutex
	calls        []ExecutedQuery
	queued       []Result
	handler      QueryHandler
	err          error
	connectivity error
}

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Write  bool
	Query  string
	Params map[string]any
}

// NewMemoryClient instantiates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError configures the client to return err for subsequent calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// WithHandler routes statements that find no queued result to h.
func (m *MemoryClient) WithHandler(h QueryHandler) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
	return m
}

// Push queues a result for the next read or write.
func (m *MemoryClient) Push(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(true, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(false, cypher, params)
}

func (m *MemoryClient) execute(write bool, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	m.calls = append(m.calls, ExecutedQuery{Write: write, Query: cypher, Params: cloneMap(params)})

	if len(m.queued) > 0 {
		res := m.queued[0]
		m.queued = m.queued[1:]
		return res, nil
	}
	if m.handler != nil {
		return m.handler(cypher, params)
	}
	return Result{}, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Calls returns a snapshot of executed statements in order.
func (m *MemoryClient) Calls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.calls...)
}

// WriteCalls returns a snapshot of executed write statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	return m.filter(true)
}

// ReadCalls returns a snapshot of executed read statements.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	return m.filter(false)
}

func (m *MemoryClient) filter(write bool) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, c := range m.calls {
		if c.Write == write {
			out = append(out, c)
		}
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
