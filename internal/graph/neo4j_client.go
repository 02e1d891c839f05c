package graph

import (
	"context"

	"github.com/juju/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// NewNeo4jClient opens a Bolt driver and verifies the server is reachable.
func NewNeo4jClient(ctx context.Context, opts Options, logger *zap.Logger) (Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, errors.Annotate(err, "create neo4j driver")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Annotate(err, "verify graph connectivity")
	}
	logger.Info("graph connected", zap.String("uri", opts.URI), zap.String("database", opts.Database))

	return &neo4jClient{
		driver:   driver,
		database: opts.Database,
		logger:   logger,
	}, nil
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// ExecuteWrite runs cypher in a managed write transaction, which the driver
// retries on transient cluster errors.
func (c *neo4jClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return consumeResult(ctx, res)
	})
	if err != nil {
		c.logger.Debug("graph write failed", zap.Error(err))
		return Result{}, errors.Trace(err)
	}
	return out.(Result), nil
}

func (c *neo4jClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return consumeResult(ctx, res)
	})
	if err != nil {
		c.logger.Debug("graph read failed", zap.Error(err))
		return Result{}, errors.Trace(err)
	}
	return out.(Result), nil
}

func (c *neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func consumeResult(ctx context.Context, res neo4j.ResultWithContext) (Result, error) {
	var records []Record
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			record[key] = rec.Values[i]
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return Result{}, err
	}
	return Result{Records: records}, nil
}
