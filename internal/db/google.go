package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// GoogleCloudSQLConnector dials Cloud SQL with IAM database authentication.
//
// Close must be called after the pool returned by Connect is closed.
type GoogleCloudSQLConnector struct {
	config *crmingest.ConnectionConfig
	logger crmingest.Logger
	dialer *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector requires config.GoogleInstance ("project:region:instance") and a username.
func NewGoogleCloudSQLConnector(config *crmingest.ConnectionConfig, logger crmingest.Logger) (*GoogleCloudSQLConnector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", crmingest.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username (-U): %w", crmingest.ErrInvalidConfig)
	}
	return &GoogleCloudSQLConnector{config: config, logger: logger}, nil
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w: %w", crmingest.ErrConnectionFailed, err)
	}

	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.config.GoogleInstance, c.config.Username, c.config.Database, DefaultAppName)

	pool, err := openPool(ctx, dsn, c.config, c.logger, func(pc *pgxpool.Config) {
		pc.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, c.config.GoogleInstance)
		}
	})
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
