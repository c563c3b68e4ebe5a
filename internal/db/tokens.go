package db

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/crmingest/internal/retry"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// TokenProvider acquires short-lived tokens used as the PostgreSQL password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It must not contain secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning triggers a warning when a fresh token is about to expire.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector authenticates with a token from a TokenProvider (AWS IAM, Azure Entra ID).
type TokenBasedConnector struct {
	config   *crmingest.ConnectionConfig
	provider TokenProvider
	executor *retry.Executor
	logger   crmingest.Logger
}

func NewTokenBasedConnector(config *crmingest.ConnectionConfig, provider TokenProvider, logger crmingest.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:   config,
		provider: provider,
		executor: retry.NewDefaultExecutor().WithOnRetry(logRetry(logger, "connect")),
		logger:   logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.provider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire token from %s: %w: %w", c.provider, crmingest.ErrConnectionFailed, err)
		}
		if left := time.Until(expiresOn); left < tokenExpiryWarning {
			c.logger.Warn("%s token expires in %v", c.provider, left.Round(time.Second))
		}
		c.logger.Verbose("authenticating to %s with %s", Describe(c.config), c.provider)

		withToken := *c.config
		withToken.Password = token
		pool, err = openPool(ctx, BuildConnectionString(&withToken), c.config, c.logger, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// AWSIAMTokenProvider signs RDS IAM tokens with the default AWS credential chain.
type AWSIAMTokenProvider struct {
	endpoint string
	region   string
	username string
}

// rdsTokenLifetime is fixed by RDS.
const rdsTokenLifetime = 15 * time.Minute

// NewAWSIAMTokenProvider expects endpoint as host:port.
func NewAWSIAMTokenProvider(endpoint, region, username string) (*AWSIAMTokenProvider, error) {
	switch {
	case endpoint == "" || endpoint[0] == ':':
		return nil, fmt.Errorf("AWS IAM auth requires a host: %w", crmingest.ErrInvalidConfig)
	case region == "":
		return nil, fmt.Errorf("AWS IAM auth requires a region (--aws-region, $AWS_REGION or connection.aws_region): %w", crmingest.ErrInvalidConfig)
	case username == "":
		return nil, fmt.Errorf("AWS IAM auth requires a database username: %w", crmingest.ErrInvalidConfig)
	}
	return &AWSIAMTokenProvider{endpoint: endpoint, region: region, username: username}, nil
}

func (p *AWSIAMTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.region))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, cfg.Credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	return token, time.Now().Add(rdsTokenLifetime), nil
}

func (p *AWSIAMTokenProvider) String() string {
	return fmt.Sprintf("AWSIAM(endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// AzureTokenProvider wraps an azcore.TokenCredential scoped to Azure Database for PostgreSQL.
type AzureTokenProvider struct {
	credential azcore.TokenCredential
	desc       string
}

// NewAzureTokenProvider uses a service principal when tenant, client and secret
// are all set, and the DefaultAzureCredential chain otherwise.
func NewAzureTokenProvider(tenantID, clientID, clientSecret string) (*AzureTokenProvider, error) {
	if tenantID != "" && clientID != "" && clientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure service principal credential: %w", err)
		}
		return &AzureTokenProvider{
			credential: cred,
			desc:       fmt.Sprintf("AzureServicePrincipal(tenant=%s, client=%s)", tenantID, clientID),
		}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}
	return &AzureTokenProvider{credential: cred, desc: "AzureDefaultCredential"}, nil
}

func (p *AzureTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzurePostgreSQLScope},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return token.Token, token.ExpiresOn, nil
}

func (p *AzureTokenProvider) String() string {
	return p.desc
}
