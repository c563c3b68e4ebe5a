package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/internal/db"
	"github.com/vvka-141/crmingest/internal/logging"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// connectionFlags holds the PostgreSQL connection flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	aws            bool
	awsRegion      string
	azure          bool
	azureTenantID  string
	azureClientID  string
	googleInstance string
}

func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.connection, "connection", "", "PostgreSQL connection string (env: CRMINGEST_CONNECTION_STRING, DATABASE_URL)")
	pf.StringVarP(&f.host, "host", "h", "", "Database server host (env: PGHOST)")
	pf.IntVarP(&f.port, "port", "p", 0, "Database server port (env: PGPORT)")
	pf.StringVarP(&f.username, "username", "U", "", "Database user (env: PGUSER)")
	pf.StringVarP(&f.database, "database", "d", "", "Database name (env: PGDATABASE, default: crm)")
	pf.StringVar(&f.sslMode, "sslmode", "", "SSL mode: disable, allow, prefer, require, verify-ca, verify-full (env: PGSSLMODE)")

	pf.BoolVar(&f.aws, "aws", false, "Authenticate with an AWS RDS IAM token")
	pf.StringVar(&f.awsRegion, "aws-region", "", "AWS region for RDS IAM tokens (env: AWS_REGION)")
	pf.BoolVar(&f.azure, "azure", false, "Authenticate with an Azure Entra ID token")
	pf.StringVar(&f.azureTenantID, "azure-tenant-id", "", "Azure tenant ID (env: AZURE_TENANT_ID)")
	pf.StringVar(&f.azureClientID, "azure-client-id", "", "Azure client ID (env: AZURE_CLIENT_ID)")
	pf.StringVar(&f.googleInstance, "google-instance", "", "Cloud SQL instance connection name project:region:instance (IAM auth)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
}

// resolveConnection turns flags, environment and crmingest.yaml into connection parameters.
func resolveConnection(f connectionFlags, project *config.ProjectConfig) (*crmingest.ConnectionConfig, error) {
	granular := &db.GranularConnFlags{
		Host:     f.host,
		Port:     f.port,
		Username: f.username,
		Database: f.database,
		SSLMode:  f.sslMode,
	}
	cloud := &db.CloudFlags{
		AWS:            f.aws,
		AWSRegion:      f.awsRegion,
		Azure:          f.azure,
		AzureTenantID:  f.azureTenantID,
		AzureClientID:  f.azureClientID,
		GoogleInstance: f.googleInstance,
	}
	cfg, err := db.ResolveConnectionParams(f.connection, granular, cloud, db.LoadFromEnvironment(), project)
	if err != nil {
		return nil, err
	}
	if cfg.AppName == "" {
		cfg.AppName = "crmingest"
	}
	return cfg, nil
}

// logConnectionVerbose prints the resolved connection, without the password.
func logConnectionVerbose(w io.Writer, cfg *crmingest.ConnectionConfig) {
	fmt.Fprintf(w, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(w, "  Host: %s\n", cfg.Host)
	fmt.Fprintf(w, "  Port: %d\n", cfg.Port)
	fmt.Fprintf(w, "  User: %s\n", cfg.Username)
	fmt.Fprintf(w, "  Database: %s\n", cfg.Database)
	fmt.Fprintf(w, "  SSL Mode: %s\n", cfg.SSLMode)
	for _, key := range []string{"sslcert", "sslkey", "sslrootcert"} {
		if v := cfg.AdditionalParams[key]; v != "" {
			fmt.Fprintf(w, "  %s: %s\n", key, v)
		}
	}
	fmt.Fprintf(w, "  Auth Method: %s\n", cfg.AuthMethod)
}

// checkConnection connects with the settings of a crmingest.yaml draft and pings the server.
// Flags are ignored: the wizard is editing the file, not the command line.
func checkConnection(ctx context.Context, project *config.ProjectConfig) error {
	cfg, err := resolveConnection(connectionFlags{}, project)
	if err != nil {
		return err
	}
	connector, err := db.NewConnector(cfg, logging.NewNullLogger())
	if err != nil {
		return err
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w: %w", db.Describe(cfg), crmingest.ErrConnectionFailed, err)
	}
	return nil
}
