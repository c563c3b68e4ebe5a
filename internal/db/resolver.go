package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// DefaultDatabase is used when neither flags, environment nor crmingest.yaml name a database.
const DefaultDatabase = "crm"

// GranularConnFlags holds the libpq-style connection flags (-h, -p, -U, -d).
//
// There is no password flag. Use $PGPASSWORD, ~/.pgpass, or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no server-identifying flag was set.
// Database is excluded so -d can override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// CloudFlags selects token-based authentication from the command line.
// The Azure client secret is only read from AZURE_CLIENT_SECRET.
type CloudFlags struct {
	AWS            bool
	AWSRegion      string
	Azure          bool
	AzureTenantID  string
	AzureClientID  string
	GoogleInstance string
}

// EnvVars are the environment variables consulted during resolution.
type EnvVars struct {
	PGHOST                      string
	PGPORT                      string
	PGUSER                      string
	PGPASSWORD                  string
	PGDATABASE                  string
	PGSSLMODE                   string
	DATABASE_URL                string
	CRMINGEST_CONNECTION_STRING string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment snapshots the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                      os.Getenv("PGHOST"),
		PGPORT:                      os.Getenv("PGPORT"),
		PGUSER:                      os.Getenv("PGUSER"),
		PGPASSWORD:                  os.Getenv("PGPASSWORD"),
		PGDATABASE:                  os.Getenv("PGDATABASE"),
		PGSSLMODE:                   os.Getenv("PGSSLMODE"),
		DATABASE_URL:                os.Getenv("DATABASE_URL"),
		CRMINGEST_CONNECTION_STRING: os.Getenv("CRMINGEST_CONNECTION_STRING"),
		AWS_REGION:                  os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:             os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:             os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:         os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams builds the PostgreSQL connection for a run.
//
// Each parameter resolves as flag > environment > crmingest.yaml > default.
// A connection string (--connection, then CRMINGEST_CONNECTION_STRING, then
// DATABASE_URL) replaces the granular parameters, except that -d still
// overrides its database. Passing both --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	flags *GranularConnFlags,
	cloud *CloudFlags,
	env *EnvVars,
	project *config.ProjectConfig,
) (*crmingest.ConnectionConfig, error) {
	if flags == nil {
		flags = &GranularConnFlags{}
	}
	if cloud == nil {
		cloud = &CloudFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if project != nil {
		pc = project.Connection
	}

	if connStringFlag != "" && !flags.IsEmpty() {
		return nil, fmt.Errorf("cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
			"Choose one approach:\n"+
			"  1. Connection string: --connection \"postgresql://loader@localhost:5432/crm\"\n"+
			"  2. Granular flags: -h localhost -p 5432 -U loader -d crm\n"+
			"  3. Environment variables: export PGHOST=localhost PGUSER=loader PGDATABASE=crm: %w",
			crmingest.ErrInvalidConfig)
	}

	connStr := connStringFlag
	if connStr == "" && flags.IsEmpty() {
		connStr = firstNonEmpty(env.CRMINGEST_CONNECTION_STRING, env.DATABASE_URL)
	}

	var cfg *crmingest.ConnectionConfig
	var err error
	if connStr != "" {
		cfg, err = ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w", err)
		}
		if flags.Database != "" {
			cfg.Database = flags.Database
		}
		if cfg.Password == "" {
			cfg.Password = env.PGPASSWORD
		}
	} else {
		cfg, err = resolveGranular(flags, env, pc)
		if err != nil {
			return nil, err
		}
	}

	if err := applyAuth(cfg, cloud, env, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveGranular(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*crmingest.ConnectionConfig, error) {
	cfg := &crmingest.ConnectionConfig{
		Host:             firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost"),
		Username:         firstNonEmpty(flags.Username, env.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME")),
		Password:         env.PGPASSWORD,
		Database:         firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database, DefaultDatabase),
		SSLMode:          firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, "prefer"),
		AuthMethod:       crmingest.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, crmingest.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	for key, value := range map[string]string{
		"sslcert":     pc.SSLCert,
		"sslkey":      pc.SSLKey,
		"sslrootcert": pc.SSLRootCert,
	} {
		if value != "" {
			cfg.AdditionalParams[key] = value
		}
	}
	return cfg, nil
}

// applyAuth selects the authentication method. Explicit cloud flags win over
// auth_method in crmingest.yaml; Azure environment credentials imply Azure
// when nothing else was chosen.
func applyAuth(cfg *crmingest.ConnectionConfig, cloud *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method, err := crmingest.ParseAuthMethod(pc.AuthMethod)
	if err != nil {
		return fmt.Errorf("connection.auth_method: %w", err)
	}

	azureFromFlags := cloud.Azure || cloud.AzureTenantID != "" || cloud.AzureClientID != ""
	switch {
	case cloud.AWS:
		method = crmingest.AuthMethodAWSIAM
	case cloud.GoogleInstance != "":
		method = crmingest.AuthMethodGoogleIAM
	case azureFromFlags:
		method = crmingest.AuthMethodAzureEntraID
	case method == crmingest.AuthMethodStandard && (env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != ""):
		method = crmingest.AuthMethodAzureEntraID
	}
	cfg.AuthMethod = method

	switch method {
	case crmingest.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(cloud.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case crmingest.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(cloud.GoogleInstance, pc.GoogleInstance)
	case crmingest.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(cloud.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(cloud.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
