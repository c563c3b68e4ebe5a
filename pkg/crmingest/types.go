package crmingest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entity identifies one of the three CRM tables loaded by an ingest run.
type Entity int

const (
	EntityClients Entity = iota
	EntityEstimates
	EntityInvoices
)

// LoadOrder is the fixed foreign-key order in which entities are written.
// Estimates and invoices reference clients by full name, so clients always come first.
var LoadOrder = []Entity{EntityClients, EntityEstimates, EntityInvoices}

// String returns the entity name as used on the command line and in log file names.
func (e Entity) String() string {
	switch e {
	case EntityClients:
		return "clients"
	case EntityEstimates:
		return "estimates"
	case EntityInvoices:
		return "invoices"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Table returns the database table holding rows of this entity.
func (e Entity) Table() string {
	return e.String()
}

// IsValid returns true if the Entity is a defined value.
func (e Entity) IsValid() bool {
	return e >= EntityClients && e <= EntityInvoices
}

// ParseEntity converts a case-insensitive name ("clients", "estimates", "invoices") to an Entity.
func ParseEntity(s string) (Entity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clients", "client":
		return EntityClients, nil
	case "estimates", "estimate":
		return EntityEstimates, nil
	case "invoices", "invoice":
		return EntityInvoices, nil
	}
	return 0, fmt.Errorf("unknown entity %q (expected clients, estimates or invoices): %w", s, ErrInvalidConfig)
}

// MarshalText renders the entity name, so JSON manifests carry "clients" rather than 0.
func (e Entity) MarshalText() ([]byte, error) {
	if !e.IsValid() {
		return nil, fmt.Errorf("entity %d: %w", int(e), ErrInvalidConfig)
	}
	return []byte(e.String()), nil
}

func (e *Entity) UnmarshalText(b []byte) error {
	v, err := ParseEntity(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// OrderedSubset returns the requested entities in load order, without duplicates.
// An empty selection means every entity.
func OrderedSubset(selected []Entity) []Entity {
	if len(selected) == 0 {
		return append([]Entity(nil), LoadOrder...)
	}
	want := make(map[Entity]bool, len(selected))
	for _, e := range selected {
		want[e] = true
	}
	var out []Entity
	for _, e := range LoadOrder {
		if want[e] {
			out = append(out, e)
		}
	}
	return out
}

// Backend names the storage engine an ingest run writes to.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// ParseBackend validates a backend name. Empty input selects PostgreSQL.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pg":
		return BackendPostgres, nil
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedBackend)
}

// RunConfig contains all parameters needed for one monthly ingest run.
type RunConfig struct {
	// BaseDir is the root of the data directory convention (data/clients, data/estimates, data/invoices).
	BaseDir string

	// Year and Month select the monthly estimates and invoices files.
	Year  int
	Month int

	// IngestionDate is stamped on every written row.
	IngestionDate time.Time

	// Entities restricts the run to a subset of steps. Empty means all.
	Entities []Entity

	// DryRun reads and validates everything but writes nothing.
	DryRun bool

	// Atomic runs all steps in a single transaction.
	Atomic bool

	// LogDir receives per-entity log files and run manifests.
	LogDir string

	// Timeout is the global timeout for the entire run
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.BaseDir == "" {
		errs = append(errs, fmt.Errorf("BaseDir is required: %w", ErrInvalidConfig))
	}
	if c.Year < 1900 || c.Year > 9999 {
		errs = append(errs, fmt.Errorf("year %d out of range: %w", c.Year, ErrInvalidConfig))
	}
	if c.Month < 1 || c.Month > 12 {
		errs = append(errs, fmt.Errorf("month %d out of range 1..12: %w", c.Month, ErrInvalidConfig))
	}
	if c.IngestionDate.IsZero() {
		errs = append(errs, fmt.Errorf("IngestionDate is required: %w", ErrInvalidConfig))
	}
	for _, e := range c.Entities {
		if !e.IsValid() {
			errs = append(errs, fmt.Errorf("entity %v: %w", e, ErrInvalidConfig))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWSRegion is used to sign RDS IAM tokens (AuthMethodAWSIAM).
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name "project:region:instance" (AuthMethodGoogleIAM).
	GoogleInstance string

	// Azure Entra ID parameters (AuthMethodAzureEntraID).
	// If all three are provided, Service Principal authentication is used.
	// Otherwise DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod converts a config-file spelling ("standard", "aws", "google", "azure") to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "awsiam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	}
	return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
}
