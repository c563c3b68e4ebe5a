// Package export writes the mailing lists and data-quality reports derived
// from the clients table as CSV files under <base>/data/clients.
//
// Mailing lists (customers, leads, all_clients, multiple_emails) are sorted
// by full_name and keep only the first client for each email address.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/internal/table"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Report names, also the file names without the .csv extension.
const (
	Customers           = "customers"
	Leads               = "leads"
	AllClients          = "all_clients"
	ClientsWithoutEmail = "clients_without_email"
	EmailIssues         = "email_issues"
	MultipleEmails      = "multiple_emails"
	ClientsPerMonth     = "clients_per_month"
)

// report selects and renders one export from the clients table.
type report struct {
	name    string
	keep    func(store.ClientActivity) bool
	columns []string
	dedupe  bool
}

var mailingColumns = []string{model.ColFullName, model.ColEmailAddress}

var allColumns = []string{
	model.ColFullName, model.ColEmailAddress, model.ColPhoneMobile, model.ColPhoneOther,
	model.ColAddress, model.ColAddress2, model.ColCity, model.ColStateProvince,
	model.ColZipPostalCode, model.ColPrivateNotes, model.ColJoistClientID,
	"join_date", "source", model.ColIngestedDate,
}

var reports = []report{
	{Customers, func(c store.ClientActivity) bool {
		return c.Invoices > 0 && ValidEmail(c.EmailAddress)
	}, mailingColumns, true},
	{Leads, func(c store.ClientActivity) bool {
		return c.Estimates > 0 && c.Invoices == 0 && ValidEmail(c.EmailAddress)
	}, mailingColumns, true},
	{AllClients, func(c store.ClientActivity) bool {
		return ValidEmail(c.EmailAddress)
	}, mailingColumns, true},
	{ClientsWithoutEmail, func(c store.ClientActivity) bool {
		return c.EmailAddress == ""
	}, allColumns, false},
	{EmailIssues, func(c store.ClientActivity) bool {
		return EmailIssue(c.EmailAddress)
	}, allColumns, false},
	{MultipleEmails, func(c store.ClientActivity) bool {
		return MultipleAddresses(c.EmailAddress)
	}, allColumns, true},
}

// Names returns every export name in the order they are written.
func Names() []string {
	names := make([]string, 0, len(reports)+1)
	for _, r := range reports {
		names = append(names, r.name)
	}
	return append(names, ClientsPerMonth)
}

// Dir returns the directory exports are written to.
func Dir(baseDir string) string {
	return filepath.Join(baseDir, "data", "clients")
}

// Result describes one written export.
type Result struct {
	Name string
	Path string
	Rows int
}

// Exporter renders exports from a store.
type Exporter struct {
	store  store.Store
	dir    string
	logger crmingest.Logger
}

// New returns an Exporter writing into dir.
func New(st store.Store, dir string, logger crmingest.Logger) *Exporter {
	if st == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Exporter{store: st, dir: dir, logger: logger}
}

// Run writes the selected exports, or all of them when only is empty.
// Unknown names fail before anything is written.
func (x *Exporter) Run(ctx context.Context, only []string) ([]Result, error) {
	selected, err := selection(only)
	if err != nil {
		return nil, err
	}

	clients, err := x.store.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clients: %w", err)
	}
	sort.SliceStable(clients, func(i, j int) bool { return clients[i].FullName < clients[j].FullName })
	x.logger.Verbose("exporting from %d clients (%s backend)", len(clients), x.store.Backend())

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var results []Result
	for _, r := range reports {
		if !selected[r.name] {
			continue
		}
		res, err := x.write(r.name, r.render(clients))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	if selected[ClientsPerMonth] {
		res, err := x.write(ClientsPerMonth, perMonth(clients))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func selection(only []string) (map[string]bool, error) {
	known := make(map[string]bool)
	for _, n := range Names() {
		known[n] = true
	}
	if len(only) == 0 {
		return known, nil
	}
	selected := make(map[string]bool, len(only))
	for _, n := range only {
		n = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(n)), ".csv")
		if !known[n] {
			return nil, fmt.Errorf("unknown export %q (expected one of %s): %w",
				n, strings.Join(Names(), ", "), crmingest.ErrInvalidConfig)
		}
		selected[n] = true
	}
	return selected, nil
}

// write replaces <dir>/<name>.csv through a temporary file in the same directory.
func (x *Exporter) write(name string, t *table.Table) (Result, error) {
	path := filepath.Join(x.dir, name+".csv")
	tmp, err := os.CreateTemp(x.dir, "."+name+"-*.csv")
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := table.Write(tmp, t, ','); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}

	x.logger.Info("saved %d rows to %s", t.Len(), path)
	return Result{Name: name, Path: path, Rows: t.Len()}, nil
}

// render filters clients, ordered by full_name, into a table.
func (r report) render(clients []store.ClientActivity) *table.Table {
	t := table.New(r.columns...)
	seen := make(map[string]bool)
	for _, c := range clients {
		if !r.keep(c) {
			continue
		}
		if r.dedupe {
			if seen[c.EmailAddress] {
				continue
			}
			seen[c.EmailAddress] = true
		}
		row := cells(c.Client)
		out := make([]string, len(r.columns))
		for i, col := range r.columns {
			out[i] = row[col]
		}
		t.Append(0, out...)
	}
	return t
}

func cells(c model.Client) map[string]string {
	joist := ""
	if c.JoistClientID != nil {
		joist = strconv.FormatInt(*c.JoistClientID, 10)
	}
	return map[string]string{
		model.ColFullName:      c.FullName,
		model.ColEmailAddress:  c.EmailAddress,
		model.ColPhoneMobile:   c.PhoneMobile,
		model.ColPhoneOther:    c.PhoneOther,
		model.ColAddress:       c.Address,
		model.ColAddress2:      c.Address2,
		model.ColCity:          c.City,
		model.ColStateProvince: c.StateProvince,
		model.ColZipPostalCode: c.ZipPostalCode,
		model.ColPrivateNotes:  c.PrivateNotes,
		model.ColJoistClientID: joist,
		"join_date":            c.JoinDate.String(),
		"source":               c.Source,
		model.ColIngestedDate:  c.IngestedDate.String(),
	}
}

// perMonth counts clients by the YYYY-MM of their join date.
func perMonth(clients []store.ClientActivity) *table.Table {
	counts := make(map[string]int)
	for _, c := range clients {
		if !c.JoinDate.Valid {
			continue
		}
		counts[c.JoinDate.Time.Format("2006-01")]++
	}
	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	t := table.New("month", "clients_joined")
	for _, m := range months {
		t.Append(0, m, strconv.Itoa(counts[m]))
	}
	return t
}
