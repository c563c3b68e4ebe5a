package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Loader writes one entity of a prepared plan inside a transaction.
type Loader interface {
	Entity() crmingest.Entity
	Load(ctx context.Context, tx store.Tx, p *Plan) (StepResult, error)
}

// StepResult counts what one loader wrote.
type StepResult struct {
	Entity crmingest.Entity `json:"entity"`

	// Rows is the number of entity rows inserted or updated.
	Rows int `json:"rows"`

	Duplicates   int `json:"duplicates,omitempty"`
	Orphans      int `json:"orphans,omitempty"`
	ClientsAdded int `json:"clients_added,omitempty"`
	Placeholders int `json:"placeholders,omitempty"`
	JoinDates    int `json:"join_dates_updated,omitempty"`
	Dropped      int `json:"dropped,omitempty"`

	Committed bool          `json:"committed"`
	Duration  time.Duration `json:"duration_ns"`
}

// ClientLoader overwrites the clients referenced by the month's estimates
// with their export rows and sets their duplicate-name rows aside.
type ClientLoader struct {
	log crmingest.Logger
}

func NewClientLoader(log crmingest.Logger) *ClientLoader { return &ClientLoader{log: log} }

func (l *ClientLoader) Entity() crmingest.Entity { return crmingest.EntityClients }

func (l *ClientLoader) Load(ctx context.Context, tx store.Tx, p *Plan) (StepResult, error) {
	res := StepResult{Entity: crmingest.EntityClients, Dropped: p.Dropped[crmingest.EntityClients]}

	existing, err := tx.ClientNames(ctx)
	if err != nil {
		return res, err
	}
	known := toSet(existing)

	names, numbers := referencedNames(p.Estimates, estimateKey)
	selected := make([]model.Client, 0, len(names))
	inMonth := make(map[string]bool, len(names))
	for _, name := range names {
		if c, ok := p.Export[name]; ok {
			selected = append(selected, c)
			inMonth[name] = true
			continue
		}
		if !known[name] {
			res.Orphans++
			l.log.Warn("orphan client %q: not in clients export or database (estimates %s)",
				name, strings.Join(numbers[name], ", "))
		}
	}
	warnCaseMismatch(l.log, inMonth, existing)

	if res.Rows, err = tx.UpsertClients(ctx, selected); err != nil {
		return res, fmt.Errorf("upsert clients: %w", err)
	}

	var dups []model.Client
	for _, d := range p.Duplicates {
		if inMonth[d.FullName] {
			dups = append(dups, d)
		}
	}
	if len(dups) > 0 {
		if res.Duplicates, err = tx.ReplaceDuplicateClients(ctx, dups); err != nil {
			return res, fmt.Errorf("store duplicate clients: %w", err)
		}
	}

	l.log.Info("clients: %d written, %d duplicate-name rows set aside, %d orphan names", res.Rows, res.Duplicates, res.Orphans)
	return res, nil
}

// EstimateLoader upserts the month's estimates and refreshes join dates.
type EstimateLoader struct {
	log crmingest.Logger
}

func NewEstimateLoader(log crmingest.Logger) *EstimateLoader { return &EstimateLoader{log: log} }

func (l *EstimateLoader) Entity() crmingest.Entity { return crmingest.EntityEstimates }

func (l *EstimateLoader) Load(ctx context.Context, tx store.Tx, p *Plan) (StepResult, error) {
	res := StepResult{Entity: crmingest.EntityEstimates, Dropped: p.Dropped[crmingest.EntityEstimates]}
	names, _ := referencedNames(p.Estimates, estimateKey)

	var err error
	if res.ClientsAdded, res.Placeholders, err = ensureClients(ctx, tx, p, names, l.log); err != nil {
		return res, err
	}
	if res.Rows, err = tx.UpsertEstimates(ctx, p.Estimates); err != nil {
		return res, fmt.Errorf("upsert estimates: %w", err)
	}
	if res.JoinDates, err = tx.RefreshJoinDates(ctx, names); err != nil {
		return res, fmt.Errorf("refresh join dates: %w", err)
	}

	l.log.Info("estimates: %d written, %d join dates moved earlier", res.Rows, res.JoinDates)
	return res, nil
}

// InvoiceLoader upserts the month's invoices.
type InvoiceLoader struct {
	log crmingest.Logger
}

func NewInvoiceLoader(log crmingest.Logger) *InvoiceLoader { return &InvoiceLoader{log: log} }

func (l *InvoiceLoader) Entity() crmingest.Entity { return crmingest.EntityInvoices }

func (l *InvoiceLoader) Load(ctx context.Context, tx store.Tx, p *Plan) (StepResult, error) {
	res := StepResult{Entity: crmingest.EntityInvoices, Dropped: p.Dropped[crmingest.EntityInvoices]}
	names, _ := referencedNames(p.Invoices, invoiceKey)

	var err error
	if res.ClientsAdded, res.Placeholders, err = ensureClients(ctx, tx, p, names, l.log); err != nil {
		return res, err
	}
	if res.Rows, err = tx.UpsertInvoices(ctx, p.Invoices); err != nil {
		return res, fmt.Errorf("upsert invoices: %w", err)
	}

	l.log.Info("invoices: %d written", res.Rows)
	return res, nil
}

// ensureClients inserts every name in names that clients does not hold yet:
// the export row when there is one, a placeholder otherwise.
// Returns how many rows of each kind were inserted.
func ensureClients(ctx context.Context, tx store.Tx, p *Plan, names []string, log crmingest.Logger) (fromExport, placeholders int, err error) {
	existing, err := tx.ClientNames(ctx)
	if err != nil {
		return 0, 0, err
	}
	known := toSet(existing)

	var exported, synthesized []model.Client
	missing := make(map[string]bool)
	for _, name := range names {
		if known[name] {
			continue
		}
		missing[name] = true
		if c, ok := p.Export[name]; ok {
			exported = append(exported, c)
		} else {
			log.Warn("client %q not found, creating placeholder", name)
			synthesized = append(synthesized, model.Placeholder(name, p.Ingested))
		}
	}
	warnCaseMismatch(log, missing, existing)

	if len(exported) > 0 {
		if fromExport, err = tx.EnsureClients(ctx, exported); err != nil {
			return 0, 0, fmt.Errorf("insert referenced clients: %w", err)
		}
	}
	if len(synthesized) > 0 {
		if placeholders, err = tx.EnsureClients(ctx, synthesized); err != nil {
			return fromExport, 0, fmt.Errorf("insert placeholder clients: %w", err)
		}
	}
	return fromExport, placeholders, nil
}

// warnCaseMismatch reports names that match an existing client only when case is ignored.
// Such names are kept as distinct clients.
func warnCaseMismatch(log crmingest.Logger, names map[string]bool, existing []string) {
	if len(names) == 0 {
		return
	}
	exact := toSet(existing)
	folded := make(map[string]string, len(existing))
	for _, e := range existing {
		folded[strings.ToLower(e)] = e
	}
	for name := range names {
		if exact[name] {
			continue
		}
		if other, ok := folded[strings.ToLower(name)]; ok && other != name {
			log.Warn("client %q differs from existing client %q only by case; not merged", name, other)
		}
	}
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
