package ingest

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/internal/table"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Plan is the in-memory result of the Prepare phase.
type Plan struct {
	Config   crmingest.RunConfig
	Steps    []crmingest.Entity
	Ingested model.Date

	// Files holds every export that was read, by entity.
	Files map[crmingest.Entity]*source.File

	// Export is the de-duplicated clients export keyed by full_name.
	// Nil when the export was not read.
	Export     map[string]model.Client
	Duplicates []model.Client

	Estimates []model.Estimate
	Invoices  []model.Invoice

	// Dropped counts rows discarded for an empty name or document number.
	Dropped map[crmingest.Entity]int
}

// HasStep reports whether e is part of the run.
func (p *Plan) HasStep(e crmingest.Entity) bool {
	return slices.Contains(p.Steps, e)
}

// Prepare reads everything the selected steps need. It never touches the store.
//
// The estimates export is read when the clients or estimates step runs,
// since clients are restricted to names the month's estimates reference.
// The clients export is required by the clients step and optional otherwise.
// Errors from all files are joined so the operator sees every problem at once.
func (s *Service) Prepare(cfg crmingest.RunConfig) (*Plan, error) {
	p := &Plan{
		Config:   cfg,
		Steps:    crmingest.OrderedSubset(cfg.Entities),
		Ingested: model.DateOf(cfg.IngestionDate),
		Files:    make(map[crmingest.Entity]*source.File),
		Dropped:  make(map[crmingest.Entity]int),
	}

	var errs []error

	if t, err := s.readEntity(p, crmingest.EntityClients); err != nil {
		if p.HasStep(crmingest.EntityClients) || !errors.Is(err, crmingest.ErrSourceNotFound) {
			errs = append(errs, err)
		} else {
			s.logFor(crmingest.EntityClients).Warn("%v; referenced clients will be created as placeholders", err)
		}
	} else if err := p.addClients(t, s.logFor(crmingest.EntityClients)); err != nil {
		errs = append(errs, err)
	}

	if p.HasStep(crmingest.EntityClients) || p.HasStep(crmingest.EntityEstimates) {
		if t, err := s.readEntity(p, crmingest.EntityEstimates); err != nil {
			errs = append(errs, err)
		} else if err := p.addEstimates(t, s.logFor(crmingest.EntityEstimates)); err != nil {
			errs = append(errs, err)
		}
	}

	if p.HasStep(crmingest.EntityInvoices) {
		if t, err := s.readEntity(p, crmingest.EntityInvoices); err != nil {
			errs = append(errs, err)
		} else if err := p.addInvoices(t, s.logFor(crmingest.EntityInvoices)); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// readEntity reads one export, maps its headers, adds missing columns and cleans it.
func (s *Service) readEntity(p *Plan, e crmingest.Entity) (*table.Table, error) {
	log := s.logFor(e)
	f, err := s.layout.Read(e, p.Config.Year, p.Config.Month)
	if err != nil {
		return nil, err
	}
	p.Files[e] = f
	log.Verbose("read %s: %d rows, sha256 %s", f.Path, f.Table.Len(), f.Checksum)

	t := f.Table
	t.Rename(model.Mapping(e, s.aliases[e]))
	for _, col := range t.EnsureColumns(model.Required(e)...) {
		log.Warn("%s: column %q missing, loading it as empty", f.Path, col)
	}
	if err := s.cleaner.Columns(t, model.CleanedColumns(e)...); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	log.Verbose("%s columns: %s", f.Path, strings.Join(t.Header(), ", "))
	return t, nil
}

func (p *Plan) addClients(t *table.Table, log crmingest.Logger) error {
	path := p.Files[crmingest.EntityClients].Path
	clients, err := model.ParseClients(t, p.Ingested)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	clients = slices.DeleteFunc(clients, func(c model.Client) bool {
		if c.FullName == "" {
			log.Warn("%s:%d: empty client name, row dropped", path, c.Line)
			p.Dropped[crmingest.EntityClients]++
			return true
		}
		return false
	})

	kept, dups := model.DedupeClients(clients)
	p.Export = make(map[string]model.Client, len(kept))
	for _, c := range kept {
		p.Export[c.FullName] = c
	}
	p.Duplicates = dups
	if len(dups) > 0 {
		log.Info("%s: %d duplicate-name rows set aside", path, len(dups))
	}
	return nil
}

func (p *Plan) addEstimates(t *table.Table, log crmingest.Logger) error {
	path := p.Files[crmingest.EntityEstimates].Path
	estimates, err := model.ParseEstimates(t, p.Ingested)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.Estimates = slices.DeleteFunc(estimates, func(e model.Estimate) bool {
		return p.drop(crmingest.EntityEstimates, log, path, e.Line, e.Number, e.FullName)
	})
	return nil
}

func (p *Plan) addInvoices(t *table.Table, log crmingest.Logger) error {
	path := p.Files[crmingest.EntityInvoices].Path
	invoices, err := model.ParseInvoices(t, p.Ingested)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.Invoices = slices.DeleteFunc(invoices, func(i model.Invoice) bool {
		return p.drop(crmingest.EntityInvoices, log, path, i.Line, i.Number, i.FullName)
	})
	return nil
}

func (p *Plan) drop(e crmingest.Entity, log crmingest.Logger, path string, line int, number, name string) bool {
	switch {
	case number == "":
		log.Warn("%s:%d: empty document number, row dropped", path, line)
	case name == "":
		log.Warn("%s:%d: %s has no client name, row dropped", path, line, number)
	default:
		return false
	}
	p.Dropped[e]++
	return true
}

// referencedNames returns the distinct client names of docs in first-seen
// order, with the document numbers referencing each name.
func referencedNames[D any](docs []D, key func(D) (name, number string)) ([]string, map[string][]string) {
	var names []string
	numbers := make(map[string][]string)
	for _, d := range docs {
		name, number := key(d)
		if _, seen := numbers[name]; !seen {
			names = append(names, name)
		}
		numbers[name] = append(numbers[name], number)
	}
	return names, numbers
}

func estimateKey(e model.Estimate) (string, string) { return e.FullName, e.Number }
func invoiceKey(i model.Invoice) (string, string)   { return i.FullName, i.Number }
