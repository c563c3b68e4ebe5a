package ingest

import (
	"context"

	"github.com/vvka-141/crmingest/internal/model"
	"github.com/vvka-141/crmingest/internal/store"
)

// dryTx answers reads from the real transaction and counts writes without
// performing them. Names "written" are remembered so later steps of the
// same dry run see them. With empty set the store has no tables yet and
// every client is new.
type dryTx struct {
	tx    store.Tx
	empty bool
	added map[string]bool
}

func newDryTx(tx store.Tx, empty bool) *dryTx {
	return &dryTx{tx: tx, empty: empty, added: make(map[string]bool)}
}

func (d *dryTx) ClientNames(ctx context.Context) ([]string, error) {
	var names []string
	if !d.empty {
		var err error
		if names, err = d.tx.ClientNames(ctx); err != nil {
			return nil, err
		}
	}
	known := toSet(names)
	for n := range d.added {
		if !known[n] {
			names = append(names, n)
		}
	}
	return names, nil
}

func (d *dryTx) UpsertClients(_ context.Context, clients []model.Client) (int, error) {
	for _, c := range clients {
		d.added[c.FullName] = true
	}
	return len(clients), nil
}

func (d *dryTx) EnsureClients(ctx context.Context, clients []model.Client) (int, error) {
	names, err := d.ClientNames(ctx)
	if err != nil {
		return 0, err
	}
	known := toSet(names)
	n := 0
	for _, c := range clients {
		if !known[c.FullName] {
			known[c.FullName] = true
			d.added[c.FullName] = true
			n++
		}
	}
	return n, nil
}

func (d *dryTx) ReplaceDuplicateClients(_ context.Context, dups []model.Client) (int, error) {
	return len(dups), nil
}

func (d *dryTx) UpsertEstimates(_ context.Context, estimates []model.Estimate) (int, error) {
	return len(estimates), nil
}

func (d *dryTx) UpsertInvoices(_ context.Context, invoices []model.Invoice) (int, error) {
	return len(invoices), nil
}

// RefreshJoinDates is not evaluated in a dry run.
func (d *dryTx) RefreshJoinDates(context.Context, []string) (int, error) { return 0, nil }

func (d *dryTx) RecordRun(context.Context, store.Run) error { return nil }

func (d *dryTx) Commit(ctx context.Context) error { return d.tx.Rollback(ctx) }

func (d *dryTx) Rollback(ctx context.Context) error { return d.tx.Rollback(ctx) }
