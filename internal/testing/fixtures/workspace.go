// Package fixtures builds CRM data directories for tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/crmingest/internal/source"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Headers of the three exports, as the CRM writes them.
const (
	ClientsHeader = "Name,Email Address,Phone (mobile),Phone (other),Address,Address 2,City," +
		"State / Province,Zip / Postal Code,Private Notes,**(Do not change this) Joist Client ID"
	EstimatesHeader = "Estimate #,Client Name,Subtotal,Tax,Total,Date Issued,Date Created"
	InvoicesHeader  = "Invoice #\tClient Name\tSubtotal\tTax\tTotal\tDate Issued\tDate Created\tPayment Received Less Refunds"
)

// WorkspaceBuilder accumulates export files under the data directory convention.
//
//	fs := fixtures.NewWorkspaceBuilder(2025).
//	    Client("Ann Lee", "ann@example.com", 101).
//	    Estimate(7, "E-1", "Ann Lee", "108.00", "2025-07-01").
//	    Invoice(7, "I-1", "Ann Lee", "108.00", "2025-07-15").
//	    Build("/crm")
type WorkspaceBuilder struct {
	year      int
	clients   []string
	estimates map[int][]string
	invoices  map[int][]string
	raw       map[string]string
}

func NewWorkspaceBuilder(year int) *WorkspaceBuilder {
	return &WorkspaceBuilder{
		year:      year,
		estimates: make(map[int][]string),
		invoices:  make(map[int][]string),
		raw:       make(map[string]string),
	}
}

// Client adds a row to Clients.csv. A zero joistID leaves the column empty.
func (b *WorkspaceBuilder) Client(name, email string, joistID int64) *WorkspaceBuilder {
	id := ""
	if joistID != 0 {
		id = fmt.Sprint(joistID)
	}
	b.clients = append(b.clients, fmt.Sprintf("%s,%s,,,,,,,,,%s", name, email, id))
	return b
}

// Estimate adds a row to the month's estimates export. Issued and created share one date.
func (b *WorkspaceBuilder) Estimate(month int, number, client, total, date string) *WorkspaceBuilder {
	b.estimates[month] = append(b.estimates[month],
		fmt.Sprintf("%s,%s,%s,0,%s,%s,%s", number, client, total, total, date, date))
	return b
}

// Invoice adds a fully paid row to the month's invoices export.
func (b *WorkspaceBuilder) Invoice(month int, number, client, total, date string) *WorkspaceBuilder {
	b.invoices[month] = append(b.invoices[month],
		strings.Join([]string{number, client, total, "0", total, date, date, total}, "\t"))
	return b
}

// File adds arbitrary content at a path relative to the base directory.
func (b *WorkspaceBuilder) File(rel, content string) *WorkspaceBuilder {
	b.raw[filepath.FromSlash(rel)] = content
	return b
}

// Files returns every file keyed by path relative to the base directory.
// An entity without rows gets no file at all.
func (b *WorkspaceBuilder) Files() map[string]string {
	l := source.Layout{}
	out := make(map[string]string)

	if len(b.clients) > 0 {
		p := filepath.Join(l.Dir(crmingest.EntityClients, b.year), crmingest.ClientsFileName)
		out[p] = csv(ClientsHeader, b.clients)
	}
	for month, rows := range b.estimates {
		p := filepath.Join(l.Dir(crmingest.EntityEstimates, b.year), fmt.Sprintf("%d-%d.csv", b.year, month))
		out[p] = csv(EstimatesHeader, rows)
	}
	for month, rows := range b.invoices {
		p := filepath.Join(l.Dir(crmingest.EntityInvoices, b.year), fmt.Sprintf("%d-%d.csv", b.year, month))
		out[p] = csv(InvoicesHeader, rows)
	}
	for p, content := range b.raw {
		out[p] = content
	}
	return out
}

// Build returns an in-memory filesystem with the files under baseDir.
func (b *WorkspaceBuilder) Build(baseDir string) *source.MemoryFileSystem {
	fs := source.NewMemoryFileSystem()
	for rel, content := range b.Files() {
		fs.AddFile(filepath.Join(baseDir, rel), content)
	}
	return fs
}

// WriteTo writes the files under dir on disk.
func (b *WorkspaceBuilder) WriteTo(dir string) error {
	for rel, content := range b.Files() {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// StandardMonth is July 2025 with two clients, an estimate each and one invoice.
func StandardMonth() *WorkspaceBuilder {
	return NewWorkspaceBuilder(2025).
		Client("Ann Lee", "ann@example.com", 101).
		Client("Bob Stone", "bob@example.com", 102).
		Estimate(7, "E-1", "Ann Lee", "108.00", "2025-07-01").
		Estimate(7, "E-2", "Bob Stone", "54.00", "2025-07-09").
		Invoice(7, "I-1", "Ann Lee", "108.00", "2025-07-15")
}

func csv(header string, rows []string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}
