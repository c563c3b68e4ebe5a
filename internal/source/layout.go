// Package source locates CRM export files in the data directory convention
// and reads them into tables.
//
//	<base>/data/clients/<year>/Clients.csv
//	<base>/data/estimates/<year>/<year>-<month>.csv
//	<base>/data/invoices/<year>/<year>-<month>.csv   (tab-separated)
//
// Monthly files may use an unpadded ("2025-7.csv") or zero-padded
// ("2025-07.csv") month; the unpadded name is tried first.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/vvka-141/crmingest/internal/checksum"
	"github.com/vvka-141/crmingest/internal/table"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Layout resolves export paths under a base directory.
type Layout struct {
	BaseDir string
	FS      FileSystemProvider
}

// NewLayout returns a Layout reading from the OS filesystem.
func NewLayout(baseDir string) Layout {
	return Layout{BaseDir: baseDir, FS: NewOSFileSystem()}
}

// Delimiter returns the field separator used by an entity's export.
func Delimiter(e crmingest.Entity) rune {
	if e == crmingest.EntityInvoices {
		return '\t'
	}
	return ','
}

// Dir returns the directory holding an entity's exports for a year.
func (l Layout) Dir(e crmingest.Entity, year int) string {
	return filepath.Join(l.BaseDir, "data", e.String(), strconv.Itoa(year))
}

// Candidates returns the paths tried for an entity, in order.
func (l Layout) Candidates(e crmingest.Entity, year, month int) []string {
	dir := l.Dir(e, year)
	if e == crmingest.EntityClients {
		return []string{filepath.Join(dir, crmingest.ClientsFileName)}
	}
	return []string{
		filepath.Join(dir, fmt.Sprintf("%d-%d.csv", year, month)),
		filepath.Join(dir, fmt.Sprintf("%d-%02d.csv", year, month)),
	}
}

// Resolve returns the first existing candidate path.
// The error wraps crmingest.ErrSourceNotFound when none exists.
func (l Layout) Resolve(e crmingest.Entity, year, month int) (string, error) {
	cands := l.Candidates(e, year, month)
	for _, p := range cands {
		info, err := l.FS.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%s export for %d-%02d (looked for %s): %w",
		e, year, month, cands[0], crmingest.ErrSourceNotFound)
}

// File is one export read into memory.
type File struct {
	Entity   crmingest.Entity
	Path     string
	Checksum string
	Size     int64
	Table    *table.Table
}

// Read resolves, checksums and parses an entity's export.
func (l Layout) Read(e crmingest.Entity, year, month int) (*File, error) {
	p, err := l.Resolve(e, year, month)
	if err != nil {
		return nil, err
	}
	content, err := l.FS.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	t, err := table.Read(bytes.NewReader(content), Delimiter(e))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", p, err, crmingest.ErrInvalidSource)
	}
	return &File{
		Entity:   e,
		Path:     p,
		Checksum: checksum.New().CalculateNormalized(content),
		Size:     int64(len(content)),
		Table:    t,
	}, nil
}

// Monthly describes one monthly export found on disk.
type Monthly struct {
	Entity   crmingest.Entity
	Year     int
	Month    int
	Path     string
	Checksum string
	Size     int64
}

var monthlyName = regexp.MustCompile(`^(\d{4})-(\d{1,2})\.csv$`)

// Discover lists the monthly estimates and invoices exports present for a year,
// ordered by month then entity.
func (l Layout) Discover(year int) ([]Monthly, error) {
	calc := checksum.New()
	var out []Monthly
	for _, e := range []crmingest.Entity{crmingest.EntityEstimates, crmingest.EntityInvoices} {
		dir := l.Dir(e, year)
		entries, err := l.FS.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, fi := range entries {
			if fi.IsDir() {
				continue
			}
			m := monthlyName.FindStringSubmatch(fi.Name())
			if m == nil {
				continue
			}
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			if y != year || mo < 1 || mo > 12 {
				continue
			}
			p := filepath.Join(dir, fi.Name())
			content, err := l.FS.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p, err)
			}
			out = append(out, Monthly{
				Entity:   e,
				Year:     y,
				Month:    mo,
				Path:     p,
				Checksum: calc.CalculateNormalized(content),
				Size:     int64(len(content)),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Entity < out[j].Entity
	})
	return out, nil
}
