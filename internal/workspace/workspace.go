// Package workspace creates the directory layout crmingest expects:
//
//	crmingest.yaml
//	data/clients/<year>/
//	data/estimates/<year>/
//	data/invoices/<year>/
//	logs/old/
package workspace

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/crmingest/internal/config"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

//go:embed templates
var templatesFS embed.FS

// templateFiles maps embedded template names to their target names.
var templateFiles = map[string]string{
	"crmingest.yaml": config.ConfigFileName,
	"env.example":    ".env.example",
	"gitignore":      ".gitignore",
}

// Options fill the placeholders of the generated files.
type Options struct {
	Backend  crmingest.Backend
	Database string
	Year     int
	Today    time.Time
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = crmingest.BackendPostgres
	}
	if o.Database == "" {
		o.Database = "crm"
	}
	if o.Today.IsZero() {
		o.Today = time.Now()
	}
	if o.Year == 0 {
		o.Year = o.Today.Year()
	}
	return o
}

// Dirs returns the directories created under root.
func Dirs(year int) []string {
	y := strconv.Itoa(year)
	return []string{
		filepath.Join("data", "clients", y),
		filepath.Join("data", "estimates", y),
		filepath.Join("data", "invoices", y),
		filepath.Join("logs", "old"),
	}
}

// Creator initializes workspaces.
type Creator struct {
	logger crmingest.Logger
}

func NewCreator(logger crmingest.Logger) *Creator {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Creator{logger: logger}
}

// Create lays out a workspace in root, creating root if needed.
// Existing data directories are kept; an existing crmingest.yaml is never
// overwritten and makes Create fail before anything is written.
func (c *Creator) Create(root string, opts Options) error {
	opts = opts.withDefaults()

	cfgPath := filepath.Join(root, config.ConfigFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists; remove it or choose another directory: %w", cfgPath, crmingest.ErrInvalidConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check %s: %w", cfgPath, err)
	}

	for _, d := range Dirs(opts.Year) {
		c.logger.Verbose("Creating directory: %s", d)
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}

	for src, dst := range templateFiles {
		target := filepath.Join(root, dst)
		if dst != config.ConfigFileName {
			if _, err := os.Stat(target); err == nil {
				c.logger.Verbose("Keeping existing %s", dst)
				continue
			}
		}
		content, err := templatesFS.ReadFile("templates/" + src)
		if err != nil {
			return fmt.Errorf("read template %s: %w", src, err)
		}
		c.logger.Verbose("Creating file: %s", dst)
		if err := writeNew(target, []byte(render(string(content), opts))); err != nil {
			return err
		}
	}
	return nil
}

func writeNew(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func render(content string, o Options) string {
	return strings.NewReplacer(
		"{{BACKEND}}", string(o.Backend),
		"{{DATABASE}}", o.Database,
		"{{YEAR}}", strconv.Itoa(o.Year),
		"{{TODAY}}", o.Today.Format(time.DateOnly),
	).Replace(content)
}

// FileTree renders the directories and files under root as an indented tree.
func FileTree(root string) (string, error) {
	var sb strings.Builder
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sb.WriteString(abs + "/\n")

	err = walk(&sb, root, "")
	if err != nil {
		return "", fmt.Errorf("build file tree: %w", err)
	}
	return sb.String(), nil
}

func walk(sb *strings.Builder, dir, indent string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for i, e := range entries {
		last := i == len(entries)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		sb.WriteString(indent + branch + name + "\n")
		if e.IsDir() {
			if err := walk(sb, filepath.Join(dir, e.Name()), indent+next); err != nil {
				return err
			}
		}
	}
	return nil
}
