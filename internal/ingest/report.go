package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/crmingest/internal/store"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// ManifestDir is the directory under the log directory that receives run manifests.
const ManifestDir = "runs"

// Report summarizes one ingest run. It is also the JSON run manifest.
type Report struct {
	Version       int                `json:"version"`
	RunID         uuid.UUID          `json:"run_id"`
	Year          int                `json:"year"`
	Month         int                `json:"month"`
	IngestionDate string             `json:"ingestion_date"`
	Steps         []crmingest.Entity `json:"steps"`
	DryRun        bool               `json:"dry_run"`
	Atomic        bool               `json:"atomic"`
	Status        string             `json:"status"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	Files         []ReportFile       `json:"files"`
	Results       []StepResult       `json:"results"`
	Error         string             `json:"error,omitempty"`

	ManifestPath string `json:"-"`
}

// ReportFile is one export read by the run.
type ReportFile struct {
	Entity   crmingest.Entity `json:"entity"`
	Path     string           `json:"path"`
	Checksum string           `json:"sha256"`
	Size     int64            `json:"size"`
	Rows     int              `json:"rows"`
}

func newReport(id uuid.UUID, cfg crmingest.RunConfig, started time.Time) *Report {
	return &Report{
		Version:       1,
		RunID:         id,
		Year:          cfg.Year,
		Month:         cfg.Month,
		IngestionDate: cfg.IngestionDate.Format(time.DateOnly),
		Steps:         crmingest.OrderedSubset(cfg.Entities),
		DryRun:        cfg.DryRun,
		Atomic:        cfg.Atomic,
		StartedAt:     started.UTC(),
	}
}

func (r *Report) addFiles(p *Plan) {
	for _, e := range crmingest.LoadOrder {
		f, ok := p.Files[e]
		if !ok {
			continue
		}
		r.Files = append(r.Files, ReportFile{
			Entity:   e,
			Path:     f.Path,
			Checksum: f.Checksum,
			Size:     f.Size,
			Rows:     f.Table.Len(),
		})
	}
}

func (r *Report) finish(at time.Time, err error) {
	r.FinishedAt = at.UTC()
	if err != nil {
		r.Status = store.RunFailed
		r.Error = err.Error()
		return
	}
	r.Status = store.RunSucceeded
}

// Succeeded reports whether every step completed.
func (r *Report) Succeeded() bool {
	return r.Status == store.RunSucceeded
}

// Result returns the result of a step, if it ran.
func (r *Report) Result(e crmingest.Entity) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Entity == e {
			return res, true
		}
	}
	return StepResult{}, false
}

// Rows returns the entity rows written by a committed step, or 0.
func (r *Report) Rows(e crmingest.Entity) int {
	res, ok := r.Result(e)
	if !ok || !res.Committed {
		return 0
	}
	return res.Rows
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteManifest writes the report as JSON under <logDir>/runs and returns its path.
func WriteManifest(logDir string, r *Report) (string, error) {
	dir := filepath.Join(logDir, ManifestDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}
	name := fmt.Sprintf("ingest_%s_%s.json", r.StartedAt.UTC().Format("20060102T150405Z"), r.RunID)
	path := filepath.Join(dir, name)

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
