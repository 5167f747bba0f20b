// Package runlog writes the incremental, atomic run record for a bulk
// file-inscribe job: one JSON file per run under a directory, rewritten in
// full (write-to-temp + rename) after every change.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/H3imdall-dev/Dogecoin-Tools/doginals"
)

// Status is the run's lifecycle state.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Mode distinguishes a normally-broadcast inscription from one recovered
// after a mempool-chain-limit interruption.
type Mode string

const (
	ModeNormal          Mode = "normal"
	ModeMempoolRecovery Mode = "mempool-recovery"
)

// Result is one completed file's outcome within a run.
type Result struct {
	File          string `json:"file"`
	InscriptionID string `json:"inscriptionId"`
	Mode          Mode   `json:"mode"`
	Txid          string `json:"txid"`
}

// Record is the full run record, serialized verbatim to the run's JSON
// file.
type Record struct {
	Label        string    `json:"label"`
	Recipient    string    `json:"recipient"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Status       Status    `json:"status"`
	StartBalance *int64    `json:"startBalance,omitempty"`
	EndBalance   *int64    `json:"endBalance,omitempty"`
	TotalFiles   int       `json:"totalFiles"`
	Completed    int       `json:"completed"`
	Results      []Result  `json:"results"`
	Error        string    `json:"error,omitempty"`
}

// Run owns one in-progress run record and persists it to disk on every
// mutation.
type Run struct {
	mu   sync.Mutex
	path string
	rec  Record
}

// Start creates a new run record under dir (created if missing), named
// inscriptions_<label>_<iso>.json, and persists its initial running state.
func Start(dir, label, recipient string, totalFiles int, startBalance *int64, now time.Time) (*Run, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, doginals.Newf(doginals.KindIOError, err, "create run log directory")
	}

	iso := now.UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, fmt.Sprintf("inscriptions_%s_%s.json", label, iso))

	r := &Run{
		path: path,
		rec: Record{
			Label:        label,
			Recipient:    recipient,
			StartedAt:    now.UTC(),
			Status:       StatusRunning,
			StartBalance: startBalance,
			TotalFiles:   totalFiles,
			Results:      []Result{},
		},
	}
	if err := r.saveLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordSuccess appends a completed file's result and persists the record.
func (r *Run) RecordSuccess(res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rec.Results = append(r.rec.Results, res)
	r.rec.Completed = len(r.rec.Results)
	return r.saveLocked()
}

// Finish marks the run done (or error'd, if err is non-nil), records the
// ending wallet balance when known, and persists the final record.
func (r *Run) Finish(now time.Time, endBalance *int64, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	finishedAt := now.UTC()
	r.rec.FinishedAt = &finishedAt
	r.rec.EndBalance = endBalance
	if err != nil {
		r.rec.Status = StatusError
		r.rec.Error = err.Error()
	} else {
		r.rec.Status = StatusDone
	}
	return r.saveLocked()
}

// Snapshot returns a copy of the run record as currently persisted.
func (r *Run) Snapshot() Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec
}

func (r *Run) saveLocked() error {
	raw, err := json.MarshalIndent(r.rec, "", "  ")
	if err != nil {
		return doginals.Newf(doginals.KindIOError, err, "marshal run record")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "write run record temp file")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return doginals.Newf(doginals.KindIOError, err, "rename run record into place")
	}
	log.Debugf("run record %s: %d/%d complete", filepath.Base(r.path), r.rec.Completed, r.rec.TotalFiles)
	return nil
}

// UseLogger configures the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
