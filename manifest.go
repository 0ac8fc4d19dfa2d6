package wikigraph

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A PlanManifest sits next to a spool and carries what compiling it
// needs to know about the planning run.
type PlanManifest struct {
	RunID      string    `toml:"run_id"`
	Created    time.Time `toml:"created"`
	Dump       string    `toml:"dump"`
	Pages      int64     `toml:"pages"`
	Nodes      int64     `toml:"nodes"`
	Links      int64     `toml:"links"`
	Redirects  int64     `toml:"redirects"`
	Duplicates int64     `toml:"duplicates"`
	Cursor     uint64    `toml:"cursor"`
}

// NewPlanManifest describes the result of planning dump.
func NewPlanManifest(dump string, r PlanResult) PlanManifest {
	return PlanManifest{
		RunID:      uuid.NewString(),
		Created:    time.Now().UTC(),
		Dump:       dump,
		Pages:      r.Pages,
		Nodes:      r.Nodes,
		Links:      r.Links,
		Redirects:  r.Redirects,
		Duplicates: r.Duplicates,
		Cursor:     r.Cursor,
	}
}

// A GraphManifest sits next to a compiled graph.
type GraphManifest struct {
	RunID     string    `toml:"run_id"`
	PlanRunID string    `toml:"plan_run_id"`
	Created   time.Time `toml:"created"`
	Version   uint32    `toml:"version"`
	Nodes     int64     `toml:"nodes"`
	Links     int64     `toml:"links"`
	Dangling  int64     `toml:"dangling"`
	Bytes     uint64    `toml:"bytes"`
}

// NewGraphManifest describes a compiled graph.
func NewGraphManifest(plan PlanManifest, version uint32, r CompileResult) GraphManifest {
	return GraphManifest{
		RunID:     uuid.NewString(),
		PlanRunID: plan.RunID,
		Created:   time.Now().UTC(),
		Version:   version,
		Nodes:     r.Nodes,
		Links:     r.Links,
		Dangling:  r.Dangling,
		Bytes:     r.Bytes,
	}
}

// ManifestPath is where the manifest of the file at path lives.
func ManifestPath(path string) string {
	return path + ".toml"
}

// WriteManifest encodes m as TOML into path.
func WriteManifest(path string, m interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	return f.Close()
}

// ReadPlanManifest decodes the plan manifest at path.
func ReadPlanManifest(path string) (PlanManifest, error) {
	var m PlanManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return PlanManifest{}, errors.Wrapf(err, "reading plan manifest %s", path)
	}
	return m, nil
}
