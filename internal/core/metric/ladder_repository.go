package metric

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// rawLadder is the on-disk YAML shape of a ladder override.
type rawLadder struct {
	Name    string    `yaml:"name"`
	Default string    `yaml:"default"`
	Rungs   []rawRung `yaml:"rungs"`
}

type rawRung struct {
	Cmp       string `yaml:"cmp"`
	Threshold string `yaml:"threshold"`
	Label     string `yaml:"label"`
}

// FileSystemLadderRepository loads classification ladders from *.yaml files
// in a directory, one ladder per file. Built-in ladders are the baseline;
// a file whose name matches a built-in replaces it, so deployments can tune
// thresholds without a rebuild. Loaded once at startup, no hot reload.
type FileSystemLadderRepository struct {
	dir     string
	ladders map[string]Ladder
}

// NewFileSystemLadderRepository seeds the built-in ladders and then loads
// overrides from dir. A missing directory is valid: zero overrides.
func NewFileSystemLadderRepository(dir string) (*FileSystemLadderRepository, error) {
	repo := &FileSystemLadderRepository{
		dir: dir,
		ladders: map[string]Ladder{
			CustomerSegment.Name:     CustomerSegment,
			TurnoverRisk.Name:        TurnoverRisk,
			TenureBracket.Name:       TenureBracket,
			PerformanceCategory.Name: PerformanceCategory,
		},
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemLadderRepository) load() error {
	if r.dir == "" {
		return nil
	}
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ladder dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("ladder path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading ladder dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading ladder file %s: %w", path, err)
		}

		var raw rawLadder
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing ladder file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // skip empty / comment-only files
		}

		ladder := Ladder{Name: raw.Name, Default: raw.Default}
		for i, rr := range raw.Rungs {
			threshold, err := decimal.NewFromString(rr.Threshold)
			if err != nil {
				return fmt.Errorf("ladder %q rung %d: invalid threshold %q: %w", raw.Name, i, rr.Threshold, err)
			}
			ladder.Rungs = append(ladder.Rungs, Rung{Cmp: rr.Cmp, Threshold: threshold, Label: rr.Label})
		}
		if err := ladder.Validate(); err != nil {
			return fmt.Errorf("ladder file %s: %w", path, err)
		}

		r.ladders[ladder.Name] = ladder
	}
	return nil
}

// Get returns the ladder with the given name, or an error if not found.
func (r *FileSystemLadderRepository) Get(name string) (Ladder, error) {
	ladder, ok := r.ladders[name]
	if !ok {
		return Ladder{}, fmt.Errorf("ladder %q not found", name)
	}
	return ladder, nil
}

// Ladders returns all ladders, built-ins plus overrides.
func (r *FileSystemLadderRepository) Ladders() []Ladder {
	out := make([]Ladder, 0, len(r.ladders))
	for _, l := range r.ladders {
		out = append(out, l)
	}
	return out
}
