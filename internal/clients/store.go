package clients

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sync"

	"github.com/proingenius/aria-banking/internal/observability"
)

// LoadFunc reads the full dataset. skipped counts lines that were dropped.
type LoadFunc func(ctx context.Context) (records []Record, skipped int, err error)

// Store memoizes the client dataset for the lifetime of the process.
// The collection is read-only once loaded; ClearCache forces the next
// LoadAll to read the source again.
type Store struct {
	logger *observability.Logger
	load   LoadFunc
	source string

	mu      sync.RWMutex
	records []Record
	loaded  bool
	skipped int
}

// NewStore creates a store backed by a JSONL file.
func NewStore(path string, logger *observability.Logger) *Store {
	return &Store{
		logger: logger.WithComponent("client_store"),
		load:   FileLoader(path),
		source: path,
	}
}

// NewMemoryStore creates a store over a fixed set of records.
func NewMemoryStore(records []Record, logger *observability.Logger) *Store {
	fixture := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.valid() {
			continue
		}
		profile := *r.Perfil
		r.Perfil = &profile
		r.normalize()
		fixture = append(fixture, r)
	}
	return &Store{
		logger: logger.WithComponent("client_store"),
		load: func(context.Context) ([]Record, int, error) {
			return fixture, len(records) - len(fixture), nil
		},
		source: "memory",
	}
}

// FileLoader returns a LoadFunc that parses one JSON record per line.
func FileLoader(path string) LoadFunc {
	return func(ctx context.Context) ([]Record, int, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		return ParseJSONL(ctx, f)
	}
}

// ParseJSONL decodes newline-delimited records. Blank lines are ignored;
// malformed lines and lines without cliente_id or perfil are skipped and counted.
func ParseJSONL(ctx context.Context, r io.Reader) ([]Record, int, error) {
	reader := bufio.NewReader(r)
	records := make([]Record, 0, 1024)
	skipped := 0

	for lineNo := 0; ; lineNo++ {
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, skipped, err
			}
		}

		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, skipped, fmt.Errorf("read line %d: %w", lineNo+1, readErr)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var rec Record
			if err := json.Unmarshal(trimmed, &rec); err != nil || !rec.valid() {
				skipped++
			} else {
				rec.normalize()
				records = append(records, rec)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	return records, skipped, nil
}

// LoadAll returns the cached dataset, reading it on first use.
// It never fails: a missing or unreadable source yields an empty collection
// that is not cached, so a later call tries again.
func (s *Store) LoadAll(ctx context.Context) []Record {
	s.mu.RLock()
	if s.loaded {
		records := s.records
		s.mu.RUnlock()
		return records
	}
	s.mu.RUnlock()

	records, skipped, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Str("path", s.source).Msg("Client data file not found")
		} else {
			s.logger.Error().Err(err).Str("path", s.source).Msg("Failed to load clients")
		}
		return []Record{}
	}

	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("Skipped malformed client lines")
	}

	s.mu.Lock()
	// Concurrent fills read the same source, so the first writer wins.
	if !s.loaded {
		s.records = records
		s.skipped = skipped
		s.loaded = true
		s.logger.Info().Int("count", len(records)).Str("path", s.source).Msg("Loaded clients")
	}
	records = s.records
	s.mu.Unlock()

	return records
}

// GetByID returns the client with the given ID.
func (s *Store) GetByID(ctx context.Context, id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	for _, r := range s.LoadAll(ctx) {
		if r.ClienteID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Stats aggregates the dataset in a single pass.
func (s *Store) Stats(ctx context.Context) Stats {
	return ComputeStats(s.LoadAll(ctx))
}

// ComputeStats aggregates records. An empty slice yields all zeros.
func ComputeStats(records []Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	var public, women int
	var sumAge, sumIncome float64
	for _, r := range records {
		if r.Perfil.IsPublicSector() {
			public++
		}
		if r.Perfil.Sexo == SexFemale {
			women++
		}
		sumAge += float64(r.Perfil.Edad)
		sumIncome += r.Perfil.Ingreso
	}

	total := len(records)
	return Stats{
		Total:           total,
		SectorPublico:   public,
		SectorPrivado:   total - public,
		Mujeres:         women,
		Hombres:         total - women,
		EdadPromedio:    roundHalfUp(sumAge / float64(total)),
		IngresoPromedio: roundHalfUp(sumIncome / float64(total)),
	}
}

// ClearCache drops the memoized dataset.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.records = nil
	s.skipped = 0
	s.loaded = false
	s.mu.Unlock()
	s.logger.Info().Msg("Client cache cleared")
}

// Loaded reports whether the dataset is currently cached.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Skipped returns the number of lines dropped by the last successful load.
func (s *Store) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// Count returns the number of loaded clients.
func (s *Store) Count(ctx context.Context) int {
	return len(s.LoadAll(ctx))
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
