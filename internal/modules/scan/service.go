package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnknownScan is returned when no definition has the requested name.
var ErrUnknownScan = errors.New("unknown scan")

// Archiver persists finished results.
type Archiver interface {
	Store(ctx context.Context, res *Result) (string, error)
}

// Service owns the configured definitions and the latest result of each scan.
type Service struct {
	scanner     *Scanner
	archiver    Archiver
	parallelism int

	mu      sync.RWMutex
	defs    []Definition
	results map[string]*Result

	log zerolog.Logger
}

// NewService creates a service over defs. archiver may be nil.
func NewService(scanner *Scanner, defs []Definition, archiver Archiver, parallelism int, log zerolog.Logger) *Service {
	return &Service{
		scanner:     scanner,
		archiver:    archiver,
		parallelism: parallelism,
		defs:        defs,
		results:     make(map[string]*Result),
		log:         log.With().Str("component", "scan_service").Logger(),
	}
}

// Definitions returns the configured definitions.
func (s *Service) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Definition(nil), s.defs...)
}

// Definition returns a definition by name.
func (s *Service) Definition(name string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FindDefinition(s.defs, name)
}

// SetDefinitions replaces the configured definitions. Cached results of removed scans are dropped.
func (s *Service) SetDefinitions(defs []Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs = defs
	for name := range s.results {
		if _, ok := FindDefinition(defs, name); !ok {
			delete(s.results, name)
		}
	}
}

// Latest returns the most recent successful result of a scan.
func (s *Service) Latest(name string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[name]
	return res, ok
}

// Run executes one scan by name.
func (s *Service) Run(ctx context.Context, name string) (*Result, error) {
	return s.Stream(ctx, name, nil)
}

// Stream executes one scan by name, delivering matches as they are found.
func (s *Service) Stream(ctx context.Context, name string, onMatch MatchFunc) (*Result, error) {
	def, ok := s.Definition(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScan, name)
	}

	res, err := s.scanner.Stream(ctx, def, onMatch)
	if err != nil {
		return nil, err
	}

	s.record(ctx, res)
	return res, nil
}

// RunAll executes every definition as one batch. Failed scans keep their previous result.
func (s *Service) RunAll(ctx context.Context) []*Result {
	results := s.scanner.BatchExecute(ctx, s.Definitions(), s.parallelism)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		s.record(ctx, res)
	}

	s.log.Info().Int("scans", len(results)).Int("failed", failed).Msg("Scan batch complete")
	return results
}

func (s *Service) record(ctx context.Context, res *Result) {
	s.mu.Lock()
	s.results[res.Name] = res
	s.mu.Unlock()

	if s.archiver == nil {
		return
	}
	if _, err := s.archiver.Store(ctx, res); err != nil {
		s.log.Error().Err(err).Str("scan", res.Name).Msg("Failed to archive scan result")
	}
}
