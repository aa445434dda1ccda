// Package ingest imports the export files dropped into an inbox directory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sstent/tracksync-go/internal/export"
	"github.com/sstent/tracksync-go/internal/models"
	"github.com/sstent/tracksync-go/internal/observability"
	"github.com/sstent/tracksync-go/internal/parser"
)

// ErrRunInProgress is returned by Run while another run holds the inbox.
var ErrRunInProgress = errors.New("import already running")

// Store is the part of the database the importer needs.
type Store interface {
	HasSource(ctx context.Context, source string) (bool, error)
	SaveEvent(ctx context.Context, source string, skipped int, event *models.Event) error
}

// Report counts the outcome of one Run.
type Report struct {
	Imported    int `json:"imported"`
	Duplicates  int `json:"duplicates"`
	Unsupported int `json:"unsupported"`
	Failed      int `json:"failed"`
}

type Service struct {
	mu         sync.Mutex
	store      Store
	inboxDir   string
	exportDir  string
	logger     *log.Logger
	parserOpts []parser.Option
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithExportDir enables Parquet export of every imported activity into dir.
func WithExportDir(dir string) Option {
	return func(s *Service) { s.exportDir = dir }
}

// WithParserOptions passes options to every parser the service creates.
func WithParserOptions(opts ...parser.Option) Option {
	return func(s *Service) { s.parserOpts = append(s.parserOpts, opts...) }
}

func NewService(store Store, inboxDir string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		inboxDir: inboxDir,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run imports every new file of the inbox. A file that fails is logged and left
// for the next run; only cancellation and an unreadable inbox abort the run.
func (s *Service) Run(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer s.mu.Unlock()

	startTime := time.Now()
	s.logger.Printf("starting import of %s", s.inboxDir)
	defer observability.ObserveRun(startTime)

	var report Report
	files, err := s.listInbox()
	if err != nil {
		return report, fmt.Errorf("failed to list inbox: %w", err)
	}

	for i, source := range files {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		exists, err := s.store.HasSource(ctx, source)
		if err != nil {
			return report, fmt.Errorf("failed to check %s: %w", source, err)
		}
		if exists {
			report.Duplicates++
			observability.RecordFile(observability.OutcomeDuplicate)
			continue
		}

		s.logger.Printf("[%d/%d] importing %s", i+1, len(files), source)
		if err := s.importFile(ctx, source); err != nil {
			if errors.Is(err, parser.ErrUnsupportedFormat) {
				report.Unsupported++
				observability.RecordFile(observability.OutcomeUnsupported)
				s.logger.Printf("skipping %s: %v", source, err)
				continue
			}
			report.Failed++
			observability.RecordFile(observability.OutcomeFailed)
			s.logger.Printf("error importing %s: %v", source, err)
			continue
		}
		report.Imported++
		observability.RecordFile(observability.OutcomeImported)
	}

	s.logger.Printf("import completed in %s: %d imported, %d already stored, %d unsupported, %d failed",
		time.Since(startTime).Round(time.Millisecond), report.Imported, report.Duplicates, report.Unsupported, report.Failed)
	return report, nil
}

// ImportFile parses one file outside the inbox scan and stores it under source.
func (s *Service) ImportFile(ctx context.Context, source string, raw []byte) (*parser.Result, error) {
	p, err := parser.NewParserForFile(source, raw, s.parserOpts...)
	if err != nil {
		return nil, err
	}
	res, err := p.ParseData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	if err := s.store.SaveEvent(ctx, source, len(res.Skipped), res.Event); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", source, err)
	}
	observability.RecordImport(formatOf(p), res.Event.PointCount(), len(res.Skipped), time.Now())

	if s.exportDir != "" {
		if err := s.exportEvent(res.Event); err != nil {
			// the stored event is kept
			s.logger.Printf("export of %s failed: %v", source, err)
		}
	}
	s.logger.Printf("imported %s: event %s, %d points, %d skipped", source, res.Event.ID, res.Event.PointCount(), len(res.Skipped))
	return res, nil
}

func (s *Service) importFile(ctx context.Context, source string) error {
	raw, err := os.ReadFile(filepath.Join(s.inboxDir, source))
	if err != nil {
		return err
	}
	_, err = s.ImportFile(ctx, source, raw)
	return err
}

// listInbox returns the inbox files relative to the inbox, sorted. Hidden files
// and directories are ignored.
func (s *Service) listInbox() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.inboxDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.inboxDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (s *Service) exportEvent(event *models.Event) error {
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return err
	}
	for i, a := range event.Activities {
		path := filepath.Join(s.exportDir, fmt.Sprintf("%s_%d.parquet", event.ID, i))
		if err := export.WritePointsParquet(path, a); err != nil {
			return err
		}
	}
	return nil
}

func formatOf(p parser.Parser) string {
	switch p.(type) {
	case *parser.FITParser:
		return string(parser.FileTypeFIT)
	case *parser.SuuntoJSONParser:
		return string(parser.FileTypeSuuntoJSON)
	case *parser.GPXParser:
		return string(parser.FileTypeGPX)
	default:
		return string(parser.FileTypeUnknown)
	}
}
