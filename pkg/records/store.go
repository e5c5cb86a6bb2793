package records

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/logging"
)

// Role names used in errors and logs.
const (
	RoleSource  = "source"
	RoleDerived = "derived"
)

// LoadStats describes one directory scan.
type LoadStats struct {
	// Files is the number of files matching the discovery pattern.
	Files int `json:"files" yaml:"files"`
	// Records is the number of files that yielded a record.
	Records int `json:"records" yaml:"records"`
	// Skipped is the number of matching files that contributed nothing.
	Skipped int `json:"skipped" yaml:"skipped"`
	// ParseErrors holds the failures among the skipped files.
	ParseErrors []error `json:"-" yaml:"-"`
}

// Store reads and writes records on a billy filesystem.
type Store struct {
	fs             billy.Filesystem
	sourcePattern  string
	derivedPattern string
	extension      string
}

// Option configures a Store.
type Option func(*Store)

// WithSourcePattern sets the doublestar pattern matched against paths relative to the source dir.
func WithSourcePattern(pattern string) Option {
	return func(s *Store) {
		s.sourcePattern = pattern
	}
}

// WithDerivedPattern sets the pattern matched against file names in the derived dir.
func WithDerivedPattern(pattern string) Option {
	return func(s *Store) {
		s.derivedPattern = pattern
	}
}

// WithExtension sets the extension, without dot, of written derived records.
func WithExtension(ext string) Option {
	return func(s *Store) {
		s.extension = strings.TrimPrefix(ext, ".")
	}
}

// NewStore creates a Store over filesystem.
func NewStore(filesystem billy.Filesystem, opts ...Option) (*Store, error) {
	if filesystem == nil {
		return nil, errors.NewValidationError("filesystem", nil, "cannot be nil")
	}

	s := &Store{
		fs:             filesystem,
		sourcePattern:  constants.DefaultSourcePattern,
		derivedPattern: constants.DefaultDerivedPattern,
		extension:      constants.DefaultExtension,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewOSStore creates a Store on the host filesystem. Callers pass absolute paths.
func NewOSStore(opts ...Option) (*Store, error) {
	return NewStore(osfs.New("/"), opts...)
}

func (s *Store) validate() error {
	if !doublestar.ValidatePattern(s.sourcePattern) {
		return errors.NewValidationError("source_pattern", s.sourcePattern, "invalid glob pattern")
	}
	if !doublestar.ValidatePattern(s.derivedPattern) {
		return errors.NewValidationError("derived_pattern", s.derivedPattern, "invalid glob pattern")
	}
	if s.extension == "" || strings.ContainsAny(s.extension, `/\`) {
		return errors.NewValidationError("extension", s.extension, "must be a non-empty file extension")
	}
	// Written records must be rediscovered, or every run would re-add them.
	if ok, _ := doublestar.Match(s.derivedPattern, "record."+s.extension); !ok {
		return errors.NewValidationError("extension", s.extension,
			fmt.Sprintf("files ending in .%s are not matched by derived pattern %q", s.extension, s.derivedPattern))
	}
	return nil
}

// Filesystem returns the underlying filesystem handle.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

// Extension returns the extension of written derived records.
func (s *Store) Extension() string {
	return s.extension
}

// CheckDir verifies that dir exists and is a directory.
func (s *Store) CheckDir(role, dir string) error {
	info, err := s.fs.Stat(dir)
	if err != nil {
		return errors.NewPathError(role, dir, err)
	}
	if !info.IsDir() {
		return errors.NewPathError(role, dir, fmt.Errorf("not a directory"))
	}
	return nil
}

// LoadSource reads every matching file below dir, recursively.
func (s *Store) LoadSource(ctx context.Context, dir string) (*SourceSet, LoadStats, error) {
	set := NewSet[SourceRecord]()
	var stats LoadStats

	if err := s.CheckDir(RoleSource, dir); err != nil {
		return nil, stats, err
	}

	err := util.Walk(s.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Unreadable entries below the root contribute nothing.
			logging.FromContext(ctx).Debug().Err(err).Str("path", path).Msg("Skipping unreadable entry")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if path != dir && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(info.Name()) || !s.matches(s.sourcePattern, dir, path) {
			return nil
		}

		stats.Files++
		rec, ok := s.read(ctx, path, &stats)
		if !ok {
			return nil
		}
		id, _ := rec.ID()
		set.Put(id, SourceRecord{
			ID:       id,
			Name:     rec.Field(constants.FieldName),
			Category: rec.Field(constants.FieldCategory),
			Path:     path,
		})
		stats.Records++
		return nil
	})
	if err != nil {
		return nil, stats, errors.NewPathError(RoleSource, dir, err)
	}

	return set, stats, nil
}

// LoadDerived reads the matching files directly inside dir.
func (s *Store) LoadDerived(ctx context.Context, dir string) (*DerivedSet, LoadStats, error) {
	set := NewSet[DerivedEntry]()
	var stats LoadStats

	if err := s.CheckDir(RoleDerived, dir); err != nil {
		return nil, stats, err
	}

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, stats, errors.NewPathError(RoleDerived, dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		path := s.fs.Join(dir, entry.Name())
		if !s.matches(s.derivedPattern, dir, path) {
			continue
		}

		stats.Files++
		rec, ok := s.read(ctx, path, &stats)
		if !ok {
			continue
		}
		id, _ := rec.ID()
		set.Put(id, DerivedEntry{ID: id, Path: path})
		stats.Records++
	}

	return set, stats, nil
}

// read parses one file and reports whether it yielded a record with an id.
func (s *Store) read(ctx context.Context, path string, stats *LoadStats) (Record, bool) {
	log := logging.FromContext(ctx)

	data, err := util.ReadFile(s.fs, path)
	if err != nil {
		stats.Skipped++
		stats.ParseErrors = append(stats.ParseErrors, errors.WrapIO("read", path, err))
		log.Debug().Err(err).Str("path", path).Msg("Skipping unreadable file")
		return nil, false
	}

	rec, err := ParseRecord(data)
	if err != nil {
		stats.Skipped++
		stats.ParseErrors = append(stats.ParseErrors, errors.WrapParse(constants.FormatYAML, path, err))
		log.Debug().Err(err).Str("path", path).Msg("Skipping malformed file")
		return nil, false
	}

	if _, ok := rec.ID(); !ok {
		stats.Skipped++
		log.Debug().Str("path", path).Msg("Skipping record without id")
		return nil, false
	}

	return rec, true
}

func (s *Store) matches(pattern, dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// DerivedPath returns where the detection record for id is written.
// Ids that are not a single visible path segment are rejected.
func (s *Store) DerivedPath(dir, id string) (string, error) {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, "/\\\x00") {
		return "", errors.NewValidationError(constants.FieldID, id, "not usable as a file name")
	}
	return s.fs.Join(dir, id+"."+s.extension), nil
}

// Write serializes rec into dir and returns the written path.
// An existing file at that path is replaced.
func (s *Store) Write(dir string, rec DerivedRecord) (string, error) {
	path, err := s.DerivedPath(dir, rec.ID)
	if err != nil {
		return s.fs.Join(dir, rec.ID+"."+s.extension), err
	}

	data, err := rec.Marshal()
	if err != nil {
		return path, err
	}

	if err := util.WriteFile(s.fs, path, data, os.FileMode(constants.FilePermissions)); err != nil {
		return path, err
	}
	return path, nil
}

// Remove deletes the file at path.
func (s *Store) Remove(path string) error {
	return s.fs.Remove(path)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
