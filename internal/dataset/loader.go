// Package dataset locates the per-country irradiance CSV files, validates
// them and combines them into one country-tagged dataset.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// CountryFile maps a country key (e.g. "sierra_leone") to its source filename.
type CountryFile struct {
	Key  string
	File string
}

// DefaultCountryFiles is the fixed source set, in concatenation order.
var DefaultCountryFiles = []CountryFile{
	{Key: "benin", File: "benin-malanville_clean.csv"},
	{Key: "sierra_leone", File: "sierraleone-bumbuna_clean.csv"},
	{Key: "togo", File: "togo_dapaong_clean.csv"},
}

// ExpectedCountries returns the labels every combined dataset must contain.
func ExpectedCountries() []string {
	out := make([]string, len(DefaultCountryFiles))
	for i, cf := range DefaultCountryFiles {
		out[i] = CountryLabel(cf.Key)
	}
	return out
}

var titleCaser = cases.Title(language.English)

// CountryLabel derives the display label from a country key:
// underscores become spaces and each word is title-cased.
func CountryLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// DefaultCandidateDirs returns the search order used when no data directory
// is configured: the working directory first, then paths relative to the executable.
func DefaultCandidateDirs(executable string) []string {
	dirs := []string{"data", filepath.Join("..", "data")}
	if executable != "" {
		exeDir := filepath.Dir(executable)
		dirs = append(dirs,
			filepath.Join(exeDir, "..", "data"),
			filepath.Join(exeDir, "..", "..", "data"),
		)
	}
	return dirs
}

// Loader reads the source files from the first candidate directory that holds them.
type Loader struct {
	candidates []string
	files      []CountryFile
	required   []models.Metric
	expected   []string
	logger     *zap.Logger
}

// NewLoader creates a Loader. files defaults to DefaultCountryFiles when empty;
// logger may be nil.
func NewLoader(candidates []string, files []CountryFile, logger *zap.Logger) *Loader {
	if len(files) == 0 {
		files = DefaultCountryFiles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		candidates: candidates,
		files:      files,
		required:   models.Metrics,
		expected:   ExpectedCountries(),
		logger:     logger,
	}
}

// Candidates returns the directories probed by ResolveDir, in order.
func (l *Loader) Candidates() []string {
	return append([]string(nil), l.candidates...)
}

// Files returns the source filenames in concatenation order.
func (l *Loader) Files() []string {
	out := make([]string, len(l.files))
	for i, cf := range l.files {
		out[i] = cf.File
	}
	return out
}

// ResolveDir returns the first candidate directory containing the first listed file.
func (l *Loader) ResolveDir() (string, error) {
	if len(l.files) > 0 {
		for _, dir := range l.candidates {
			info, err := os.Stat(filepath.Join(dir, l.files[0].File))
			if err == nil && !info.IsDir() {
				return dir, nil
			}
		}
	}
	return "", &DirectoryNotFoundError{Candidates: l.Candidates(), Files: l.Files()}
}

// Load resolves the data directory, reads every source file from it and
// returns the combined dataset. Rows keep their source order; files are
// appended in mapping order.
func (l *Loader) Load(ctx context.Context) (models.Dataset, error) {
	dir, err := l.ResolveDir()
	if err != nil {
		return models.Dataset{}, err
	}
	l.logger.Info("data directory resolved", zap.String("dir", dir))

	fingerprint, err := fingerprintDir(dir, l.files)
	if err != nil {
		return models.Dataset{}, err
	}

	ds := models.Dataset{Dir: dir, Fingerprint: fingerprint}
	seenCols := make(map[string]struct{})
	for _, cf := range l.files {
		if err := ctx.Err(); err != nil {
			return models.Dataset{}, err
		}
		cols, records, err := l.readFile(dir, cf)
		if err != nil {
			return models.Dataset{}, err
		}
		for _, c := range cols {
			if _, ok := seenCols[c]; !ok {
				seenCols[c] = struct{}{}
				ds.Columns = append(ds.Columns, c)
			}
		}
		ds.Records = append(ds.Records, records...)
		l.logger.Debug("source file loaded", zap.String("file", cf.File), zap.Int("rows", len(records)))
	}
	ds.Columns = append(ds.Columns, models.CountryColumn)

	if err := l.validateCountries(ds.Countries()); err != nil {
		return models.Dataset{}, err
	}
	ds.LoadedAt = time.Now().UTC()
	return ds, nil
}

// Fingerprint returns the digest of the source files in the resolved directory.
// It changes whenever a file's size or modification time changes.
func (l *Loader) Fingerprint() (string, error) {
	dir, err := l.ResolveDir()
	if err != nil {
		return "", err
	}
	return fingerprintDir(dir, l.files)
}

func (l *Loader) readFile(dir string, cf CountryFile) ([]string, []models.Record, error) {
	path := filepath.Join(dir, cf.File)
	fail := func(column string, cause error) error {
		return &FileProcessingError{File: cf.File, Path: path, Column: column, Err: cause}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fail("", err)
	}
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM))).ReadAll()
	if err != nil {
		return nil, nil, fail("", err)
	}
	if len(records) < 2 {
		return nil, nil, fail("", ErrEmptyFile)
	}
	records[0] = dedupeHeader(records[0])

	types := make(map[string]series.Type, len(l.required))
	for _, m := range l.required {
		types[string(m)] = series.Float
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return nil, nil, fail("", df.Err)
	}

	names := df.Names()
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		present[n] = struct{}{}
	}
	for _, m := range l.required {
		if _, ok := present[string(m)]; !ok {
			return nil, nil, fail(string(m), ErrMissingColumn)
		}
	}

	ghi := df.Col(string(models.GHI)).Float()
	dni := df.Col(string(models.DNI)).Float()
	dhi := df.Col(string(models.DHI)).Float()

	ancillary := make(map[string][]string)
	for _, n := range names {
		if isMetric(n) {
			continue
		}
		ancillary[n] = df.Col(n).Records()
	}

	label := CountryLabel(cf.Key)
	out := make([]models.Record, df.Nrow())
	for i := range out {
		fields := make(map[string]string, len(ancillary))
		for n, vals := range ancillary {
			fields[n] = vals[i]
		}
		out[i] = models.Record{
			Country: label,
			GHI:     ghi[i],
			DNI:     dni[i],
			DHI:     dhi[i],
			Fields:  fields,
		}
	}
	return names, out, nil
}

var utf8BOM = []byte("\ufeff")

// dedupeHeader keeps the first occurrence of a repeated column name and
// suffixes later ones with ".1", ".2" and so on.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]struct{}, len(header))
	for _, h := range header {
		taken[h] = struct{}{}
	}
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			out[i] = h
			continue
		}
		name := fmt.Sprintf("%s.%d", h, n)
		for {
			if _, dup := taken[name]; !dup {
				break
			}
			n++
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h] = n + 1
		taken[name] = struct{}{}
		out[i] = name
	}
	return out
}

func (l *Loader) validateCountries(loaded []string) error {
	got := append([]string(nil), loaded...)
	want := append([]string(nil), l.expected...)
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		return &CountryMismatchError{Loaded: loaded, Expected: l.expected}
	}
	for i := range got {
		if got[i] != want[i] {
			return &CountryMismatchError{Loaded: loaded, Expected: l.expected}
		}
	}
	return nil
}

func isMetric(name string) bool {
	for _, m := range models.Metrics {
		if string(m) == name {
			return true
		}
	}
	return false
}

// IsLoadError reports whether err is one of the loader's typed errors.
func IsLoadError(err error) bool {
	var dirErr *DirectoryNotFoundError
	var fileErr *FileProcessingError
	var countryErr *CountryMismatchError
	return errors.As(err, &dirErr) || errors.As(err, &fileErr) || errors.As(err, &countryErr)
}

func (cf CountryFile) String() string {
	return fmt.Sprintf("%s=%s", cf.Key, cf.File)
}
