// Package testhelpers provides source-file fixtures and a wired dashboard
// service for tests outside the dataset package.
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kjstillabower/solar-dashboard-service/internal/cache"
	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
	"github.com/kjstillabower/solar-dashboard-service/internal/service"
)

// Fixture CSV contents. Benin GHI mean 15, Sierra Leone 6, Togo 30.
const (
	BeninCSV = "Timestamp,GHI,DNI,DHI,Tamb\n" +
		"2021-08-09 00:01,10,5,1,26.2\n" +
		"2021-08-09 00:02,20,7,3,26.1\n"
	SierraLeoneCSV = "Timestamp,GHI,DNI,DHI,Tamb\n" +
		"2021-10-30 00:01,4,1,2,21.9\n" +
		"2021-10-30 00:02,6,2,2,21.9\n" +
		"2021-10-30 00:03,8,3,2,21.8\n"
	TogoCSV = "Timestamp,GHI,DNI,DHI,Tamb\n" +
		"2021-10-25 00:01,30,12,9,24.8\n"
)

// WriteSources writes the three default source files into dir.
func WriteSources(t testing.TB, dir string) {
	t.Helper()
	contents := []string{BeninCSV, SierraLeoneCSV, TogoCSV}
	for i, cf := range dataset.DefaultCountryFiles {
		WriteFile(t, dir, cf.File, contents[i])
	}
}

// WriteFile writes one file into dir, failing the test on error.
func WriteFile(t testing.TB, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

// NewService returns a dashboard service reading from dir with an in-memory cache.
func NewService(t testing.TB, dir string) *service.DashboardService {
	t.Helper()
	loader := dataset.NewLoader([]string{dir}, nil, nil)
	return service.NewDashboardService(loader, cache.NewInMemoryCache(), time.Hour, nil)
}

// NewFixtureService writes the fixture sources into a temp dir and returns a
// service reading from it, along with the dir.
func NewFixtureService(t testing.TB) (*service.DashboardService, string) {
	t.Helper()
	dir := t.TempDir()
	WriteSources(t, dir)
	return NewService(t, dir), dir
}
