package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/solar-dashboard-service/internal/render"
	"github.com/kjstillabower/solar-dashboard-service/internal/testhelpers"
)

// run executes the root command against a fixture data dir and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_NAME", "cli-test-missing")
	t.Setenv("SOLAR_DATA_DIR", "")
	dir := t.TempDir()
	testhelpers.WriteSources(t, dir)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--data-dir", dir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	want := []string{"chart", "countries", "export", "stats", "summary"}
	for _, name := range want {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if !root.SilenceUsage || !root.SilenceErrors {
		t.Error("root command should silence usage and errors")
	}
}

func TestCountries(t *testing.T) {
	out, err := run(t, "countries")
	if err != nil {
		t.Fatalf("countries error = %v", err)
	}
	if got := strings.Fields(strings.ReplaceAll(out, "Sierra Leone", "Sierra_Leone")); strings.Join(got, ",") != "Benin,Sierra_Leone,Togo" {
		t.Errorf("countries output = %q", out)
	}
}

func TestStats_Table(t *testing.T) {
	out, err := run(t, "stats")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header plus 3 rows:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "Togo") || !strings.Contains(lines[3], "Sierra Leone") {
		t.Errorf("rows not ranked by GHI_mean:\n%s", out)
	}
}

func TestStats_JSONWithCountryAndLimit(t *testing.T) {
	out, err := run(t, "stats", "--json", "--country", "benin,togo", "--limit", "1")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	var table struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &table); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(table.Rows) != 1 || table.Rows[0]["Country"] != "Togo" {
		t.Errorf("rows = %v, want Togo only", table.Rows)
	}
}

func TestStats_UnknownCountry(t *testing.T) {
	if _, err := run(t, "stats", "--country", "Ghana"); err == nil || !strings.Contains(err.Error(), "unknown country") {
		t.Errorf("error = %v, want unknown country", err)
	}
}

func TestSummary(t *testing.T) {
	out, err := run(t, "summary", "dhi", "--json")
	if err != nil {
		t.Fatalf("summary error = %v", err)
	}
	var summaries []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(summaries) != 3 || summaries[0]["metric"] != "DHI" {
		t.Errorf("summaries = %v", summaries)
	}

	if _, err := run(t, "summary", "wind"); err == nil {
		t.Error("summary with an unknown metric should fail")
	}
}

func TestChartAndExport_WriteFiles(t *testing.T) {
	outDir := t.TempDir()
	png := filepath.Join(outDir, "ghi.png")
	if _, err := run(t, "chart", "GHI", "--out", png); err != nil {
		t.Fatalf("chart error = %v", err)
	}
	data, err := os.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("chart output is not a PNG")
	}

	xlsx := filepath.Join(outDir, "stats.xlsx")
	if _, err := run(t, "export", "--out", xlsx); err != nil {
		t.Fatalf("export error = %v", err)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(render.StatsSheet, "A2"); v != "Togo" {
		t.Errorf("A2 = %q, want Togo", v)
	}
}

func TestChart_RequiresOut(t *testing.T) {
	if _, err := run(t, "chart", "GHI"); err == nil {
		t.Error("chart without --out should fail")
	}
}

func TestMissingData(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-dir", t.TempDir(), "--log-level", "error", "stats"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no data directory found") {
		t.Errorf("error = %v, want directory not found", err)
	}
}
