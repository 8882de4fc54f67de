package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/app"
	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// runRoot executes the root command with args and returns stdout.
// Global flag state is reset afterwards.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvFeeTable, "")
	t.Setenv(config.EnvDBPath, filepath.Join(t.TempDir(), "test.db"))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		globalFlags.Format = ""
		globalFlags.Now = ""
		globalFlags.Out = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func graphLine(asin string) string {
	ms := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	day := int64(24 * time.Hour / time.Millisecond)
	return `{"asin":"` + asin + `","name":"keepaGraphData","keys":["buyBox"],"days":90,"points":[` +
		`{"date":` + itoa(ms) + `,"buyBox":19.99},` +
		`{"date":` + itoa(ms+day) + `,"buyBox":21.5}]}`
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// ─── outputWriter ─────────────────────────────────────────────────────────────

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

// ─── Argument helpers ─────────────────────────────────────────────────────────

func TestASINArgsNormalizes(t *testing.T) {
	got, err := asinArgs([]string{"b07xj8c8f5,B000TEST01", " B07XJ8C8F5 "})
	if err != nil {
		t.Fatalf("asinArgs: %v", err)
	}
	if len(got) != 2 || got[0] != "B07XJ8C8F5" || got[1] != "B000TEST01" {
		t.Errorf("asinArgs = %v", got)
	}
}

func TestASINArgsRejects(t *testing.T) {
	for _, args := range [][]string{{""}, {" , "}, {"TOO-SHORT"}} {
		if _, err := asinArgs(args); err == nil {
			t.Errorf("asinArgs(%q) should fail", args)
		}
	}
}

func TestDayWindow(t *testing.T) {
	deps := &app.Deps{Config: &config.Config{DefaultDays: 45}}
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "x"}
		c.Flags().String("days", "", "")
		return c
	}

	c := newCmd()
	if got, err := dayWindow(c, "", deps); err != nil || got != 45 {
		t.Errorf("unset --days = %d, %v; want 45", got, err)
	}

	c = newCmd()
	_ = c.Flags().Set("days", "all")
	if got, err := dayWindow(c, "all", deps); err != nil || got != 0 {
		t.Errorf("--days all = %d, %v; want 0", got, err)
	}

	c = newCmd()
	_ = c.Flags().Set("days", "30")
	if got, err := dayWindow(c, "30", deps); err != nil || got != 30 {
		t.Errorf("--days 30 = %d, %v; want 30", got, err)
	}

	c = newCmd()
	_ = c.Flags().Set("days", "soon")
	if _, err := dayWindow(c, "soon", deps); err == nil {
		t.Error("--days soon should fail")
	}
}

func TestWithWarnings(t *testing.T) {
	base := errors.New("no products loaded")
	if got := withWarnings(base, nil); got != base {
		t.Errorf("no warnings should return the error unchanged")
	}
	got := withWarnings(base, []string{"B000TEST01: no Keepa data"})
	if !errors.Is(got, base) {
		t.Error("wrapped error should match the original")
	}
	if !strings.Contains(got.Error(), "B000TEST01: no Keepa data") {
		t.Errorf("warnings missing from %q", got.Error())
	}
}

func TestResolveFormat(t *testing.T) {
	t.Cleanup(func() { globalFlags.Format = "" })
	globalFlags.Format = ""
	if got := resolveFormat(""); got != "table" {
		t.Errorf("default = %q, want table", got)
	}
	if got := resolveFormat("csv"); got != "csv" {
		t.Errorf("config = %q, want csv", got)
	}
	globalFlags.Format = "json"
	if got := resolveFormat("csv"); got != "json" {
		t.Errorf("flag = %q, want json", got)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{512: "512 B", 2048: "2.0 KB", 3 << 20: "3.0 MB"}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

// ─── Tables ───────────────────────────────────────────────────────────────────

func TestGraphTable(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	tbl := graphTable([]store.GraphInfo{
		{ID: "id-1", ASIN: "B000TEST01", Name: "keepaGraphData", Days: 0, Points: 12, CreatedAt: created},
		{ID: "id-2", ASIN: "B000TEST02", Name: "keepaGraphData", Days: 30, Points: 31, CreatedAt: created},
	})
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
	if tbl.Rows[0][3] != "all" || tbl.Rows[1][3] != "30" {
		t.Errorf("days columns = %q, %q", tbl.Rows[0][3], tbl.Rows[1][3])
	}
	if tbl.Rows[0][5] != "2024-06-01 12:00" {
		t.Errorf("created at = %q", tbl.Rows[0][5])
	}
}

func TestProductTableTruncatesTitles(t *testing.T) {
	tbl := productTable([]store.ProductInfo{{
		ASIN:      "B000TEST01",
		Domain:    1,
		Title:     strings.Repeat("x", 80),
		FetchedAt: time.Now(),
	}})
	if got := len([]rune(tbl.Rows[0][2])); got != 50 {
		t.Errorf("title length = %d, want 50", got)
	}
}

// ─── Chart input ──────────────────────────────────────────────────────────────

func TestEachGraph(t *testing.T) {
	old := chartKey
	t.Cleanup(func() { chartKey = old })
	chartKey = "buyBox"

	var seen []string
	input := graphLine("B000TEST01") + "\n" + graphLine("B000TEST02") + "\n"
	err := eachGraph(strings.NewReader(input), func(g *model.GraphSet) error {
		seen = append(seen, g.ASIN)
		return nil
	})
	if err != nil {
		t.Fatalf("eachGraph: %v", err)
	}
	if len(seen) != 2 || seen[1] != "B000TEST02" {
		t.Errorf("visited %v", seen)
	}
}

func TestEachGraphErrors(t *testing.T) {
	old := chartKey
	t.Cleanup(func() { chartKey = old })

	chartKey = "buyBox"
	if err := eachGraph(strings.NewReader(""), func(*model.GraphSet) error { return nil }); err == nil {
		t.Error("empty input should fail")
	}

	chartKey = "salesRank"
	err := eachGraph(strings.NewReader(graphLine("B000TEST01")+"\n"), func(*model.GraphSet) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "salesRank") {
		t.Errorf("missing key error = %v", err)
	}
}

// ─── Command tree ─────────────────────────────────────────────────────────────

func TestSubcommandRouting(t *testing.T) {
	pairs := [][]string{
		{"graph", "get"},
		{"graph", "build"},
		{"graph", "png"},
		{"graph", "summary"},
		{"graph", "trend"},
		{"graph", "list"},
		{"graph", "show"},
		{"graph", "delete"},
		{"fees", "calc"},
		{"fees", "get"},
		{"fees", "table"},
		{"product", "get"},
		{"product", "search"},
		{"product", "find"},
		{"offers", "get"},
		{"seller", "get"},
		{"seller", "revenue"},
		{"chart", "plot"},
		{"chart", "bar"},
		{"store", "list"},
		{"store", "get"},
		{"cache", "stats"},
		{"cache", "clear"},
		{"cache", "compact"},
		{"config", "init"},
		{"config", "show"},
		{"config", "set"},
		{"version"},
		{"completion"},
	}
	for _, p := range pairs {
		c, _, err := rootCmd.Find(p)
		if err != nil {
			t.Errorf("%v: %v", p, err)
			continue
		}
		if c.Name() != p[len(p)-1] {
			t.Errorf("%v resolved to %q", p, c.Name())
		}
	}
}

// ─── End to end ───────────────────────────────────────────────────────────────

func TestFeesCalcJSON(t *testing.T) {
	out, err := runRoot(t, "fees", "calc",
		"--length", "300", "--width", "200", "--height", "100", "--weight", "2000",
		"--now", "2024-03-01", "--format", "json")
	if err != nil {
		t.Fatalf("fees calc: %v", err)
	}
	var res struct {
		Kind string            `json:"kind"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Kind != model.KindFees || len(res.Data) != 1 {
		t.Errorf("kind=%q items=%d", res.Kind, len(res.Data))
	}
}

func TestFeesTableStorage(t *testing.T) {
	out, err := runRoot(t, "fees", "table", "--section", "storage", "--format", "csv")
	if err != nil {
		t.Fatalf("fees table: %v", err)
	}
	if !strings.Contains(out, "off_peak") || !strings.Contains(out, "dangerous") {
		t.Errorf("storage schedule missing rows:\n%s", out)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	if _, err := runRoot(t, "fees", "table", "--format", "xml"); err == nil {
		t.Error("--format xml should fail")
	}
}
