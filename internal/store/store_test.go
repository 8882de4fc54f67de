package store_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeProduct(asin, title string) model.Product {
	return model.Product{
		ASIN:          asin,
		Title:         title,
		CSV:           []model.RawSeries{{100, 1999, 200, -1}, nil},
		PackageWeight: 2000,
	}
}

func makeGraph(asin string, values ...float64) model.GraphSet {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]model.TimePoint, len(values))
	for i, v := range values {
		pts[i] = model.TimePoint{
			Time:   base.AddDate(0, 0, i).UnixMilli(),
			Values: map[string]model.Cell{"buyBox": model.Num(v), "amazon": {}},
		}
	}
	return model.GraphSet{ASIN: asin, Name: "keepaGraphData", Keys: []string{"buyBox", "amazon"}, Days: 30, Points: pts}
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesDB(t *testing.T) {
	s := testDB(t)
	if s.Path() == "" {
		t.Error("Path() should return the db path after open")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.PutProduct(1, makeProduct("B000TEST01", "Widget"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, found, _ := s2.GetProduct(1, "B000TEST01"); !found {
		t.Error("product should survive reopen")
	}
}

// ─── ProductKey ───────────────────────────────────────────────────────────────

func TestProductKey(t *testing.T) {
	if got := store.ProductKey(1, "b000test01"); got != "d1:B000TEST01" {
		t.Errorf("expected d1:B000TEST01, got %q", got)
	}
	if store.ProductKey(1, "X") == store.ProductKey(10, "X") {
		t.Error("keys for different domains must differ")
	}
}

// ─── Products ─────────────────────────────────────────────────────────────────

func TestPutGetProduct(t *testing.T) {
	s := testDB(t)
	before := time.Now().UTC().Add(-time.Second)
	if err := s.PutProduct(1, makeProduct("B000TEST01", "Widget")); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}

	sp, found, err := s.GetProduct(1, "B000TEST01")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if !found {
		t.Fatal("expected product to be found")
	}
	if sp.Product.Title != "Widget" || sp.Domain != 1 {
		t.Errorf("unexpected product: %+v", sp)
	}
	if sp.FetchedAt.Before(before) {
		t.Errorf("FetchedAt not stamped: %s", sp.FetchedAt)
	}
	if len(sp.Product.CSV) != 2 || sp.Product.CSV[1] != nil || sp.Product.CSV[0][3] != -1 {
		t.Errorf("csv not preserved: %v", sp.Product.CSV)
	}
}

func TestGetProductNotFound(t *testing.T) {
	s := testDB(t)
	_, found, err := s.GetProduct(1, "B000NOPE00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestPutProductRequiresASIN(t *testing.T) {
	s := testDB(t)
	if err := s.PutProduct(1, model.Product{}); err == nil {
		t.Error("expected error for empty ASIN")
	}
}

func TestPutProductOverwrites(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000TEST01", "Old"))
	_ = s.PutProduct(1, makeProduct("B000TEST01", "New"))
	sp, _, _ := s.GetProduct(1, "B000TEST01")
	if sp.Product.Title != "New" {
		t.Errorf("expected overwrite, got %q", sp.Product.Title)
	}
}

func TestListProductsByDomain(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000TEST02", "Two"))
	_ = s.PutProduct(1, makeProduct("B000TEST01", "One"))
	_ = s.PutProduct(3, makeProduct("B000TEST03", "Three"))
	_ = s.PutProduct(10, makeProduct("B000TEST04", "Four"))

	us, err := s.ListProducts(1)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(us) != 2 || us[0].ASIN != "B000TEST01" || us[1].ASIN != "B000TEST02" {
		t.Errorf("domain 1: unexpected listing %+v", us)
	}

	all, _ := s.ListProducts(0)
	if len(all) != 4 {
		t.Errorf("all domains: expected 4, got %d", len(all))
	}
}

// ─── Graphs ───────────────────────────────────────────────────────────────────

func TestPutGetGraph(t *testing.T) {
	s := testDB(t)
	id, err := s.PutGraph(makeGraph("B000TEST01", 19.99, 24.99))
	if err != nil {
		t.Fatalf("PutGraph: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}

	g, found, err := s.GetGraph(id)
	if err != nil || !found {
		t.Fatalf("GetGraph: found=%v err=%v", found, err)
	}
	if g.ID != id || g.ASIN != "B000TEST01" || g.CreatedAt.IsZero() {
		t.Errorf("unexpected header: %+v", g)
	}
	if len(g.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(g.Points))
	}
	if v := g.Points[1].Values["buyBox"]; !v.Valid() || v.Value != 24.99 {
		t.Errorf("buyBox: got %+v", v)
	}
	if g.Points[0].Values["amazon"].Valid() {
		t.Error("null amazon cell should stay null")
	}
}

func TestPutGraphAssignsDistinctIDs(t *testing.T) {
	s := testDB(t)
	a, _ := s.PutGraph(makeGraph("B000TEST01", 1))
	b, _ := s.PutGraph(makeGraph("B000TEST01", 1))
	if a == b {
		t.Error("each snapshot should get its own ID")
	}
}

func TestListGraphsOldestFirst(t *testing.T) {
	s := testDB(t)
	newer := makeGraph("B000TEST02", 1)
	newer.CreatedAt = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	older := makeGraph("B000TEST01", 1, 2, 3)
	older.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, _ = s.PutGraph(newer)
	_, _ = s.PutGraph(older)

	list, err := s.ListGraphs()
	if err != nil {
		t.Fatalf("ListGraphs: %v", err)
	}
	if len(list) != 2 || list[0].ASIN != "B000TEST01" || list[0].Points != 3 {
		t.Errorf("unexpected listing: %+v", list)
	}
}

func TestDeleteGraph(t *testing.T) {
	s := testDB(t)
	id, _ := s.PutGraph(makeGraph("B000TEST01", 1))

	existed, err := s.DeleteGraph(id)
	if err != nil || !existed {
		t.Fatalf("DeleteGraph: existed=%v err=%v", existed, err)
	}
	if _, found, _ := s.GetGraph(id); found {
		t.Error("graph should be gone")
	}
	existed, err = s.DeleteGraph(id)
	if err != nil || existed {
		t.Errorf("second delete: existed=%v err=%v", existed, err)
	}
}

// ─── Stats ────────────────────────────────────────────────────────────────────

func TestStatsEmpty(t *testing.T) {
	s := testDB(t)
	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != len(store.AllBuckets) {
		t.Errorf("expected %d buckets, got %d", len(store.AllBuckets), len(stats))
	}
	for _, bs := range stats {
		if bs.Count != 0 {
			t.Errorf("bucket %q: expected 0 rows on fresh db, got %d", bs.Name, bs.Count)
		}
	}
}

func TestStatsCountsRows(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000TEST01", "One"))
	_ = s.PutProduct(1, makeProduct("B000TEST02", "Two"))
	_, _ = s.PutGraph(makeGraph("B000TEST01", 1))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	byName := make(map[string]int)
	for _, bs := range stats {
		byName[bs.Name] = bs.Count
		if bs.Count > 0 && bs.Bytes == 0 {
			t.Errorf("bucket %q: expected non-zero size", bs.Name)
		}
	}
	if byName["products"] != 2 || byName["graphs"] != 1 {
		t.Errorf("unexpected counts: %v", byName)
	}
}

// ─── ClearBucket / ClearAll ───────────────────────────────────────────────────

func TestClearBucketLeavesOthersIntact(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000TEST01", "One"))
	id, _ := s.PutGraph(makeGraph("B000TEST01", 1))

	if err := s.ClearBucket("products"); err != nil {
		t.Fatalf("ClearBucket: %v", err)
	}
	if list, _ := s.ListProducts(0); len(list) != 0 {
		t.Errorf("expected 0 products after clear, got %d", len(list))
	}
	if _, found, _ := s.GetGraph(id); !found {
		t.Error("graphs bucket should be intact after clearing products")
	}
}

func TestClearBucketUnknown(t *testing.T) {
	s := testDB(t)
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("internal bucket should not be clearable")
	}
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000TEST01", "One"))
	_, _ = s.PutGraph(makeGraph("B000TEST01", 1))

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	products, _ := s.ListProducts(0)
	graphs, _ := s.ListGraphs()
	if len(products) != 0 || len(graphs) != 0 {
		t.Errorf("ClearAll: products=%d graphs=%d (all should be 0)", len(products), len(graphs))
	}
}

func TestCompactKeepsData(t *testing.T) {
	s := testDB(t)
	for i := 0; i < 20; i++ {
		_ = s.PutProduct(1, makeProduct(fmt.Sprintf("B000TEST%02d", i), "Filler"))
	}
	if err := s.ClearBucket("products"); err != nil {
		t.Fatalf("ClearBucket: %v", err)
	}
	_ = s.PutProduct(1, makeProduct("B000KEEP01", "Keep"))

	before, after, err := s.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if before <= 0 || after <= 0 {
		t.Errorf("sizes before=%d after=%d, want both positive", before, after)
	}
	sp, found, err := s.GetProduct(1, "B000KEEP01")
	if err != nil || !found {
		t.Fatalf("GetProduct after Compact: found=%v err=%v", found, err)
	}
	if sp.Product.Title != "Keep" {
		t.Errorf("Title = %q, want Keep", sp.Product.Title)
	}
}

func TestCompactFailedSwapKeepsStoreOpen(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(1, makeProduct("B000KEEP01", "Keep"))

	restore := store.SetRenameFile(func(string, string) error { return errors.New("device busy") })
	defer restore()

	if _, _, err := s.Compact(); err == nil {
		t.Fatal("expected Compact to report the failed swap")
	}
	sp, found, err := s.GetProduct(1, "B000KEEP01")
	if err != nil || !found {
		t.Fatalf("GetProduct after failed Compact: found=%v err=%v", found, err)
	}
	if sp.Product.Title != "Keep" {
		t.Errorf("Title = %q, want Keep", sp.Product.Title)
	}
	if err := s.PutProduct(1, makeProduct("B000KEEP02", "Later")); err != nil {
		t.Errorf("PutProduct after failed Compact: %v", err)
	}
}

// ─── Isolation ────────────────────────────────────────────────────────────────

func TestEachTestGetsIsolatedDB(t *testing.T) {
	s1 := testDB(t)
	_ = s1.PutProduct(1, makeProduct("B000TEST01", "One"))

	s2 := testDB(t)
	_, found, err := s2.GetProduct(1, "B000TEST01")
	if err != nil {
		t.Fatalf("GetProduct on s2: %v", err)
	}
	if found {
		t.Error("s2 should not see data written to s1")
	}
}
