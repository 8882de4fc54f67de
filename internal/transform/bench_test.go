package transform_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/pipeline"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// Benchmarks run on synthetic histories shaped like a busy listing: hourly
// rank updates, price changes every few hours, three years deep.
//
//	go test ./internal/transform/ -bench=. -benchmem -count=10

// ─── Fixtures ─────────────────────────────────────────────────────────────────

var benchNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func syntheticSources(days int) map[string]model.RawSeries {
	start := transform.MillisToKeepaMinute(benchNow.AddDate(0, 0, -days).UnixMilli())
	end := transform.MillisToKeepaMinute(benchNow.UnixMilli())

	var buyBox, amazon, rank, offers model.RawSeries
	for m, i := start, int64(0); m < end; m, i = m+60, i+1 {
		rank = append(rank, m, 1000+(i*37)%4000)
		if i%4 == 0 {
			price := 1999 + (i*13)%500
			if i%97 == 0 {
				price = -1
			}
			buyBox = append(buyBox, m, price, 0)
			amazon = append(amazon, m, price+100)
		}
		if i%24 == 0 {
			offers = append(offers, m, 3+i%9)
		}
	}
	return map[string]model.RawSeries{
		model.SourceBuyBox:     buyBox,
		model.SourceAmazon:     amazon,
		model.SourceSalesRank:  rank,
		model.SourceOfferCount: offers,
	}
}

// ─── Assemble ─────────────────────────────────────────────────────────────────

func benchmarkAssemble(b *testing.B, window int) {
	sources := syntheticSources(3 * 365)
	opts := transform.Options{Window: transform.Window{Days: window, Now: benchNow}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g := transform.Assemble(transform.KeepaGraphName, sources, transform.KeepaSeries, opts)
		if len(g.Points) == 0 {
			b.Fatal("empty graph")
		}
	}
}

func BenchmarkAssemble_90Days(b *testing.B)  { benchmarkAssemble(b, 90) }
func BenchmarkAssemble_365Days(b *testing.B) { benchmarkAssemble(b, 365) }
func BenchmarkAssemble_All(b *testing.B)     { benchmarkAssemble(b, 0) }

func BenchmarkDecode_SalesRank(b *testing.B) {
	raw := syntheticSources(3 * 365)[model.SourceSalesRank]
	cfg := transform.KeepaSeries[2]
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		transform.Decode(raw, cfg)
	}
}

// ─── JSONL pipeline round-trip ────────────────────────────────────────────────
// WriteGraphs → ReadGraphs: the hop between 'graph get --format jsonl' and
// every chart command.

func BenchmarkGraphJSONLRoundTrip(b *testing.B) {
	g := transform.Assemble(transform.KeepaGraphName, syntheticSources(365), transform.KeepaSeries,
		transform.Options{Window: transform.Window{Days: 365, Now: benchNow}})
	g.ASIN = "B000BENCH1"
	graphs := []model.GraphSet{g}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := pipeline.WriteGraphs(&buf, graphs); err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(buf.Len()))
		if _, err := pipeline.ReadGraphs(&buf); err != nil {
			b.Fatal(err)
		}
	}
}
