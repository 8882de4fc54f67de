// Package transform implements the pure pipeline that turns Keepa's compact
// history arrays into chartable series: decode, merge, forward fill, clamp
// to a trailing day window, and prune. Every operator takes values and
// returns new values; no side effects, no I/O, no errors.
package transform

import (
	"github.com/derickschaefer/sellerscope/internal/model"
)

const (
	// EpochAnchorMinutes is the Keepa time origin: Keepa minute 0 is this many
	// minutes after the Unix epoch (2011-01-01T00:00:00Z).
	EpochAnchorMinutes int64 = 21_564_000

	// PriceDivisor converts Keepa's integer cents into currency units.
	PriceDivisor = 100.0

	minuteMs = 60_000
)

// ─── Time conversion ──────────────────────────────────────────────────────────

// KeepaMinuteToMillis converts a Keepa minute into Unix milliseconds.
func KeepaMinuteToMillis(m int64) int64 {
	return (EpochAnchorMinutes + m) * minuteMs
}

// MillisToKeepaMinute converts Unix milliseconds into a Keepa minute,
// truncating sub-minute precision.
func MillisToKeepaMinute(ms int64) int64 {
	return ms/minuteMs - EpochAnchorMinutes
}

// ─── Decode ───────────────────────────────────────────────────────────────────

// isSentinel reports whether v is one of Keepa's "no data" markers:
// -1 (no data) or -2 (unknown / blocked).
func isSentinel(v int64) bool {
	return v == -1 || v == -2
}

// DecodeValue applies cfg's value transform to one raw value.
// ok=false means the value element was absent from the record.
func DecodeValue(v int64, ok bool, cfg model.SeriesConfig) model.Cell {
	if !ok {
		return model.Cell{}
	}
	if isSentinel(v) {
		if cfg.NullPolicy == model.NullAsBreak {
			return model.Gap()
		}
		return model.Cell{}
	}
	switch cfg.Transform {
	case model.TransformPrice:
		return model.Num(float64(v) / PriceDivisor)
	default:
		return model.Num(float64(v))
	}
}

// Decode turns one raw history into a mapping of absolute millisecond
// timestamp → cell. Records are cfg.Width elements wide; the first element is
// the Keepa minute and the second the value. Records with an absent timestamp
// are skipped. A repeated timestamp keeps the last record.
//
// An empty or malformed array, or a width other than 2 or 3, yields an empty
// mapping.
func Decode(raw model.RawSeries, cfg model.SeriesConfig) map[int64]model.Cell {
	out := make(map[int64]model.Cell)
	if cfg.Width != 2 && cfg.Width != 3 {
		return out
	}
	if len(raw) < 2 {
		return out
	}
	for i := 0; i < len(raw); i += cfg.Width {
		t, ok := raw.At(i)
		if !ok {
			continue
		}
		v, vok := raw.At(i + 1)
		out[KeepaMinuteToMillis(t)] = DecodeValue(v, vok, cfg)
	}
	return out
}
