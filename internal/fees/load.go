package fees

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/sellerscope/internal/util"
)

// ─── YAML Document ────────────────────────────────────────────────────────────

// Document is the YAML form of a Table. Amounts are plain numbers; Build
// converts them to decimals and validates the schedule.
type Document struct {
	ShippingPerLb float64              `yaml:"shipping_per_lb"`
	WeeksPerMonth float64              `yaml:"weeks_per_month"`
	Placement     []ClassDoc           `yaml:"placement"`
	WeekBrackets  []WeekBracketDoc     `yaml:"week_brackets"`
	Storage       map[string]SeasonDoc `yaml:"storage"`
}

type ClassDoc struct {
	Name       string       `yaml:"name"`
	EnvelopeIn []float64    `yaml:"envelope_in"`
	MaxOz      float64      `yaml:"max_oz"`
	Brackets   []BracketDoc `yaml:"brackets"`
}

// BracketDoc is one weight bracket. Its lower bound is the previous
// bracket's upper bound. Missing partial/optimized amounts are 0.
type BracketDoc struct {
	Label     string   `yaml:"label"`
	UpToOz    float64  `yaml:"up_to_oz"`
	Minimal   float64  `yaml:"minimal"`
	Partial   *float64 `yaml:"partial,omitempty"`
	Optimized *float64 `yaml:"optimized,omitempty"`
}

type WeekBracketDoc struct {
	Label    string  `yaml:"label"`
	MaxWeeks float64 `yaml:"max_weeks,omitempty"`
}

type RateDoc struct {
	Base      float64 `yaml:"base"`
	Surcharge float64 `yaml:"surcharge"`
}

type DangerousDoc struct {
	Standard float64 `yaml:"standard"`
	Oversize float64 `yaml:"oversize"`
}

type SeasonDoc struct {
	Standard  []RateDoc    `yaml:"standard"`
	Oversize  []RateDoc    `yaml:"oversize"`
	Dangerous DangerousDoc `yaml:"dangerous"`
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadTable reads a YAML override from path. Keys present in the file
// replace the built-in values; absent keys keep them. An empty path returns
// the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee table: %w", err)
	}
	doc := DefaultDocument()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fee table yaml: %w", err)
	}
	if err := overlaySeasons(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fee table yaml: %w", err)
	}
	t, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("validate fee table %s: %w", path, err)
	}
	return t, nil
}

// overlaySeasons re-decodes each storage season named in data on top of the
// built-in season, so a file may override a single rate within a season.
// yaml.v3 decodes map values into fresh zero values, which would drop the
// season's other rates.
func overlaySeasons(data []byte, doc *Document) error {
	var raw struct {
		Storage map[string]yaml.Node `yaml:"storage"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	defaults := DefaultDocument().Storage
	for name, node := range raw.Storage {
		sd := defaults[name]
		if err := node.Decode(&sd); err != nil {
			return fmt.Errorf("storage %s: %w", name, err)
		}
		doc.Storage[name] = sd
	}
	return nil
}

// WriteDocument encodes doc as YAML, e.g. to produce an editable template.
func WriteDocument(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode fee table: %w", err)
	}
	return enc.Close()
}

// Build validates the document and converts it into a Table. Every problem
// found is reported, not just the first.
func (doc Document) Build() (*Table, error) {
	var errs util.MultiError

	if doc.ShippingPerLb < 0 {
		errs.Addf("shipping_per_lb must not be negative")
	}
	if doc.WeeksPerMonth <= 0 {
		errs.Addf("weeks_per_month must be positive")
	}
	if len(doc.Placement) == 0 {
		errs.Addf("placement: at least one class is required")
	}

	t := &Table{
		ShippingPerLb: decimal.NewFromFloat(doc.ShippingPerLb),
		WeeksPerMonth: doc.WeeksPerMonth,
		Storage:       make(map[Season]SeasonRates),
	}

	for _, cd := range doc.Placement {
		c, err := cd.build()
		if err != nil {
			errs.Add(fmt.Errorf("placement %s: %w", cd.Name, err))
			continue
		}
		t.Placement = append(t.Placement, c)
	}

	if len(doc.WeekBrackets) == 0 {
		errs.Addf("week_brackets: at least one bracket is required")
	}
	prev := 0.0
	for i, wb := range doc.WeekBrackets {
		last := i == len(doc.WeekBrackets)-1
		switch {
		case wb.MaxWeeks == 0 && !last:
			errs.Addf("week_brackets %s: only the last bracket may be unbounded", wb.Label)
		case wb.MaxWeeks != 0 && wb.MaxWeeks <= prev:
			errs.Addf("week_brackets %s: max_weeks must increase", wb.Label)
		}
		prev = wb.MaxWeeks
		t.WeekBrackets = append(t.WeekBrackets, WeekBracket{Label: wb.Label, MaxWeeks: wb.MaxWeeks})
	}

	for _, season := range []Season{OffPeak, Peak} {
		sd, ok := doc.Storage[string(season)]
		if !ok {
			errs.Addf("storage: missing season %s", season)
			continue
		}
		sr := SeasonRates{
			Tiers: map[TierClass][]StorageRate{
				TierStandard: toRates(sd.Standard),
				TierOversize: toRates(sd.Oversize),
			},
			Dangerous: map[TierClass]decimal.Decimal{
				TierStandard: decimal.NewFromFloat(sd.Dangerous.Standard),
				TierOversize: decimal.NewFromFloat(sd.Dangerous.Oversize),
			},
		}
		for class, rs := range sr.Tiers {
			if len(rs) != len(doc.WeekBrackets) {
				errs.Addf("storage %s %s: %d rates for %d week brackets", season, class, len(rs), len(doc.WeekBrackets))
			}
		}
		t.Storage[season] = sr
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (cd ClassDoc) build() (PlacementClass, error) {
	if len(cd.EnvelopeIn) != 3 {
		return PlacementClass{}, fmt.Errorf("envelope_in needs 3 sides, got %d", len(cd.EnvelopeIn))
	}
	if len(cd.Brackets) == 0 {
		return PlacementClass{}, fmt.Errorf("at least one bracket is required")
	}
	env := Dimensions{LengthMM: cd.EnvelopeIn[0], WidthMM: cd.EnvelopeIn[1], HeightMM: cd.EnvelopeIn[2]}.sortedRaw()
	c := PlacementClass{Name: cd.Name, Envelope: env, MaxOz: cd.MaxOz}

	lower := 0.0
	for _, bd := range cd.Brackets {
		if bd.UpToOz <= lower {
			return PlacementClass{}, fmt.Errorf("bracket %q: up_to_oz %g must exceed %g", bd.Label, bd.UpToOz, lower)
		}
		c.Brackets = append(c.Brackets, Bracket{
			Label:     bd.Label,
			AboveOz:   lower,
			UpToOz:    bd.UpToOz,
			Minimal:   decimal.NewFromFloat(bd.Minimal),
			Partial:   optional(bd.Partial),
			Optimized: optional(bd.Optimized),
		})
		lower = bd.UpToOz
	}
	return c, nil
}

// sortedRaw returns the three sides as given, longest first, without unit
// conversion.
func (d Dimensions) sortedRaw() [3]float64 {
	s := [3]float64{d.LengthMM, d.WidthMM, d.HeightMM}
	if s[0] < s[1] {
		s[0], s[1] = s[1], s[0]
	}
	if s[1] < s[2] {
		s[1], s[2] = s[2], s[1]
	}
	if s[0] < s[1] {
		s[0], s[1] = s[1], s[0]
	}
	return s
}

func toRates(docs []RateDoc) []StorageRate {
	out := make([]StorageRate, len(docs))
	for i, r := range docs {
		out[i] = StorageRate{Base: decimal.NewFromFloat(r.Base), Surcharge: decimal.NewFromFloat(r.Surcharge)}
	}
	return out
}

func optional(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// Document converts t back into its YAML form.
func (t *Table) Document() Document {
	doc := Document{
		ShippingPerLb: t.ShippingPerLb.InexactFloat64(),
		WeeksPerMonth: t.WeeksPerMonth,
		Storage:       make(map[string]SeasonDoc, len(t.Storage)),
	}
	for _, c := range t.Placement {
		c := c
		cd := ClassDoc{Name: c.Name, EnvelopeIn: c.Envelope[:], MaxOz: c.MaxOz}
		for _, b := range c.Brackets {
			cd.Brackets = append(cd.Brackets, BracketDoc{
				Label:     b.Label,
				UpToOz:    b.UpToOz,
				Minimal:   b.Minimal.InexactFloat64(),
				Partial:   nonZero(b.Partial),
				Optimized: nonZero(b.Optimized),
			})
		}
		doc.Placement = append(doc.Placement, cd)
	}
	for _, wb := range t.WeekBrackets {
		doc.WeekBrackets = append(doc.WeekBrackets, WeekBracketDoc{Label: wb.Label, MaxWeeks: wb.MaxWeeks})
	}
	for season, sr := range t.Storage {
		doc.Storage[string(season)] = SeasonDoc{
			Standard: fromRates(sr.Tiers[TierStandard]),
			Oversize: fromRates(sr.Tiers[TierOversize]),
			Dangerous: DangerousDoc{
				Standard: sr.Dangerous[TierStandard].InexactFloat64(),
				Oversize: sr.Dangerous[TierOversize].InexactFloat64(),
			},
		}
	}
	return doc
}

func fromRates(rs []StorageRate) []RateDoc {
	out := make([]RateDoc, len(rs))
	for i, r := range rs {
		out[i] = RateDoc{Base: r.Base.InexactFloat64(), Surcharge: r.Surcharge.InexactFloat64()}
	}
	return out
}

func nonZero(d decimal.Decimal) *float64 {
	if d.IsZero() {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
