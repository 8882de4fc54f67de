// Package pipeline reads and writes the stdin/stdout formats sellerscope
// commands chain through: raw Keepa product JSON in, graph JSONL (one
// GraphSet per line) between commands.
package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// maxLine bounds one JSONL record. A year of daily points across six series
// stays well under this.
const maxLine = 16 * 1024 * 1024

// ReadProducts decodes Keepa products from r. The input is a sequence of
// JSON values, pretty-printed or one per line; each value may be a product
// object, an array of products, or a Keepa response with a "products" list.
func ReadProducts(r io.Reader) ([]model.Product, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var out []model.Product
	for n := 1; ; n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("value %d: invalid JSON: %w", n, err)
		}
		ps, err := decodeProducts(raw)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", n, err)
		}
		out = append(out, ps...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no products read from input (is stdin empty?)")
	}
	return out, nil
}

func decodeProducts(raw json.RawMessage) ([]model.Product, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var ps []model.Product
		if err := json.Unmarshal(trimmed, &ps); err != nil {
			return nil, err
		}
		return ps, nil
	case '{':
		var env struct {
			Products []model.Product `json:"products"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		if env.Products != nil {
			return env.Products, nil
		}
		var p model.Product
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, err
		}
		if p.ASIN == "" {
			return nil, fmt.Errorf("object is neither a product nor a product response")
		}
		return []model.Product{p}, nil
	default:
		return nil, fmt.Errorf("expected an object or array, got %q", string(trimmed[:1]))
	}
}

// WriteGraphs writes graphs as JSONL, one GraphSet per line.
func WriteGraphs(w io.Writer, graphs []model.GraphSet) error {
	enc := json.NewEncoder(w)
	for i := range graphs {
		if err := enc.Encode(&graphs[i]); err != nil {
			return fmt.Errorf("encoding graph %s: %w", graphs[i].ASIN, err)
		}
	}
	return nil
}

// ReadGraphs reads graph JSONL written by WriteGraphs. Blank lines and
// lines starting with // are skipped.
func ReadGraphs(r io.Reader) ([]model.GraphSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var out []model.GraphSet
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var g model.GraphSet
		if err := json.Unmarshal([]byte(line), &g); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if len(g.Keys) == 0 {
			return nil, fmt.Errorf("line %d: graph has no keys (is this graph JSONL?)", lineNum)
		}
		out = append(out, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no graphs read from input (is stdin empty?)")
	}
	return out, nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StdinIsPiped reports whether stdin is a pipe or file rather than a
// terminal.
func StdinIsPiped() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
