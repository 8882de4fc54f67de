// Package store provides a thin bbolt wrapper for sellerscope's local data
// store.
//
// The store is an explicit accumulator, not a transparent HTTP cache:
// products are written when a command is asked to keep them (--store,
// --save) and read back by --offline commands. No TTL, no auto-invalidation.
//
// Buckets:
//
//	products: raw Keepa product payloads keyed by domain and ASIN
//	graphs:   saved graph snapshots keyed by UUID
//	_meta:    internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketProducts = []byte("products")
	bucketGraphs   = []byte("graphs")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"products", "graphs"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProducts, bucketGraphs, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(strconv.Itoa(schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Products ─────────────────────────────────────────────────────────────────

// ProductKey builds the canonical key for a stored product.
// Format: d<domain>:<ASIN>
func ProductKey(domain int, asin string) string {
	return "d" + strconv.Itoa(domain) + ":" + strings.ToUpper(asin)
}

// StoredProduct is the on-disk envelope for a product payload.
type StoredProduct struct {
	Domain    int           `json:"domain"`
	FetchedAt time.Time     `json:"fetched_at"`
	Product   model.Product `json:"product"`
}

// ProductInfo is the listing view of a stored product.
type ProductInfo struct {
	ASIN      string    `json:"asin"`
	Domain    int       `json:"domain"`
	Title     string    `json:"title"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PutProduct stores a product payload, stamping FetchedAt.
func (s *Store) PutProduct(domain int, p model.Product) error {
	if p.ASIN == "" {
		return fmt.Errorf("storing product: empty ASIN")
	}
	b, err := json.Marshal(StoredProduct{Domain: domain, FetchedAt: time.Now().UTC(), Product: p})
	if err != nil {
		return fmt.Errorf("encoding product %s: %w", p.ASIN, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).Put([]byte(ProductKey(domain, p.ASIN)), b)
	})
}

// GetProduct retrieves a stored product.
// Returns (product, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetProduct(domain int, asin string) (StoredProduct, bool, error) {
	var sp StoredProduct
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketProducts).Get([]byte(ProductKey(domain, asin)))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &sp)
	})
	if err != nil {
		return StoredProduct{}, false, fmt.Errorf("reading product %s: %w", asin, err)
	}
	return sp, found, nil
}

// ListProducts returns every stored product for domain, sorted by key.
// Pass domain=0 to list all domains.
func (s *Store) ListProducts(domain int) ([]ProductInfo, error) {
	prefix := []byte("d")
	if domain > 0 {
		prefix = []byte("d" + strconv.Itoa(domain) + ":")
	}
	var out []ProductInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketProducts).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var sp StoredProduct
			if err := json.Unmarshal(v, &sp); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			out = append(out, ProductInfo{
				ASIN:      sp.Product.ASIN,
				Domain:    sp.Domain,
				Title:     sp.Product.Title,
				FetchedAt: sp.FetchedAt,
			})
		}
		return nil
	})
	return out, err
}

// ─── Graphs ───────────────────────────────────────────────────────────────────

// GraphInfo is the listing view of a saved graph.
type GraphInfo struct {
	ID        string    `json:"id"`
	ASIN      string    `json:"asin"`
	Name      string    `json:"name"`
	Days      int       `json:"days"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// PutGraph saves a graph snapshot under a new UUID and returns the ID.
// CreatedAt is stamped when unset.
func (s *Store) PutGraph(g model.GraphSet) (string, error) {
	g.ID = uuid.NewString()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encoding graph: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGraphs).Put([]byte(g.ID), b)
	})
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

// GetGraph retrieves a saved graph by ID.
func (s *Store) GetGraph(id string) (model.GraphSet, bool, error) {
	var g model.GraphSet
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketGraphs).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &g)
	})
	if err != nil {
		return model.GraphSet{}, false, fmt.Errorf("reading graph %s: %w", id, err)
	}
	return g, found, nil
}

// ListGraphs returns every saved graph, oldest first.
func (s *Store) ListGraphs() ([]GraphInfo, error) {
	var out []GraphInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGraphs).ForEach(func(k, v []byte) error {
			var g model.GraphSet
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("decoding graph %s: %w", k, err)
			}
			out = append(out, GraphInfo{
				ID:        g.ID,
				ASIN:      g.ASIN,
				Name:      g.Name,
				Days:      g.Days,
				Points:    len(g.Points),
				CreatedAt: g.CreatedAt,
			})
			return nil
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// DeleteGraph removes a saved graph. It reports whether the graph existed.
func (s *Store) DeleteGraph(id string) (bool, error) {
	existed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGraphs)
		if b.Get([]byte(id)) == nil {
			return nil
		}
		existed = true
		return b.Delete([]byte(id))
	})
	return existed, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all user-facing
// buckets, in AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			_ = b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}

// ─── Compaction ───────────────────────────────────────────────────────────────

// renameFile is replaced in tests to simulate a failed swap.
var renameFile = os.Rename

// Compact rewrites the database into a fresh file and swaps it in place,
// returning the file sizes before and after. The Store stays usable.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	before = fi.Size()

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", tmp, err)
	}
	if err := bolt.Compact(dst, s.db, 64<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return 0, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return 0, 0, err
	}
	swapErr := renameFile(tmp, path)
	if swapErr != nil {
		os.Remove(tmp)
	}

	// Reopen whichever file now sits at path so the Store stays usable.
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("reopening %s: %w", path, err)
	}
	s.db = db
	if swapErr != nil {
		return 0, 0, fmt.Errorf("replacing %s: %w", path, swapErr)
	}

	if fi, err := os.Stat(path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}
