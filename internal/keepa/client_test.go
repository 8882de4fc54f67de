package keepa_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/keepa"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// newTestClient starts a server running handler and returns a client aimed
// at it with a generous rate limit.
func newTestClient(t *testing.T, handler http.HandlerFunc) *keepa.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return keepa.NewClient("test-key", srv.URL, 1, 5*time.Second, 100, false)
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

const productBody = `{
  "tokensLeft": 1200,
  "products": [{
    "asin": "B000TEST01",
    "title": "Test Widget",
    "brand": "Acme",
    "csv": [[100, 1999, 200, -1], null, null, [100, 5000]],
    "packageLength": 300, "packageWidth": 200, "packageHeight": 100, "packageWeight": 2000
  }]
}`

// ─── Products ─────────────────────────────────────────────────────────────────

func TestGetProduct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("domain") != "1" || q.Get("asin") != "B000TEST01" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("stats") != "90" || q.Get("buybox") != "1" {
			t.Errorf("product options missing: %s", r.URL.RawQuery)
		}
		respond(w, http.StatusOK, productBody)
	})

	p, err := c.GetProduct(context.Background(), "B000TEST01", keepa.ProductData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Test Widget" || p.PackageWeight != 2000 {
		t.Errorf("unexpected product: %+v", p)
	}
	if len(p.CSV) != 4 || p.CSV[1] != nil || len(p.CSV[0]) != 4 {
		t.Errorf("csv not decoded as expected: %v", p.CSV)
	}
	if c.TokensLeft() != 1200 {
		t.Errorf("TokensLeft: expected 1200, got %d", c.TokensLeft())
	}
}

func TestGetProductNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"tokensLeft": 5, "products": [{"asin": "B000MISSIN"}]}`)
	})
	_, err := c.GetProduct(context.Background(), "B000MISSIN", keepa.ProductData)
	if !errors.Is(err, keepa.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProductsOfferOptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("offers") != "20" || q.Get("only-live-offers") != "1" || q.Get("stock") != "1" {
			t.Errorf("offer options missing: %s", r.URL.RawQuery)
		}
		if q.Get("asin") != "B000TEST01,B000TEST02" {
			t.Errorf("asin: got %s", q.Get("asin"))
		}
		respond(w, http.StatusOK, `{"products": [{"asin": "B000TEST01"}, {"asin": "B000TEST02"}]}`)
	})
	got, err := c.GetProducts(context.Background(), []string{"B000TEST01", "B000TEST02"}, keepa.OfferData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 products, got %d", len(got))
	}
	if c.TokensLeft() != -1 {
		t.Errorf("TokensLeft should stay unknown when not reported, got %d", c.TokensLeft())
	}
}

// ─── Errors and retries ───────────────────────────────────────────────────────

func TestAPIErrorInBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"error": {"type": "invalidKey", "message": "Invalid API key"}}`)
	})
	_, err := c.GetProduct(context.Background(), "B000TEST01", keepa.ProductData)
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		respond(w, http.StatusBadRequest, `{"error": ["bad parameter"]}`)
	})
	_, err := c.Search(context.Background(), "widget", 0)
	if err == nil || !strings.Contains(err.Error(), "bad parameter") {
		t.Errorf("expected error message, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("4xx should not be retried, got %d requests", hits.Load())
	}
}

func TestServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			respond(w, http.StatusServiceUnavailable, "busy")
			return
		}
		respond(w, http.StatusOK, `{"asinList": ["B000TEST01"]}`)
	})
	res, err := c.Search(context.Background(), "widget", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected one retry, got %d requests", hits.Load())
	}
	if len(res.ASINs) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Search(ctx, "widget", 0); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSharedRequestSurvivesCancelledCaller(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
			select {
			case <-release:
			case <-time.After(5 * time.Second):
			}
		}
		respond(w, http.StatusOK, `{"asinList": ["B000TEST01"]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Search(ctx, "widget", 0)
		firstErr <- err
	}()
	<-entered

	secondErr := make(chan error, 1)
	go func() {
		res, err := c.Search(context.Background(), "widget", 0)
		if err == nil && len(res.ASINs) != 1 {
			err = fmt.Errorf("unexpected result: %+v", res)
		}
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller: got %v, want context.Canceled", err)
	}
	close(release)
	if err := <-secondErr; err != nil {
		t.Errorf("second caller should not inherit the cancellation: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected one shared round trip, got %d", n)
	}
}

// ─── Search / Query ───────────────────────────────────────────────────────────

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("term") != "usb cable" || q.Get("page") != "2" || q.Get("asins-only") != "1" {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.URL.RawQuery)
		}
		respond(w, http.StatusOK, `{"asinList": ["B000TEST01", "B000TEST02"]}`)
	})
	res, err := c.Search(context.Background(), "usb cable", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Query != "usb cable" || res.Page != 2 || len(res.ASINs) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestQuery(t *testing.T) {
	selection := `{"current_SALES_gte": 1, "current_SALES_lte": 5000}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" || r.URL.Query().Get("selection") != selection {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.URL.RawQuery)
		}
		respond(w, http.StatusOK, `{"asinList": ["B000TEST03"]}`)
	})
	res, err := c.Query(context.Background(), selection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.ASINs) != 1 || res.ASINs[0] != "B000TEST03" {
		t.Errorf("unexpected result: %+v", res)
	}
}

// ─── Sellers / Categories ─────────────────────────────────────────────────────

func TestGetSeller(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/seller" || q.Get("seller") != "A1SELLER" || q.Get("storefront") != "1" {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.URL.RawQuery)
		}
		respond(w, http.StatusOK, `{"sellers": {"A1SELLER": {
			"sellerId": "A1SELLER", "sellerName": "Acme Store", "currentRating": 96,
			"totalStorefrontAsins": [100, 40, 200, 42]
		}}}`)
	})
	s, err := c.GetSeller(context.Background(), "A1SELLER", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SellerName != "Acme Store" || s.CurrentRating != 96 || len(s.TotalStorefrontAsins) != 4 {
		t.Errorf("unexpected seller: %+v", s)
	}
}

func TestGetSellerNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"sellers": {}}`)
	})
	if _, err := c.GetSeller(context.Background(), "NOPE", false); !errors.Is(err, keepa.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") != "172282,281407" {
			t.Errorf("category: got %s", r.URL.Query().Get("category"))
		}
		respond(w, http.StatusOK, `{"categories": {
			"172282": {"catId": 172282, "name": "Electronics"},
			"281407": {"name": "Accessories & Supplies", "parent": 172282}
		}}`)
	})
	cats, err := c.GetCategories(context.Background(), []int64{172282, 281407})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cats[172282].Name != "Electronics" {
		t.Errorf("unexpected category: %+v", cats[172282])
	}
	if cats[281407].CatID != 281407 || cats[281407].Parent != 172282 {
		t.Errorf("catId should default to the map key: %+v", cats[281407])
	}
}
