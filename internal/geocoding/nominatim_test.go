package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
)

const reverseBody = `{
	"display_name": "Bodija Market, Bodija, Ibadan North, Ibadan, Oyo State, Nigeria",
	"lat": "7.4352", "lon": "3.9120",
	"address": {"neighbourhood": "Bodija", "city": "Ibadan", "state": "Oyo State", "country": "Nigeria", "country_code": "ng"}
}`

const searchBody = `[
	{"display_name": "Cocoa House, Dugbe, Ibadan, Nigeria", "lat": "7.3878", "lon": "3.8962",
	 "category": "building", "type": "commercial", "address": {"suburb": "Dugbe", "city": "Ibadan"}},
	{"display_name": "Broken", "lat": "n/a", "lon": "3.1"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.Geocoding{
		BaseURL:     srv.URL,
		UserAgent:   "ChopLifeIB-test/1.0",
		RateLimit:   time.Millisecond,
		ReverseTTL:  time.Hour,
		SearchTTL:   time.Hour,
		ViewBox:     "3.75,7.55,4.05,7.25",
		CountryCode: "ng",
	}, cache.NewMemory())
	return client, &calls
}

func TestClient_ReverseGeocode(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "ChopLifeIB-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "7.435200", r.URL.Query().Get("lat"))
		w.Write([]byte(reverseBody))
	})

	loc, err := client.ReverseGeocode(context.Background(), 7.4352, 3.9120)
	require.NoError(t, err)
	assert.Equal(t, "Bodija", loc.Area)
	assert.Equal(t, "Ibadan", loc.City)
	assert.Equal(t, "ng", loc.CountryCode)
	assert.InDelta(t, 7.4352, loc.Latitude, 1e-6)

	_, err = client.ReverseGeocode(context.Background(), 7.4352, 3.9120)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "second lookup should hit the cache")
}

func TestClient_ReverseGeocodeNoResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	_, err := client.ReverseGeocode(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestClient_ReverseGeocodeValidatesInput(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.ReverseGeocode(context.Background(), 91, 3)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestClient_Search(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "cocoa house", q.Get("q"))
		assert.Equal(t, "3.75,7.55,4.05,7.25", q.Get("viewbox"))
		assert.Equal(t, "ng", q.Get("countrycodes"))
		w.Write([]byte(searchBody))
	})

	results, err := client.Search(context.Background(), "  cocoa   house ", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dugbe", results[0].Area)
	assert.Equal(t, "commercial", results[0].Type)

	_, err = client.Search(context.Background(), "Cocoa House", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_SearchTooShort(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.Search(context.Background(), "ib", 5)
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestClient_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Geocode(context.Background(), "Ring Road, Ibadan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_GeocodeNoMatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Geocode(context.Background(), "Nowhere at all")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRateLimiter_SpacesCalls(t *testing.T) {
	rl := &rateLimiter{interval: 50 * time.Millisecond}
	start := time.Now()
	require.NoError(t, rl.wait(context.Background()))
	require.NoError(t, rl.wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_RespectsContext(t *testing.T) {
	rl := &rateLimiter{interval: time.Hour}
	require.NoError(t, rl.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.wait(ctx), context.DeadlineExceeded)
}
