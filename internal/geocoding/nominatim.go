// Package geocoding resolves addresses and coordinates through the
// OpenStreetMap Nominatim API.
//
// Nominatim's usage policy allows at most one request per second and
// requires an identifying User-Agent, so every call goes through a shared
// limiter and results are cached.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/choplife/choplifeib/internal/cache"
	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/logging"
)

var (
	ErrNoResult           = errors.New("no location found")
	ErrInvalidCoordinates = errors.New("latitude must be within ±90 and longitude within ±180")
	ErrQueryTooShort      = errors.New("search query must be at least 3 characters")
)

const (
	minSearchLength = 3
	maxSearchLimit  = 10
)

// Location is a reverse-geocoded point.
type Location struct {
	DisplayName string  `json:"display_name"`
	Area        string  `json:"area"`
	City        string  `json:"city"`
	State       string  `json:"state,omitempty"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Candidate is one forward-search hit.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Area        string  `json:"area,omitempty"`
	City        string  `json:"city,omitempty"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type nominatimAddress struct {
	Amenity       string `json:"amenity"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Quarter       string `json:"quarter"`
	Suburb        string `json:"suburb"`
	CityDistrict  string `json:"city_district"`
	Village       string `json:"village"`
	Town          string `json:"town"`
	City          string `json:"city"`
	County        string `json:"county"`
	State         string `json:"state"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}

type nominatimPlace struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Category    string           `json:"category"`
	Type        string           `json:"type"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

func (a nominatimAddress) city() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.County, a.State} {
		if v != "" {
			return v
		}
	}
	return ""
}

// area picks the most specific neighbourhood-level name, falling back to
// the display name segment just before the city.
func (p *nominatimPlace) area() string {
	a := p.Address
	for _, v := range []string{a.Neighbourhood, a.Quarter, a.Suburb, a.CityDistrict, a.Village} {
		if v != "" {
			return v
		}
	}
	parts := strings.Split(p.DisplayName, ",")
	city := a.city()
	for i := len(parts) - 1; i > 0; i-- {
		if strings.TrimSpace(parts[i]) == city {
			return strings.TrimSpace(parts[i-1])
		}
	}
	return strings.TrimSpace(parts[0])
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

// wait blocks until the next call is allowed or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// Client is a cache-through Nominatim client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	email       string
	viewBox     string
	countryCode string
	limiter     *rateLimiter
	cache       cache.Cache
	reverseTTL  time.Duration
	searchTTL   time.Duration
}

// NewClient builds a client from config. A nil cache disables caching.
func NewClient(cfg config.Geocoding, c cache.Cache) *Client {
	interval := cfg.RateLimit
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		email:       cfg.Email,
		viewBox:     cfg.ViewBox,
		countryCode: cfg.CountryCode,
		limiter:     &rateLimiter{interval: interval},
		cache:       c,
		reverseTTL:  cfg.ReverseTTL,
		searchTTL:   cfg.SearchTTL,
	}
}

// ReverseGeocode returns the address at a coordinate.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	// ~1m precision keeps nearby lookups on the same cache entry
	key := fmt.Sprintf("geo:rev:%.5f,%.5f", lat, lon)
	var cached Location
	if c.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("zoom", "18")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", params, &place); err != nil {
		return nil, err
	}
	if place.Error != "" || place.DisplayName == "" {
		return nil, ErrNoResult
	}

	loc := &Location{
		DisplayName: place.DisplayName,
		Area:        place.area(),
		City:        place.Address.city(),
		State:       place.Address.State,
		Country:     place.Address.Country,
		CountryCode: place.Address.CountryCode,
		Latitude:    parseCoord(place.Lat, lat),
		Longitude:   parseCoord(place.Lon, lon),
	}
	c.toCache(ctx, key, loc, c.reverseTTL)
	return loc, nil
}

// Search returns up to limit candidates for a free-text query, biased to
// the configured viewbox and country.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	query = strings.Join(strings.Fields(query), " ")
	if len([]rune(query)) < minSearchLength {
		return nil, ErrQueryTooShort
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = 5
	}

	key := fmt.Sprintf("geo:search:%d:%s", limit, strings.ToLower(query))
	var cached []Candidate
	if c.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	if c.viewBox != "" {
		params.Set("viewbox", c.viewBox)
		params.Set("bounded", "0")
	}
	if c.countryCode != "" {
		params.Set("countrycodes", c.countryCode)
	}

	var places []nominatimPlace
	if err := c.get(ctx, "/search", params, &places); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(places))
	for i := range places {
		p := &places[i]
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			DisplayName: p.DisplayName,
			Area:        p.area(),
			City:        p.Address.city(),
			Category:    p.Category,
			Type:        p.Type,
			Latitude:    lat,
			Longitude:   lon,
		})
	}

	c.toCache(ctx, key, candidates, c.searchTTL)
	return candidates, nil
}

// Geocode resolves an address to its best match.
func (c *Client) Geocode(ctx context.Context, address string) (*Candidate, error) {
	candidates, err := c.Search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoResult
	}
	return &candidates[0], nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	if c.email != "" {
		params.Set("email", c.email)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")

	logging.Component("geocoding").Debug().Str("path", path).Msg("nominatim request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fromCache(ctx context.Context, key string, dest any) bool {
	if c.cache == nil {
		return false
	}
	err := cache.GetJSON(ctx, c.cache, key, dest)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		logging.Component("geocoding").Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	return err == nil
}

func (c *Client) toCache(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, c.cache, key, value, ttl); err != nil {
		logging.Component("geocoding").Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func parseCoord(s string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return fallback
}
