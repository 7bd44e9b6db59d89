package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favipie/FPL-hacker/internal/optimizer"
)

// MockCacheStore implements a simple in-memory cache for testing
type MockCacheStore struct {
	data map[string]interface{}
}

func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{data: make(map[string]interface{})}
}

func (m *MockCacheStore) SetSimple(key string, value interface{}, expiration time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *MockCacheStore) GetSimple(key string, dest interface{}) error {
	val, exists := m.data[key]
	if !exists {
		return redis.Nil
	}

	// Marshal and unmarshal to simulate real cache behavior
	data, _ := json.Marshal(val)
	return json.Unmarshal(data, dest)
}

// MockBreaker passes calls straight through to the wrapped function.
type MockBreaker struct {
	calls int
}

func (m *MockBreaker) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	m.calls++
	return fn()
}

func bootstrapFixture() map[string]interface{} {
	return map[string]interface{}{
		"events": []map[string]interface{}{
			{"id": 6, "name": "Gameweek 6", "is_current": false, "is_next": false, "finished": true},
			{"id": 7, "name": "Gameweek 7", "is_current": true, "is_next": false, "finished": false},
			{"id": 8, "name": "Gameweek 8", "is_current": false, "is_next": true, "finished": false},
		},
		"teams": []map[string]interface{}{
			{"id": 1, "name": "Arsenal", "short_name": "ARS"},
			{"id": 13, "name": "Liverpool", "short_name": "LIV"},
			{"id": 14, "name": "Man City", "short_name": "MCI"},
		},
		"elements": []map[string]interface{}{
			{"id": 1, "web_name": "Raya", "team": 1, "element_type": 1, "now_cost": 56, "status": "a", "news": "", "selected_by_percent": "22.4"},
			{"id": 311, "web_name": "Van Dijk", "team": 13, "element_type": 2, "now_cost": 60, "status": "a", "news": "", "selected_by_percent": "31.0"},
			{"id": 427, "web_name": "M.Salah", "team": 13, "element_type": 3, "now_cost": 131, "status": "a", "news": "", "selected_by_percent": "45.3"},
			{"id": 233, "web_name": "Haaland", "team": 14, "element_type": 4, "now_cost": 150, "status": "d", "news": "Knock - 75% chance of playing", "selected_by_percent": "52.8"},
			{"id": 500, "web_name": "Injured", "team": 1, "element_type": 3, "now_cost": 45, "status": "i", "news": "Hamstring injury", "selected_by_percent": "1.2"},
			{"id": 900, "web_name": "Arteta", "team": 1, "element_type": 5, "now_cost": 10, "status": "a", "news": "", "selected_by_percent": "0.0"},
		},
	}
}

func TestNewFPLClient(t *testing.T) {
	cache := NewMockCacheStore()
	client := NewFPLClient("https://example.test/api", 0, cache, &MockBreaker{}, testLogger())

	require.NotNil(t, client)
	assert.Equal(t, "https://example.test/api", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
}

func TestFPLClient_GetBootstrap(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/bootstrap-static/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		json.NewEncoder(w).Encode(bootstrapFixture())
	}))
	defer server.Close()

	cache := NewMockCacheStore()
	breaker := &MockBreaker{}
	client := NewFPLClient(server.URL, 60, cache, breaker, testLogger())

	bootstrap, err := client.GetBootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, breaker.calls)
	assert.Equal(t, 7, bootstrap.CurrentGameweek)
	require.Len(t, bootstrap.Clubs, 3)
	assert.Equal(t, "ARS", bootstrap.Clubs[0].ShortName)
	assert.Equal(t, "Liverpool", bootstrap.ClubByID[13].Name)

	// The manager row (element_type 5) is dropped, the rest convert.
	require.Len(t, bootstrap.Elements, 5)

	salah := bootstrap.Elements[2]
	assert.Equal(t, 427, salah.ElementID)
	assert.Equal(t, "M.Salah", salah.Name)
	assert.Equal(t, optimizer.CategoryMidfielder, salah.Position)
	assert.Equal(t, "LIV", salah.Club)
	assert.Equal(t, 131, salah.Cost)
	assert.Equal(t, optimizer.AvailabilityAvailable, salah.Availability)
	assert.Equal(t, 45.3, salah.SelectedBy)

	haaland := bootstrap.Elements[3]
	assert.Equal(t, optimizer.AvailabilityUncertain, haaland.Availability)
	assert.Equal(t, "Knock - 75% chance of playing", haaland.News)

	injured := bootstrap.Elements[4]
	assert.Equal(t, optimizer.AvailabilityUnavailable, injured.Availability)
	assert.Equal(t, "i", bootstrap.StatusByElement[500])

	// Verify the snapshot was cached
	var cached Bootstrap
	require.NoError(t, cache.GetSimple("fpl:bootstrap-static", &cached))
	assert.Equal(t, 7, cached.CurrentGameweek)
	assert.Len(t, cached.Elements, 5)
}

func TestFPLClient_GetBootstrap_CacheHit(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(bootstrapFixture())
	}))
	defer server.Close()

	cache := NewMockCacheStore()
	client := NewFPLClient(server.URL, 60, cache, &MockBreaker{}, testLogger())

	first, err := client.GetBootstrap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, requests)

	second, err := client.GetBootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests) // No second API call

	assert.Equal(t, first.CurrentGameweek, second.CurrentGameweek)
	assert.Len(t, second.Elements, 5)

	// The lookup maps are rebuilt after the cache round trip.
	assert.Equal(t, "LIV", second.ClubByID[13].ShortName)
	assert.Equal(t, "a", second.StatusByElement[427])
	assert.Equal(t, "d", second.StatusByElement[233])
	assert.Equal(t, "u", second.StatusByElement[500])
}

func TestFPLClient_GetBootstrap_NextGameweekFallback(t *testing.T) {
	fixture := bootstrapFixture()
	fixture["events"] = []map[string]interface{}{
		{"id": 1, "name": "Gameweek 1", "is_current": false, "is_next": true, "finished": false},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fixture)
	}))
	defer server.Close()

	client := NewFPLClient(server.URL, 60, NewMockCacheStore(), &MockBreaker{}, testLogger())
	bootstrap, err := client.GetBootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, bootstrap.CurrentGameweek)
}

func TestFPLClient_GetBootstrap_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewFPLClient(server.URL, 60, NewMockCacheStore(), &MockBreaker{}, testLogger())
	_, err := client.GetBootstrap(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap fetch failed")
}

func TestPositionFromElementType(t *testing.T) {
	assert.Equal(t, optimizer.CategoryGoalkeeper, PositionFromElementType(1))
	assert.Equal(t, optimizer.CategoryDefender, PositionFromElementType(2))
	assert.Equal(t, optimizer.CategoryMidfielder, PositionFromElementType(3))
	assert.Equal(t, optimizer.CategoryForward, PositionFromElementType(4))
	assert.Equal(t, "", PositionFromElementType(5))
	assert.Equal(t, "", PositionFromElementType(0))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, optimizer.AvailabilityAvailable, MapStatus("a"))
	assert.Equal(t, optimizer.AvailabilityUncertain, MapStatus("d"))
	assert.Equal(t, optimizer.AvailabilityUnavailable, MapStatus("i"))
	assert.Equal(t, optimizer.AvailabilityUnavailable, MapStatus("s"))
	assert.Equal(t, optimizer.AvailabilityUnavailable, MapStatus("u"))
	assert.Equal(t, optimizer.AvailabilityUnavailable, MapStatus(""))
}
