package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/favipie/FPL-hacker/internal/models"
	"github.com/favipie/FPL-hacker/internal/optimizer"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// CacheStore is the minimal cache surface a provider needs. Satisfied by
// services.CacheService.
type CacheStore interface {
	GetSimple(key string, dest interface{}) error
	SetSimple(key string, value interface{}, expiration time.Duration) error
}

// Breaker guards calls to an external service. Satisfied by
// services.CircuitBreakerService.
type Breaker interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// FPLClient fetches the bootstrap-static feed from the official fantasy
// API: clubs, the gameweek calendar and the full element list with status
// and price.
type FPLClient struct {
	httpClient  *http.Client
	baseURL     string
	cache       CacheStore
	breaker     Breaker
	logger      *logrus.Entry
	rateLimiter *rate.Limiter
}

// NewFPLClient creates a bootstrap feed client. requestsPerMinute guards
// the upstream API; the feed changes slowly, so the default cache window
// absorbs nearly all reads.
func NewFPLClient(baseURL string, requestsPerMinute int, cache CacheStore, breaker Breaker, logger *logrus.Logger) *FPLClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	return &FPLClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     baseURL,
		cache:       cache,
		breaker:     breaker,
		logger:      logger.WithField("component", "fpl_provider"),
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Bootstrap-static response structures. Numeric-looking fields arrive as
// strings in the feed and are parsed on conversion.
type fplBootstrapResponse struct {
	Events   []fplEvent   `json:"events"`
	Teams    []fplTeam    `json:"teams"`
	Elements []fplElement `json:"elements"`
}

type fplEvent struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
	IsNext    bool   `json:"is_next"`
	Finished  bool   `json:"finished"`
}

type fplTeam struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type fplElement struct {
	ID                int    `json:"id"`
	WebName           string `json:"web_name"`
	FirstName         string `json:"first_name"`
	SecondName        string `json:"second_name"`
	Team              uint   `json:"team"`
	ElementType       int    `json:"element_type"`
	NowCost           int    `json:"now_cost"`
	Status            string `json:"status"`
	News              string `json:"news"`
	TotalPoints       int    `json:"total_points"`
	SelectedByPercent string `json:"selected_by_percent"`
	Form              string `json:"form"`
}

// ElementData is one converted element: position and availability already
// mapped onto the engine's enumerations, cost in raw tenths.
type ElementData struct {
	ElementID    int     `json:"element_id"`
	Name         string  `json:"name"`
	Position     string  `json:"position"`
	ClubID       uint    `json:"club_id"`
	Club         string  `json:"club"`
	Cost         int     `json:"cost"`
	Availability string  `json:"availability"`
	News         string  `json:"news"`
	SelectedBy   float64 `json:"selected_by"`
}

// Bootstrap is the converted feed snapshot.
type Bootstrap struct {
	CurrentGameweek int                  `json:"current_gameweek"`
	Clubs           []models.Club        `json:"clubs"`
	Elements        []ElementData        `json:"elements"`
	StatusByElement map[int]string       `json:"-"`
	ClubByID        map[uint]models.Club `json:"-"`
}

const bootstrapCacheTTL = 30 * time.Minute

// GetBootstrap fetches and converts the bootstrap-static feed, serving
// from cache when a recent snapshot exists.
func (c *FPLClient) GetBootstrap(ctx context.Context) (*Bootstrap, error) {
	cacheKey := "fpl:bootstrap-static"

	var cached Bootstrap
	if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached.Elements) > 0 {
		cached.reindex()
		return &cached, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute("fpl", func() (interface{}, error) {
		return c.fetchBootstrap(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap fetch failed: %w", err)
	}
	raw := result.(*fplBootstrapResponse)

	bootstrap := c.convert(raw)
	if err := c.cache.SetSimple(cacheKey, bootstrap, bootstrapCacheTTL); err != nil {
		c.logger.WithField("error", err.Error()).Warn("Failed to cache bootstrap snapshot")
	}

	c.logger.WithFields(logrus.Fields{
		"clubs":    len(bootstrap.Clubs),
		"elements": len(bootstrap.Elements),
		"gameweek": bootstrap.CurrentGameweek,
	}).Info("Fetched bootstrap-static feed")

	return bootstrap, nil
}

func (c *FPLClient) fetchBootstrap(ctx context.Context) (*fplBootstrapResponse, error) {
	url := c.baseURL + "/bootstrap-static/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload fplBootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode bootstrap response: %w", err)
	}
	return &payload, nil
}

func (c *FPLClient) convert(raw *fplBootstrapResponse) *Bootstrap {
	bootstrap := &Bootstrap{
		CurrentGameweek: currentGameweek(raw.Events),
		Clubs:           make([]models.Club, 0, len(raw.Teams)),
		Elements:        make([]ElementData, 0, len(raw.Elements)),
	}

	for _, t := range raw.Teams {
		bootstrap.Clubs = append(bootstrap.Clubs, models.Club{
			ID:        t.ID,
			Name:      t.Name,
			ShortName: t.ShortName,
		})
	}
	bootstrap.reindex()

	for _, e := range raw.Elements {
		position := PositionFromElementType(e.ElementType)
		if position == "" {
			c.logger.WithFields(logrus.Fields{
				"element_id":   e.ID,
				"element_type": e.ElementType,
			}).Warn("Skipping element with unknown type")
			continue
		}

		club := bootstrap.ClubByID[e.Team]
		selectedBy, _ := strconv.ParseFloat(e.SelectedByPercent, 64)

		bootstrap.Elements = append(bootstrap.Elements, ElementData{
			ElementID:    e.ID,
			Name:         e.WebName,
			Position:     position,
			ClubID:       e.Team,
			Club:         club.ShortName,
			Cost:         e.NowCost,
			Availability: MapStatus(e.Status),
			News:         e.News,
			SelectedBy:   selectedBy,
		})
		bootstrap.StatusByElement[e.ID] = e.Status
	}

	return bootstrap
}

func (b *Bootstrap) reindex() {
	b.ClubByID = make(map[uint]models.Club, len(b.Clubs))
	for _, club := range b.Clubs {
		b.ClubByID[club.ID] = club
	}
	if b.StatusByElement == nil {
		b.StatusByElement = make(map[int]string, len(b.Elements))
	}
	for _, e := range b.Elements {
		b.StatusByElement[e.ElementID] = statusCode(e.Availability)
	}
}

// currentGameweek picks the event flagged current, falling back to the
// next event before the season starts.
func currentGameweek(events []fplEvent) int {
	for _, ev := range events {
		if ev.IsCurrent {
			return ev.ID
		}
	}
	for _, ev := range events {
		if ev.IsNext {
			return ev.ID
		}
	}
	return 0
}

// PositionFromElementType maps the feed's element_type onto the engine's
// category codes.
func PositionFromElementType(elementType int) string {
	switch elementType {
	case 1:
		return optimizer.CategoryGoalkeeper
	case 2:
		return optimizer.CategoryDefender
	case 3:
		return optimizer.CategoryMidfielder
	case 4:
		return optimizer.CategoryForward
	default:
		return ""
	}
}

// MapStatus maps the feed's one-letter status onto the engine's
// availability states: "a" is available, "d" is doubtful, everything else
// (injured, suspended, unavailable, not in squad) is unavailable.
func MapStatus(status string) string {
	switch status {
	case "a":
		return optimizer.AvailabilityAvailable
	case "d":
		return optimizer.AvailabilityUncertain
	default:
		return optimizer.AvailabilityUnavailable
	}
}

func statusCode(availability string) string {
	switch availability {
	case optimizer.AvailabilityAvailable:
		return "a"
	case optimizer.AvailabilityUncertain:
		return "d"
	default:
		return "u"
	}
}
