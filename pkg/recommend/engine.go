package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"airease-backend/pkg/flights"
	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"
)

// Augmenter produces generated content that may replace the rule-based
// packing list, tips and timeline.
type Augmenter interface {
	Augment(ctx context.Context, in AugmentInput) (Augmentation, error)
}

// AugmentInput is the context handed to an Augmenter.
type AugmentInput struct {
	Flight        models.FlightInfo
	Preferences   models.Preferences
	Destination   string
	Weather       models.WeatherInfo
	International bool
}

// AugmentedStage is a generated time budget step.
type AugmentedStage struct {
	Task        string `json:"task"`
	Minutes     int    `json:"minutes"`
	Description string `json:"description"`
}

// Augmentation is generated content in the engine's own shapes.
type Augmentation struct {
	PackingList models.PackingList `json:"packingList"`
	TravelTips  []models.TravelTip `json:"travelTips"`
	Timeline    []AugmentedStage   `json:"timeline"`
}

// ErrIncompleteAugmentation 生成内容缺少必需字段
var ErrIncompleteAugmentation = errors.New("incomplete augmentation")

// Validate checks that every section is present and well formed.
func (a Augmentation) Validate() error {
	switch {
	case len(a.PackingList.Clothing) == 0:
		return fmt.Errorf("%w: packingList.clothing is empty", ErrIncompleteAugmentation)
	case len(a.PackingList.Weather) == 0:
		return fmt.Errorf("%w: packingList.weather is empty", ErrIncompleteAugmentation)
	case len(a.PackingList.Essentials) == 0:
		return fmt.Errorf("%w: packingList.essentials is empty", ErrIncompleteAugmentation)
	case len(a.TravelTips) == 0:
		return fmt.Errorf("%w: travelTips is empty", ErrIncompleteAugmentation)
	case len(a.Timeline) == 0:
		return fmt.Errorf("%w: timeline is empty", ErrIncompleteAugmentation)
	}
	for i, tip := range a.TravelTips {
		if strings.TrimSpace(tip.Category) == "" || strings.TrimSpace(tip.Tip) == "" {
			return fmt.Errorf("%w: travelTips[%d] is incomplete", ErrIncompleteAugmentation, i)
		}
	}
	for i, st := range a.Timeline {
		if strings.TrimSpace(st.Task) == "" || st.Minutes <= 0 || st.Minutes > 24*60 {
			return fmt.Errorf("%w: timeline[%d] is invalid", ErrIncompleteAugmentation, i)
		}
	}
	return nil
}

// Engine derives packing lists, travel tips and a time budget for a flight.
type Engine struct {
	tables    *Tables
	catalog   *flights.Catalog
	augmenter Augmenter
	aiTimeout time.Duration
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAugmenter enables generated content bounded by timeout.
func WithAugmenter(a Augmenter, timeout time.Duration) Option {
	return func(e *Engine) {
		e.augmenter = a
		e.aiTimeout = timeout
	}
}

// WithTables replaces the embedded lookup tables.
func WithTables(t *Tables) Option {
	return func(e *Engine) { e.tables = t }
}

// WithCatalog replaces the airport catalog used for country lookups.
func WithCatalog(c *flights.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a recommendation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tables:    DefaultTables(),
		catalog:   flights.DefaultCatalog(),
		aiTimeout: 15 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AIEnabled reports whether an augmenter is configured.
func (e *Engine) AIEnabled() bool { return e.augmenter != nil }

// Recommend returns the recommendation for a flight. The only error is a
// *utils.ValidationError for a malformed departure time; augmentation
// failures fall back to the rule-based result.
func (e *Engine) Recommend(ctx context.Context, info models.FlightInfo, prefs models.Preferences) (models.Recommendation, error) {
	rec, err := e.Baseline(info)
	if err != nil {
		return models.Recommendation{}, err
	}
	if e.augmenter == nil {
		return rec, nil
	}

	actx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	aug, err := e.augmenter.Augment(actx, AugmentInput{
		Flight:        info,
		Preferences:   prefs,
		Destination:   rec.Destination,
		Weather:       rec.WeatherInfo,
		International: rec.International,
	})
	if err == nil {
		err = aug.Validate()
	}
	if err != nil {
		e.logger.Warn("recommendation augmentation failed, using rule-based result",
			"from", info.From, "to", info.To, "error", err)
		return rec, nil
	}

	stages := make([]Stage, len(aug.Timeline))
	for i, st := range aug.Timeline {
		stages[i] = Stage{Task: st.Task, International: st.Minutes, Domestic: st.Minutes, Description: st.Description}
	}
	tm, err := e.timeBudget(info, stages, rec.International)
	if err != nil {
		return rec, nil
	}

	rec.PackingList = aug.PackingList
	rec.TravelTips = aug.TravelTips
	rec.TimeManagement = tm
	rec.AIGenerated = true
	return rec, nil
}

// Baseline computes the rule-based recommendation.
func (e *Engine) Baseline(info models.FlightInfo) (models.Recommendation, error) {
	from := strings.ToUpper(strings.TrimSpace(info.From))
	to := strings.ToUpper(strings.TrimSpace(info.To))
	international := e.catalog.IsInternational(from, to)

	tm, err := e.timeBudget(info, e.tables.Stages, international)
	if err != nil {
		return models.Recommendation{}, err
	}

	weather := e.tables.WeatherFor(to)
	destination := e.DestinationName(to)
	return models.Recommendation{
		PackingList:    e.tables.PackingFor(weather.Temp),
		TravelTips:     e.tables.TipsFor(destination),
		TimeManagement: tm,
		WeatherInfo:    weather,
		Destination:    destination,
		International:  international,
	}, nil
}

// DestinationName returns the display name for an airport code.
func (e *Engine) DestinationName(code string) string {
	if name, ok := e.tables.Destinations[code]; ok {
		return name
	}
	if a, ok := e.catalog.Airport(code); ok {
		return a.City + ", " + a.Country
	}
	return code
}

// timeBudget lays the stages out backwards from the departure. leaveBy may
// fall on the previous calendar day.
func (e *Engine) timeBudget(info models.FlightInfo, stages []Stage, international bool) (models.TimeManagement, error) {
	clock, err := time.Parse("15:04", strings.TrimSpace(info.DepartureTime))
	if err != nil {
		return models.TimeManagement{}, utils.NewValidationError("departureTime", "must be HH:MM")
	}

	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if d, err := time.Parse("2006-01-02", info.DepartDate); err == nil {
		day = d
	}
	departure := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)

	total := 0
	for _, st := range stages {
		total += stageMinutes(st, international)
	}
	leave := departure.Add(-time.Duration(total) * time.Minute)

	timeline := make([]models.TimelineSegment, 0, len(stages))
	offset := 0
	for _, st := range stages {
		minutes := stageMinutes(st, international)
		timeline = append(timeline, models.TimelineSegment{
			Task:          st.Task,
			Minutes:       minutes,
			Description:   st.Description,
			OffsetMinutes: offset,
			StartsAt:      leave.Add(time.Duration(offset) * time.Minute).Format("15:04"),
		})
		offset += minutes
	}

	return models.TimeManagement{
		Timeline:     timeline,
		TotalMinutes: total,
		LeaveBy:      leave.Format("15:04"),
		Departure:    departure.Format("15:04"),
		PreviousDay:  leave.YearDay() != departure.YearDay() || leave.Year() != departure.Year(),
	}, nil
}

func stageMinutes(st Stage, international bool) int {
	if international {
		return st.International
	}
	return st.Domestic
}
