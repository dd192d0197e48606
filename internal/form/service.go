// Package form implements the weather-type form: per-session input state,
// preset selection, field edits and prediction.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-type-service/internal/catalog"
	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/observability"
	"github.com/couchcryptid/weather-type-service/internal/session"
)

// ErrUnknownPreset is returned when a preset label has no template.
var ErrUnknownPreset = errors.New("unknown preset")

// Options describes the choices the form offers.
type Options struct {
	CloudCover []string       `json:"cloud_cover"`
	Season     []string       `json:"season"`
	Location   []string       `json:"location"`
	Ranges     []domain.Range `json:"ranges"`
	Presets    []string       `json:"presets"`
}

// Service owns the read-only templates and model adapter and routes every
// state change through a session.Store.
type Service struct {
	catalog   *catalog.Catalog
	templates []domain.Template
	byLabel   map[string]domain.Template
	adapter   *domain.Adapter
	sessions  session.Store
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New derives the preset templates from observations and validates them
// against the catalog. Any failure here is fatal for the process.
func New(cat *catalog.Catalog, observations []domain.Observation, adapter *domain.Adapter,
	sessions session.Store, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	derived, err := domain.DeriveTemplates(observations, cat.Templates, cat.WeatherTypes)
	if err != nil {
		return nil, fmt.Errorf("derive templates: %w", err)
	}

	templates := make([]domain.Template, 0, len(cat.Templates))
	for _, spec := range cat.Templates {
		tmpl := derived[spec.Label]
		if err := tmpl.Values.Validate(cat.Codes); err != nil {
			return nil, fmt.Errorf("template %q: %w", spec.Label, err)
		}
		templates = append(templates, tmpl)
		logger.Info("template derived", "preset", spec.Label, "values", tmpl.Values)
	}
	metrics.TemplatesLoaded.Set(float64(len(templates)))

	return &Service{
		catalog:   cat,
		templates: templates,
		byLabel:   derived,
		adapter:   adapter,
		sessions:  sessions,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// CheckReadiness reports whether the session store is reachable. Templates
// and the model are loaded before the service exists.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.sessions.Len(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Presets returns the templates in catalog order.
func (s *Service) Presets() []domain.Template {
	return append([]domain.Template(nil), s.templates...)
}

// Options lists the categorical choices, numeric ranges and preset labels.
func (s *Service) Options() Options {
	presets := make([]string, len(s.templates))
	for i, t := range s.templates {
		presets[i] = t.Label
	}
	return Options{
		CloudCover: s.catalog.Codes.CloudCover.Labels(),
		Season:     s.catalog.Codes.Season.Labels(),
		Location:   s.catalog.Codes.Location.Labels(),
		Ranges:     append([]domain.Range(nil), domain.NumericRanges...),
		Presets:    presets,
	}
}

// NewSession starts a session populated with the catalog defaults.
func (s *Service) NewSession(ctx context.Context) (string, domain.InputState, error) {
	state := s.catalog.Defaults
	id, err := s.sessions.Create(ctx, state)
	if err != nil {
		return "", domain.InputState{}, fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionsCreated.Inc()
	s.logger.Debug("session created", "session_id", id)
	return id, state, nil
}

// State returns the session's current input.
func (s *Service) State(ctx context.Context, id string) (domain.InputState, error) {
	return s.sessions.Get(ctx, id)
}

// SelectPreset overwrites all ten fields of the session with a template.
func (s *Service) SelectPreset(ctx context.Context, id, preset string) (domain.InputState, error) {
	tmpl, ok := s.byLabel[preset]
	if !ok {
		return domain.InputState{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	if err := s.sessions.Put(ctx, id, tmpl.Values); err != nil {
		return domain.InputState{}, err
	}
	s.metrics.PresetSelections.WithLabelValues(preset).Inc()
	s.logger.Debug("preset selected", "session_id", id, "preset", preset)
	return tmpl.Values, nil
}

// Update applies a partial edit. The stored state only changes when the
// edited state validates.
func (s *Service) Update(ctx context.Context, id string, patch domain.InputPatch) (domain.InputState, error) {
	current, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.InputState{}, err
	}
	next := patch.Apply(current)
	if err := next.Validate(s.catalog.Codes); err != nil {
		return domain.InputState{}, err
	}
	if err := s.sessions.Put(ctx, id, next); err != nil {
		return domain.InputState{}, err
	}
	return next, nil
}

// Predict classifies the session's current input. The session state is never
// modified, whatever the outcome.
func (s *Service) Predict(ctx context.Context, id string) (domain.Prediction, error) {
	state, err := s.sessions.Get(ctx, id)
	if err != nil {
		return domain.Prediction{}, err
	}
	if err := state.Validate(s.catalog.Codes); err != nil {
		s.recordError(id, "validation", err)
		return domain.Prediction{}, err
	}

	start := time.Now()
	p, err := s.adapter.Predict(ctx, state)
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.recordError(id, errorKind(err), err)
		return domain.Prediction{}, err
	}

	s.metrics.Predictions.WithLabelValues(p.Label).Inc()
	s.logger.Info("prediction served", "session_id", id, "label", p.Label, "code", p.Code)
	return p, nil
}

// EndSession discards the session.
func (s *Service) EndSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

func (s *Service) recordError(id, kind string, err error) {
	s.metrics.PredictionErrors.WithLabelValues(kind).Inc()
	s.logger.Warn("prediction failed", "session_id", id, "kind", kind, "error", err)
}

func errorKind(err error) string {
	var (
		unknownCategory *domain.UnknownCategoryError
		unknownClass    *domain.UnknownClassError
	)
	switch {
	case errors.As(err, &unknownCategory):
		return "unknown_category"
	case errors.As(err, &unknownClass):
		return "unknown_class"
	default:
		return "model"
	}
}
