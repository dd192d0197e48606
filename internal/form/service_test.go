package form_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-type-service/internal/catalog"
	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/form"
	"github.com/couchcryptid/weather-type-service/internal/model"
	"github.com/couchcryptid/weather-type-service/internal/observability"
	"github.com/couchcryptid/weather-type-service/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForestPath = "../model/testdata/forest.json"

// --- fixtures ---

func observation(weatherType string, temp, humidity, wind, precip, pressure, uv, vis float64) domain.Observation {
	return domain.Observation{
		Temperature: temp, Humidity: humidity, WindSpeed: wind, Precipitation: precip,
		CloudCover: "overcast", AtmosphericPressure: pressure, UVIndex: uv,
		Season: "Winter", Visibility: vis, Location: "inland", WeatherType: weatherType,
	}
}

func testObservations() []domain.Observation {
	return []domain.Observation{
		observation("Snowy", -6, 80, 12, 70, 990, 1, 2),
		observation("Snowy", -3, 90, 9, 60, 996, 2, 4),
		observation("Rainy", 18, 85, 15, 80, 1002, 3, 4),
		observation("Rainy", 22, 77, 11, 74, 1004, 3, 6),
		observation("Sunny", 31, 45, 6, 10, 1018, 9, 8),
		observation("Cloudy", 15, 60, 8, 30, 1010, 4, 7),
		observation("Cloudy", 17, 64, 10, 34, 1012, 4, 7),
	}
}

type fixture struct {
	svc     *form.Service
	store   session.Store
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T, predictor domain.Predictor) fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	if predictor == nil {
		forest, err := model.Load(testForestPath)
		require.NoError(t, err)
		predictor = forest
	}
	adapter, err := domain.NewAdapter(cat.Codes, cat.Classes, predictor)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	store := session.NewMemoryStore(time.Hour, clock)
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := form.New(cat, testObservations(), adapter, store, logger, metrics)
	require.NoError(t, err)
	return fixture{svc: svc, store: store, metrics: metrics, clock: clock}
}

func ptr[T any](v T) *T { return &v }

type failingModel struct{ err error }

func (m failingModel) Predict(context.Context, []domain.FeatureVector) ([]int, error) {
	return nil, m.err
}

type constantModel struct{ class int }

func (m constantModel) Predict(_ context.Context, rows []domain.FeatureVector) ([]int, error) {
	out := make([]int, len(rows))
	for i := range out {
		out[i] = m.class
	}
	return out, nil
}

// --- tests ---

func TestNew_DerivesPresetsInCatalogOrder(t *testing.T) {
	f := newFixture(t, nil)

	presets := f.svc.Presets()
	require.Len(t, presets, 4)

	labels := make([]string, len(presets))
	for i, p := range presets {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"Снег", "Дождь", "Солнце", "Облачно"}, labels)

	want := domain.InputState{
		Temperature: -4, Humidity: 85, WindSpeed: 10, Precipitation: 65, CloudCover: "пасмурно",
		AtmosphericPressure: 993, UVIndex: 2, Season: "зима", Visibility: 3, Location: "горы",
	}
	if diff := cmp.Diff(want, presets[0].Values); diff != "" {
		t.Errorf("snow preset mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.TemplatesLoaded))
}

func TestNew_EmptyCategoryIsFatal(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	forest, err := model.Load(testForestPath)
	require.NoError(t, err)
	adapter, err := domain.NewAdapter(cat.Codes, cat.Classes, forest)
	require.NoError(t, err)

	withoutSun := testObservations()[:4]
	_, err = form.New(cat, withoutSun, adapter, session.NewMemoryStore(0, nil),
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	var empty *domain.EmptyCategoryError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "Солнце", empty.Label)
}

func TestNew_TemplateOutOfRangeIsFatal(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	adapter, err := domain.NewAdapter(cat.Codes, cat.Classes, constantModel{})
	require.NoError(t, err)

	observations := testObservations()
	observations[4].AtmosphericPressure = 1200

	_, err = form.New(cat, observations, adapter, session.NewMemoryStore(0, nil),
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	var oor *domain.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, domain.FieldAtmosphericPressure, oor.Field)
}

func TestOptions(t *testing.T) {
	f := newFixture(t, nil)

	opts := f.svc.Options()
	assert.Equal(t, []string{"ясно", "облачно", "пасмурно", "малооблачно"}, opts.CloudCover)
	assert.Equal(t, []string{"осень", "весна", "лето", "зима"}, opts.Season)
	assert.Equal(t, []string{"побережье", "внутренние", "горы"}, opts.Location)
	assert.Equal(t, []string{"Снег", "Дождь", "Солнце", "Облачно"}, opts.Presets)
	assert.Equal(t, domain.NumericRanges, opts.Ranges)
}

func TestNewSession_Defaults(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id, state, err := f.svc.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultInputState(), state)

	stored, err := f.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, state, stored)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsCreated))
}

func TestPredict_EndToEndSnow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, id, domain.InputPatch{
		Temperature:         ptr(-5.0),
		Humidity:            ptr(85.0),
		WindSpeed:           ptr(20.0),
		Precipitation:       ptr(60.0),
		CloudCover:          ptr("пасмурно"),
		AtmosphericPressure: ptr(995.0),
		UVIndex:             ptr(1.0),
		Season:              ptr("зима"),
		Visibility:          ptr(3.0),
		Location:            ptr("горы"),
	})
	require.NoError(t, err)

	got, err := f.svc.Predict(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Prediction{Code: 2, Label: "Снег"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Predictions.WithLabelValues("Снег")))
}

func TestPredict_Deterministic(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	first, err := f.svc.Predict(ctx, id)
	require.NoError(t, err)
	for range 3 {
		again, err := f.svc.Predict(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectPreset_ThenPredictMatchesPreset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, preset := range f.svc.Presets() {
		t.Run(preset.Label, func(t *testing.T) {
			id, _, err := f.svc.NewSession(ctx)
			require.NoError(t, err)

			state, err := f.svc.SelectPreset(ctx, id, preset.Label)
			require.NoError(t, err)
			assert.Equal(t, preset.Values, state)

			stored, err := f.svc.State(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, preset.Values, stored, "preset must overwrite every field")

			got, err := f.svc.Predict(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, preset.Label, got.Label)
		})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PresetSelections.WithLabelValues("Снег")))
}

func TestSelectPreset_Unknown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.SelectPreset(ctx, id, "Град")
	require.ErrorIs(t, err, form.ErrUnknownPreset)

	state, err := f.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultInputState(), state)
}

func TestSelectPreset_UnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.SelectPreset(context.Background(), "missing", "Снег")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestUpdate_InvalidLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, id, domain.InputPatch{
		Temperature: ptr(-40.0),
		Humidity:    ptr(201.0),
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	state, err := f.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultInputState(), state)
}

func TestUpdate_BoundaryValuesAccepted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	for _, temp := range []float64{-50, 50} {
		state, err := f.svc.Update(ctx, id, domain.InputPatch{Temperature: ptr(temp)})
		require.NoError(t, err)
		assert.Equal(t, temp, state.Temperature)
	}
}

func TestUpdate_UnknownCategory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, id, domain.InputPatch{Location: ptr("пустыня")})

	var unknown *domain.UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, domain.FieldLocation, unknown.Field)
}

func TestPredict_ModelFailureKeepsState(t *testing.T) {
	boom := errors.New("model offline")
	f := newFixture(t, failingModel{err: boom})
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.SelectPreset(ctx, id, "Дождь")
	require.NoError(t, err)
	before, err := f.svc.State(ctx, id)
	require.NoError(t, err)

	_, err = f.svc.Predict(ctx, id)
	require.ErrorIs(t, err, boom)

	after, err := f.svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PredictionErrors.WithLabelValues("model")))
}

func TestPredict_UnknownClass(t *testing.T) {
	f := newFixture(t, constantModel{class: 9})
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Predict(ctx, id)

	var unknown *domain.UnknownClassError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 9, unknown.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PredictionErrors.WithLabelValues("unknown_class")))
}

func TestPredict_ExpiredSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	_, err = f.svc.Predict(ctx, id)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestEndSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id, _, err := f.svc.NewSession(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.EndSession(ctx, id))
	_, err = f.svc.State(ctx, id)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestCheckReadiness(t *testing.T) {
	f := newFixture(t, nil)
	assert.NoError(t, f.svc.CheckReadiness(context.Background()))
}
