package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodes() Codes {
	return Codes{
		CloudCover: MustCategoryCode("ясно", "облачно", "пасмурно", "малооблачно"),
		Season:     MustCategoryCode("осень", "весна", "лето", "зима"),
		Location:   MustCategoryCode("побережье", "внутренние", "горы"),
	}
}

func TestDefaultInputState_Valid(t *testing.T) {
	require.NoError(t, DefaultInputState().Validate(testCodes()))
}

func TestValidate_Boundaries(t *testing.T) {
	for _, r := range NumericRanges {
		t.Run(r.Field, func(t *testing.T) {
			for _, v := range []float64{r.Min, r.Max} {
				s := withNumeric(DefaultInputState(), r.Field, v)
				assert.NoError(t, s.Validate(testCodes()), "%s=%v", r.Field, v)
			}
		})
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	for _, r := range NumericRanges {
		t.Run(r.Field, func(t *testing.T) {
			for _, v := range []float64{r.Min - 1, r.Max + 0.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
				s := withNumeric(DefaultInputState(), r.Field, v)
				err := s.Validate(testCodes())
				require.Error(t, err, "%s=%v", r.Field, v)

				var oor *OutOfRangeError
				require.True(t, errors.As(err, &oor))
				assert.Equal(t, r.Field, oor.Field)
				assert.Equal(t, r.Min, oor.Min)
				assert.Equal(t, r.Max, oor.Max)
			}
		})
	}
}

func TestValidate_UnknownCategory(t *testing.T) {
	s := DefaultInputState()
	s.Season = "межсезонье"

	err := s.Validate(testCodes())

	var unknown *UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, FieldSeason, unknown.Field)
	assert.Equal(t, "межсезонье", unknown.Value)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	s := DefaultInputState()
	s.Temperature = 51
	s.UVIndex = -1
	s.CloudCover = "туман"
	s.Location = ""

	err := s.Validate(testCodes())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 4)
	assert.Contains(t, err.Error(), FieldTemperature)
	assert.Contains(t, err.Error(), FieldUVIndex)
	assert.Contains(t, err.Error(), FieldCloudCover)
	assert.Contains(t, err.Error(), FieldLocation)
}

func TestInputPatch_Apply(t *testing.T) {
	temp := -12.0
	season := "зима"
	base := DefaultInputState()

	got := InputPatch{Temperature: &temp, Season: &season}.Apply(base)

	want := base
	want.Temperature = -12
	want.Season = "зима"
	assert.Equal(t, want, got)
	assert.Equal(t, 20.0, base.Temperature, "Apply must not modify its argument")
}

func TestInputPatch_ApplyEmpty(t *testing.T) {
	base := DefaultInputState()
	assert.Equal(t, base, InputPatch{}.Apply(base))
}

func withNumeric(s InputState, field string, v float64) InputState {
	switch field {
	case FieldTemperature:
		s.Temperature = v
	case FieldHumidity:
		s.Humidity = v
	case FieldWindSpeed:
		s.WindSpeed = v
	case FieldPrecipitation:
		s.Precipitation = v
	case FieldAtmosphericPressure:
		s.AtmosphericPressure = v
	case FieldUVIndex:
		s.UVIndex = v
	case FieldVisibility:
		s.Visibility = v
	}
	return s
}
