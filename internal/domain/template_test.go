package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSnow  = "Снег"
	testRain  = "Дождь"
	testSun   = "Солнце"
	testCloud = "Облачно"
)

var testWeatherTypes = MustCategoryCode("Cloudy", "Rainy", "Snowy", "Sunny")

func testSpecs() []TemplateSpec {
	return []TemplateSpec{
		{Label: testSnow, CloudCover: "пасмурно", Season: "зима", Location: "горы", WeatherCode: 2},
		{Label: testRain, CloudCover: "облачно", Season: "весна", Location: "внутренние", WeatherCode: 1},
		{Label: testSun, CloudCover: "ясно", Season: "лето", Location: "побережье", WeatherCode: 3},
		{Label: testCloud, CloudCover: "малооблачно", Season: "осень", Location: "внутренние", WeatherCode: 0},
	}
}

func obs(weatherType string, temp, humidity, wind, precip, pressure, uv, vis float64) Observation {
	return Observation{
		Temperature:         temp,
		Humidity:            humidity,
		WindSpeed:           wind,
		Precipitation:       precip,
		CloudCover:          "overcast",
		AtmosphericPressure: pressure,
		UVIndex:             uv,
		Season:              "Winter",
		Visibility:          vis,
		Location:            "inland",
		WeatherType:         weatherType,
	}
}

func testObservations() []Observation {
	return []Observation{
		obs("Snowy", -6, 80, 12, 70, 990, 1, 2),
		obs("Snowy", -3, 90, 9, 60, 996, 2, 4),
		obs("Rainy", 18, 85, 15, 80, 1002, 3, 4),
		obs("Rainy", 22, 77, 11, 74, 1004, 3, 6),
		obs("Sunny", 31, 45, 6, 10, 1018, 9, 8),
		obs("Cloudy", 15, 60, 8, 30, 1010, 4, 7),
		obs("Cloudy", 17, 64, 10, 34, 1012, 4, 7),
		obs("Hail", 0, 0, 0, 0, 0, 0, 0),
	}
}

func TestDeriveTemplates(t *testing.T) {
	templates, err := DeriveTemplates(testObservations(), testSpecs(), testWeatherTypes)
	require.NoError(t, err)
	require.Len(t, templates, 4)

	snow := templates[testSnow]
	assert.Equal(t, testSnow, snow.Label)
	assert.Equal(t, InputState{
		Temperature:         -4, // -4.5 ties to even
		Humidity:            85,
		WindSpeed:           10, // 10.5 ties to even
		Precipitation:       65,
		CloudCover:          "пасмурно",
		AtmosphericPressure: 993,
		UVIndex:             2, // 1.5 ties to even
		Season:              "зима",
		Visibility:          3,
		Location:            "горы",
	}, snow.Values)

	rain := templates[testRain]
	assert.Equal(t, 20.0, rain.Values.Temperature)
	assert.Equal(t, 81.0, rain.Values.Humidity)
	assert.Equal(t, 13.0, rain.Values.WindSpeed)
	assert.Equal(t, 77.0, rain.Values.Precipitation)
	assert.Equal(t, 1003.0, rain.Values.AtmosphericPressure)
	assert.Equal(t, 5.0, rain.Values.Visibility)

	sun := templates[testSun]
	assert.Equal(t, 31.0, sun.Values.Temperature)
	assert.Equal(t, "ясно", sun.Values.CloudCover)
	assert.Equal(t, "лето", sun.Values.Season)
	assert.Equal(t, "побережье", sun.Values.Location)
}

func TestDeriveTemplates_IntegerValuedAndOverridesVerbatim(t *testing.T) {
	specs := testSpecs()
	templates, err := DeriveTemplates(testObservations(), specs, testWeatherTypes)
	require.NoError(t, err)

	for _, spec := range specs {
		tmpl, ok := templates[spec.Label]
		require.True(t, ok, spec.Label)

		v := tmpl.Values
		for _, r := range NumericRanges {
			f := v.numeric(r.Field)
			assert.Equal(t, math.Trunc(f), f, "%s.%s should be integer-valued", spec.Label, r.Field)
		}
		assert.Equal(t, spec.CloudCover, v.CloudCover)
		assert.Equal(t, spec.Season, v.Season)
		assert.Equal(t, spec.Location, v.Location)
	}
}

func TestDeriveTemplates_EmptyCategory(t *testing.T) {
	observations := []Observation{
		obs("Snowy", -5, 80, 10, 60, 990, 1, 3),
	}

	_, err := DeriveTemplates(observations, testSpecs(), testWeatherTypes)
	require.Error(t, err)

	var empty *EmptyCategoryError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, testRain, empty.Label)
	assert.Equal(t, 1, empty.Code)
}

func TestDeriveTemplates_UnmappedWeatherTypeNeverMatches(t *testing.T) {
	observations := []Observation{obs("snowy", -5, 80, 10, 60, 990, 1, 3)}
	specs := []TemplateSpec{{Label: testSnow, WeatherCode: 2}}

	_, err := DeriveTemplates(observations, specs, testWeatherTypes)

	var empty *EmptyCategoryError
	require.ErrorAs(t, err, &empty)
}

func TestDeriveTemplates_NoSpecs(t *testing.T) {
	templates, err := DeriveTemplates(nil, nil, testWeatherTypes)
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestRoundHalfEven(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0},
		{1.5, 2},
		{2.5, 2},
		{3.5, 4},
		{-0.5, 0},
		{-1.5, -2},
		{-2.5, -2},
		{2.4999, 2},
		{2.5001, 3},
		{1012.5, 1012},
		{1013.5, 1014},
		{-0.2, 0},
	}

	for _, tt := range tests {
		got := roundHalfEven(tt.in)
		assert.Equal(t, tt.want, got, "round(%v)", tt.in)
		assert.False(t, math.Signbit(got) && got == 0, "round(%v) must not be negative zero", tt.in)
	}
}

func TestDeriveTemplates_TiesAcrossRows(t *testing.T) {
	// Two rows per field so each mean lands exactly on .5.
	observations := []Observation{
		obs("Sunny", 24, 40, 3, 0, 1012, 6, 9),
		obs("Sunny", 25, 41, 4, 1, 1013, 7, 10),
	}
	specs := []TemplateSpec{{Label: testSun, CloudCover: "ясно", Season: "лето", Location: "побережье", WeatherCode: 3}}

	templates, err := DeriveTemplates(observations, specs, testWeatherTypes)
	require.NoError(t, err)

	v := templates[testSun].Values
	assert.Equal(t, 24.0, v.Temperature)           // 24.5
	assert.Equal(t, 40.0, v.Humidity)              // 40.5
	assert.Equal(t, 4.0, v.WindSpeed)              // 3.5
	assert.Equal(t, 0.0, v.Precipitation)          // 0.5
	assert.Equal(t, 1012.0, v.AtmosphericPressure) // 1012.5
	assert.Equal(t, 6.0, v.UVIndex)                // 6.5
	assert.Equal(t, 10.0, v.Visibility)            // 9.5
}
