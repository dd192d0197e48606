package domain

import "math"

// Range is an inclusive numeric bound for a form field.
type Range struct {
	Field string  `json:"field"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NumericRanges are the accepted bounds of every numeric field.
var NumericRanges = []Range{
	{FieldTemperature, -50, 50},
	{FieldHumidity, 0, 200},
	{FieldWindSpeed, 0, 150},
	{FieldPrecipitation, 0, 150},
	{FieldAtmosphericPressure, 800, 1100},
	{FieldUVIndex, 0, 15},
	{FieldVisibility, 0, 50},
}

func (s InputState) numeric(field string) float64 {
	switch field {
	case FieldTemperature:
		return s.Temperature
	case FieldHumidity:
		return s.Humidity
	case FieldWindSpeed:
		return s.WindSpeed
	case FieldPrecipitation:
		return s.Precipitation
	case FieldAtmosphericPressure:
		return s.AtmosphericPressure
	case FieldUVIndex:
		return s.UVIndex
	case FieldVisibility:
		return s.Visibility
	}
	return math.NaN()
}

// Validate checks numeric bounds and categorical domains. Every problem is
// reported, not just the first.
func (s InputState) Validate(codes Codes) error {
	var problems []error
	for _, r := range NumericRanges {
		v := s.numeric(r.Field)
		if math.IsNaN(v) || v < r.Min || v > r.Max {
			problems = append(problems, &OutOfRangeError{Field: r.Field, Value: v, Min: r.Min, Max: r.Max})
		}
	}
	categorical := []struct {
		field string
		value string
		code  CategoryCode
	}{
		{FieldCloudCover, s.CloudCover, codes.CloudCover},
		{FieldSeason, s.Season, codes.Season},
		{FieldLocation, s.Location, codes.Location},
	}
	for _, c := range categorical {
		if !c.code.Contains(c.value) {
			problems = append(problems, &UnknownCategoryError{Field: c.field, Value: c.value})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// InputPatch is a partial edit of an InputState. Nil fields are left as is.
type InputPatch struct {
	Temperature         *float64 `json:"temperature,omitempty"`
	Humidity            *float64 `json:"humidity,omitempty"`
	WindSpeed           *float64 `json:"wind_speed,omitempty"`
	Precipitation       *float64 `json:"precipitation,omitempty"`
	CloudCover          *string  `json:"cloud_cover,omitempty"`
	AtmosphericPressure *float64 `json:"atmospheric_pressure,omitempty"`
	UVIndex             *float64 `json:"uv_index,omitempty"`
	Season              *string  `json:"season,omitempty"`
	Visibility          *float64 `json:"visibility,omitempty"`
	Location            *string  `json:"location,omitempty"`
}

// Apply returns a copy of s with the patch's non-nil fields set.
func (p InputPatch) Apply(s InputState) InputState {
	setFloat(&s.Temperature, p.Temperature)
	setFloat(&s.Humidity, p.Humidity)
	setFloat(&s.WindSpeed, p.WindSpeed)
	setFloat(&s.Precipitation, p.Precipitation)
	setString(&s.CloudCover, p.CloudCover)
	setFloat(&s.AtmosphericPressure, p.AtmosphericPressure)
	setFloat(&s.UVIndex, p.UVIndex)
	setString(&s.Season, p.Season)
	setFloat(&s.Visibility, p.Visibility)
	setString(&s.Location, p.Location)
	return s
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
