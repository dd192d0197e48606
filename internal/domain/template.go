package domain

import "math"

// DeriveTemplates builds one preset per TemplateSpec. Numeric fields are the mean of
// every observation whose weather type encodes to its WeatherCode,
// rounded half to even; categorical fields are copied as configured.
// Observations with a weather type outside weatherTypes never match.
func DeriveTemplates(observations []Observation, specs []TemplateSpec, weatherTypes CategoryCode) (map[string]Template, error) {
	templates := make(map[string]Template, len(specs))
	for _, spec := range specs {
		var sum numericSums
		for _, o := range observations {
			code, ok := weatherTypes.Encode(o.WeatherType)
			if !ok || code != spec.WeatherCode {
				continue
			}
			sum.add(o)
		}
		if sum.n == 0 {
			return nil, &EmptyCategoryError{Label: spec.Label, Code: spec.WeatherCode}
		}

		templates[spec.Label] = Template{
			Label: spec.Label,
			Values: InputState{
				Temperature:         sum.mean(sum.temperature),
				Humidity:            sum.mean(sum.humidity),
				WindSpeed:           sum.mean(sum.windSpeed),
				Precipitation:       sum.mean(sum.precipitation),
				CloudCover:          spec.CloudCover,
				AtmosphericPressure: sum.mean(sum.pressure),
				UVIndex:             sum.mean(sum.uvIndex),
				Season:              spec.Season,
				Visibility:          sum.mean(sum.visibility),
				Location:            spec.Location,
			},
		}
	}
	return templates, nil
}

type numericSums struct {
	n             int
	temperature   float64
	humidity      float64
	windSpeed     float64
	precipitation float64
	pressure      float64
	uvIndex       float64
	visibility    float64
}

func (s *numericSums) add(o Observation) {
	s.n++
	s.temperature += o.Temperature
	s.humidity += o.Humidity
	s.windSpeed += o.WindSpeed
	s.precipitation += o.Precipitation
	s.pressure += o.AtmosphericPressure
	s.uvIndex += o.UVIndex
	s.visibility += o.Visibility
}

func (s *numericSums) mean(total float64) float64 {
	return roundHalfEven(total / float64(s.n))
}

// roundHalfEven rounds to the nearest integer, ties to even, and folds
// negative zero into zero so it never shows up as "-0" in JSON.
func roundHalfEven(v float64) float64 {
	r := math.RoundToEven(v)
	if r == 0 {
		return 0
	}
	return r
}
