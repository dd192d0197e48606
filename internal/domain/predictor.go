package domain

import (
	"context"
	"fmt"
)

// Predictor is the trained classification model. It returns one class code
// per input row.
type Predictor interface {
	Predict(ctx context.Context, rows []FeatureVector) ([]int, error)
}

// ClassSpace is implemented by predictors that know their output classes.
type ClassSpace interface {
	Classes() []int
}

// Adapter turns form state into a model row and the model's class code into
// a display label.
type Adapter struct {
	codes   Codes
	classes CategoryCode
	model   Predictor
}

// NewAdapter wires a predictor to the categorical encoders and class labels.
// If the predictor declares its class space, every class must have a label.
func NewAdapter(codes Codes, classes CategoryCode, model Predictor) (*Adapter, error) {
	if cs, ok := model.(ClassSpace); ok {
		for _, c := range cs.Classes() {
			if _, ok := classes.Decode(c); !ok {
				return nil, &UnknownClassError{Code: c}
			}
		}
	}
	return &Adapter{codes: codes, classes: classes, model: model}, nil
}

// Features encodes s in model column order.
func (a *Adapter) Features(s InputState) (FeatureVector, error) {
	cloud, err := encode(a.codes.CloudCover, FieldCloudCover, s.CloudCover)
	if err != nil {
		return FeatureVector{}, err
	}
	season, err := encode(a.codes.Season, FieldSeason, s.Season)
	if err != nil {
		return FeatureVector{}, err
	}
	location, err := encode(a.codes.Location, FieldLocation, s.Location)
	if err != nil {
		return FeatureVector{}, err
	}
	return FeatureVector{
		s.Temperature,
		s.Humidity,
		s.WindSpeed,
		s.Precipitation,
		cloud,
		s.AtmosphericPressure,
		s.UVIndex,
		season,
		s.Visibility,
		location,
	}, nil
}

// Predict classifies a single form state.
func (a *Adapter) Predict(ctx context.Context, s InputState) (Prediction, error) {
	row, err := a.Features(s)
	if err != nil {
		return Prediction{}, err
	}
	out, err := a.model.Predict(ctx, []FeatureVector{row})
	if err != nil {
		return Prediction{}, fmt.Errorf("model predict: %w", err)
	}
	if len(out) != 1 {
		return Prediction{}, fmt.Errorf("model returned %d classes for 1 row", len(out))
	}
	return a.Label(out[0])
}

// Label maps a class code to its Prediction.
func (a *Adapter) Label(code int) (Prediction, error) {
	label, ok := a.classes.Decode(code)
	if !ok {
		return Prediction{}, &UnknownClassError{Code: code}
	}
	return Prediction{Code: code, Label: label}, nil
}

func encode(c CategoryCode, field, value string) (float64, error) {
	code, ok := c.Encode(value)
	if !ok {
		return 0, &UnknownCategoryError{Field: field, Value: value}
	}
	return float64(code), nil
}
