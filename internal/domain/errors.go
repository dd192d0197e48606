package domain

import (
	"fmt"
	"strings"
)

// EmptyCategoryError reports a template whose weather code matched no
// historical observation.
type EmptyCategoryError struct {
	Label string
	Code  int
}

func (e *EmptyCategoryError) Error() string {
	return fmt.Sprintf("template %q: no observations with weather code %d", e.Label, e.Code)
}

// UnknownCategoryError reports a categorical value outside its domain.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: unknown category %q", e.Field, e.Value)
}

// UnknownClassError reports a model class code with no display label.
type UnknownClassError struct {
	Code int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("unknown class code %d", e.Code)
}

// OutOfRangeError reports a numeric field outside its inclusive bounds.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// ValidationError collects every field-level problem found in one InputState.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.Problems }
