package domain

import (
	"errors"
	"fmt"
)

// CategoryCode is a bijection between a closed set of labels and the dense
// integer codes 0..k-1 the model was trained on. A label's code is its
// position in the list passed to NewCategoryCode.
type CategoryCode struct {
	labels []string
	codes  map[string]int
}

// NewCategoryCode builds a CategoryCode from labels ordered by code.
func NewCategoryCode(labels ...string) (CategoryCode, error) {
	if len(labels) == 0 {
		return CategoryCode{}, errors.New("category code needs at least one label")
	}
	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		if l == "" {
			return CategoryCode{}, fmt.Errorf("empty label at code %d", i)
		}
		if prev, dup := codes[l]; dup {
			return CategoryCode{}, fmt.Errorf("duplicate label %q at codes %d and %d", l, prev, i)
		}
		codes[l] = i
	}
	return CategoryCode{
		labels: append([]string(nil), labels...),
		codes:  codes,
	}, nil
}

// MustCategoryCode is NewCategoryCode for fixed label sets; it panics on error.
func MustCategoryCode(labels ...string) CategoryCode {
	c, err := NewCategoryCode(labels...)
	if err != nil {
		panic(err)
	}
	return c
}

// Encode returns the code for label.
func (c CategoryCode) Encode(label string) (int, bool) {
	code, ok := c.codes[label]
	return code, ok
}

// Decode returns the label for code.
func (c CategoryCode) Decode(code int) (string, bool) {
	if code < 0 || code >= len(c.labels) {
		return "", false
	}
	return c.labels[code], true
}

// Contains reports whether label belongs to the domain.
func (c CategoryCode) Contains(label string) bool {
	_, ok := c.codes[label]
	return ok
}

// Labels returns the labels ordered by code.
func (c CategoryCode) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Len is the number of labels.
func (c CategoryCode) Len() int { return len(c.labels) }
