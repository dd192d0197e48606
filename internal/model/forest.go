// Package model provides the classifier behind the weather-type form: a
// tree-ensemble artifact evaluated in process, a remote inference client, and
// a caching decorator.
//
// # Artifact Format
//
// The artifact is JSON exported from a fitted scikit-learn decision tree or
// random forest. Each tree carries the estimator's tree_ arrays verbatim:
//
//	{
//	  "kind": "random_forest",
//	  "feature_names": ["Temperature", ..., "Location"],
//	  "classes": [0, 1, 2, 3],
//	  "trees": [
//	    {"children_left": [...], "children_right": [...],
//	     "feature": [...], "threshold": [...], "value": [[...], ...]}
//	  ]
//	}
//
// A node is a leaf when children_left is -1. Rows go left when
// x[feature] <= threshold, comparing in float32 as scikit-learn does. Each
// leaf's value is normalised to class probabilities, probabilities are
// averaged across trees, and the first class with the highest mean wins.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-type-service/internal/domain"
)

// LoadError reports a missing or malformed model artifact.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

const leaf = -1

type artifact struct {
	Kind         string   `json:"kind"`
	FeatureNames []string `json:"feature_names"`
	Classes      []int    `json:"classes"`
	Trees        []tree   `json:"trees"`
}

type tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is an immutable tree ensemble. It is safe for concurrent use.
type Forest struct {
	kind    string
	classes []int
	trees   []tree
}

// Load reads and validates the artifact at path.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	f, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}

// Parse decodes and validates an artifact.
func Parse(data []byte) (*Forest, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &Forest{kind: a.Kind, classes: a.Classes, trees: a.Trees}, nil
}

func (a *artifact) validate() error {
	switch a.Kind {
	case "decision_tree", "random_forest":
	default:
		return fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if len(a.FeatureNames) != domain.NumFeatures {
		return fmt.Errorf("model expects %d features, want %d", len(a.FeatureNames), domain.NumFeatures)
	}
	for i, name := range a.FeatureNames {
		if name != domain.FeatureNames[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, name, domain.FeatureNames[i])
		}
	}
	if len(a.Classes) == 0 {
		return errors.New("model declares no classes")
	}
	if len(a.Trees) == 0 {
		return errors.New("model has no trees")
	}
	if a.Kind == "decision_tree" && len(a.Trees) != 1 {
		return fmt.Errorf("decision_tree has %d trees", len(a.Trees))
	}
	for i := range a.Trees {
		if err := a.Trees[i].validate(len(a.Classes)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *tree) validate(nClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := range n {
		if len(t.Value[i]) != nClasses {
			return fmt.Errorf("node %d: %d class weights, want %d", i, len(t.Value[i]), nClasses)
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			if r != leaf {
				return fmt.Errorf("node %d: half leaf", i)
			}
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d: child index out of range", i)
		}
		if f := t.Feature[i]; f < 0 || f >= domain.NumFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, f)
		}
	}
	return nil
}

// Classes returns the class codes the model can emit.
func (f *Forest) Classes() []int {
	return append([]int(nil), f.classes...)
}

// Kind is "decision_tree" or "random_forest".
func (f *Forest) Kind() string { return f.kind }

// Predict classifies each row.
func (f *Forest) Predict(ctx context.Context, rows []domain.FeatureVector) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]int, len(rows))
	probs := make([]float64, len(f.classes))
	for i, row := range rows {
		clear(probs)
		for t := range f.trees {
			f.trees[t].accumulate(row, probs)
		}
		out[i] = f.classes[argmax(probs)]
	}
	return out, nil
}

func (t *tree) accumulate(row domain.FeatureVector, probs []float64) {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		x := float64(float32(row[t.Feature[node]]))
		if x <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	var total float64
	for _, w := range t.Value[node] {
		total += w
	}
	if total <= 0 {
		return
	}
	for k, w := range t.Value[node] {
		probs[k] += w / total
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
