// Command validate checks a weather dataset and model artifact against the
// form catalog before deployment. It derives the preset templates, verifies
// the model's class space, predicts every preset and every dataset row, and
// reports accuracy.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset weather_classification_data.csv \
//	  -model model.json \
//	  [-catalog configs/catalog.yaml]
//
// Pass "-dataset -" to read CSV from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/couchcryptid/weather-type-service/internal/catalog"
	"github.com/couchcryptid/weather-type-service/internal/dataset"
	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/model"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	datasetPath string
	modelPath   string
	catalogPath string
	minAccuracy float64
}

func main() {
	var opts options
	flag.StringVar(&opts.datasetPath, "dataset", "", `dataset file (.csv or .xlsx), or "-" for CSV on stdin`)
	flag.StringVar(&opts.modelPath, "model", "", "model artifact (JSON tree ensemble)")
	flag.StringVar(&opts.catalogPath, "catalog", "", "catalog YAML (default: embedded)")
	flag.Float64Var(&opts.minAccuracy, "min-accuracy", 0, "fail when dataset accuracy is below this fraction")
	flag.Parse()

	if opts.datasetPath == "" || opts.modelPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(opts, os.Stdin, os.Stdout, os.Stderr))
}

func run(opts options, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "=== Weather Form Validation ===")
	fmt.Fprintln(stdout)

	cat, err := catalog.Load(opts.catalogPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	var observations []domain.Observation
	if opts.datasetPath == "-" {
		observations, err = dataset.ReadCSV(stdin)
	} else {
		observations, err = dataset.Load(opts.datasetPath)
	}
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	forest, err := model.Load(opts.modelPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load model: %v\n", err)
		return 1
	}

	ctx := context.Background()
	adapter, classPhase := validateClassSpace(cat, forest)
	phases := []*phase{
		validateCategories(cat, observations),
		classPhase,
	}
	if adapter != nil {
		phases = append(phases,
			validateTemplates(ctx, stdout, cat, observations, adapter),
			validateAccuracy(ctx, stdout, cat, observations, forest, opts.minAccuracy),
		)
	}

	fmt.Fprintln(stdout)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Records: %d observations, model %s with %d classes\n",
		len(observations), forest.Kind(), len(forest.Classes()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Categories ──
// The dataset's raw categorical spellings must have as many distinct values as
// the form offers, and every weather type must be known.

func validateCategories(cat *catalog.Catalog, observations []domain.Observation) *phase {
	p := &phase{name: "Phase 1: Dataset categories"}

	enc := newDatasetEncoder(observations)
	checks := []struct {
		column string
		got    int
		want   domain.CategoryCode
	}{
		{dataset.ColCloudCover, enc.cloud.Len(), cat.Codes.CloudCover},
		{dataset.ColSeason, enc.season.Len(), cat.Codes.Season},
		{dataset.ColLocation, enc.location.Len(), cat.Codes.Location},
	}
	for _, c := range checks {
		if c.got != c.want.Len() {
			p.errorf("%s: dataset has %d distinct values, form offers %d", c.column, c.got, c.want.Len())
		}
	}

	unknown := map[string]int{}
	for _, o := range observations {
		if !cat.WeatherTypes.Contains(o.WeatherType) {
			unknown[o.WeatherType]++
		}
	}
	for _, wt := range sortedKeys(unknown) {
		p.errorf("%s %q: %d rows not in catalog weather_types", dataset.ColWeatherType, wt, unknown[wt])
	}
	return p
}

// ── Phase 2: Class space ──

func validateClassSpace(cat *catalog.Catalog, forest *model.Forest) (*domain.Adapter, *phase) {
	p := &phase{name: "Phase 2: Model class space"}
	adapter, err := domain.NewAdapter(cat.Codes, cat.Classes, forest)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	if n := len(forest.Classes()); n != cat.Classes.Len() {
		p.errorf("model has %d classes, catalog labels %d", n, cat.Classes.Len())
	}
	return adapter, p
}

// ── Phase 3: Templates ──
// Every preset must derive, validate, and be predicted as its own label.

func validateTemplates(ctx context.Context, out io.Writer, cat *catalog.Catalog,
	observations []domain.Observation, adapter *domain.Adapter) *phase {
	p := &phase{name: "Phase 3: Preset templates"}

	templates, err := domain.DeriveTemplates(observations, cat.Templates, cat.WeatherTypes)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	for _, spec := range cat.Templates {
		tmpl := templates[spec.Label]
		if err := tmpl.Values.Validate(cat.Codes); err != nil {
			p.errorf("template %q: %v", spec.Label, err)
			continue
		}
		pred, err := adapter.Predict(ctx, tmpl.Values)
		if err != nil {
			p.errorf("template %q: %v", spec.Label, err)
			continue
		}
		fmt.Fprintf(out, "  %-10s -> %-10s %+v\n", spec.Label, pred.Label, tmpl.Values)
		if pred.Label != spec.Label {
			p.errorf("template %q is predicted as %q", spec.Label, pred.Label)
		}
	}
	return p
}

// ── Phase 4: Accuracy ──
// Dataset rows are encoded the way the model was trained: each categorical
// column's distinct values in sorted order get codes 0..n-1.

func validateAccuracy(ctx context.Context, out io.Writer, cat *catalog.Catalog,
	observations []domain.Observation, predictor domain.Predictor, minAccuracy float64) *phase {
	p := &phase{name: "Phase 4: Dataset accuracy"}

	enc := newDatasetEncoder(observations)
	rows := make([]domain.FeatureVector, 0, len(observations))
	want := make([]int, 0, len(observations))
	for _, o := range observations {
		code, ok := cat.WeatherTypes.Encode(o.WeatherType)
		if !ok {
			continue
		}
		rows = append(rows, enc.features(o))
		want = append(want, code)
	}
	if len(rows) == 0 {
		p.errorf("no labelled rows to score")
		return p
	}

	got, err := predictor.Predict(ctx, rows)
	if err != nil {
		p.errorf("predict: %v", err)
		return p
	}

	correct := 0
	for i := range got {
		if got[i] == want[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(rows))
	fmt.Fprintf(out, "  accuracy: %d/%d = %.4f\n", correct, len(rows), accuracy)
	if accuracy < minAccuracy {
		p.errorf("accuracy %.4f below minimum %.4f", accuracy, minAccuracy)
	}
	return p
}

// ── Helpers ──

type datasetEncoder struct {
	cloud, season, location domain.CategoryCode
}

func newDatasetEncoder(observations []domain.Observation) datasetEncoder {
	distinct := func(get func(domain.Observation) string) domain.CategoryCode {
		seen := map[string]int{}
		for _, o := range observations {
			if v := get(o); v != "" {
				seen[v]++
			}
		}
		labels := sortedKeys(seen)
		if len(labels) == 0 {
			return domain.CategoryCode{}
		}
		return domain.MustCategoryCode(labels...)
	}
	return datasetEncoder{
		cloud:    distinct(func(o domain.Observation) string { return o.CloudCover }),
		season:   distinct(func(o domain.Observation) string { return o.Season }),
		location: distinct(func(o domain.Observation) string { return o.Location }),
	}
}

func (e datasetEncoder) features(o domain.Observation) domain.FeatureVector {
	cloud, _ := e.cloud.Encode(o.CloudCover)
	season, _ := e.season.Encode(o.Season)
	location, _ := e.location.Encode(o.Location)
	return domain.FeatureVector{
		o.Temperature,
		o.Humidity,
		o.WindSpeed,
		o.Precipitation,
		float64(cloud),
		o.AtmosphericPressure,
		o.UVIndex,
		float64(season),
		o.Visibility,
		float64(location),
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
