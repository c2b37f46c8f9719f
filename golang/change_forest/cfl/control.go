package cfl

import (
	"math"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//RandomForestParameters controls the classifier behind the random_forest gain.
type RandomForestParameters struct {
	// NEstimators is the number of bagged trees. Default: 100.
	NEstimators int `json:"n_estimators" yaml:"n_estimators"`
	// MaxDepth limits the depth of every tree. Default: 8.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// MaxFeatures is the number of columns tried per tree node. 0 means ceil(sqrt(d)).
	MaxFeatures int `json:"max_features" yaml:"max_features"`
	// MinSamplesLeaf is the smallest number of rows in a tree leaf. Default: 1.
	MinSamplesLeaf int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

//Control collects every tuning parameter of a change forest run.
//Start with DefaultControl and override the fields you need.
type Control struct {
	// MinimalRelativeSegmentLength is the smallest segment considered, as a fraction of
	// the number of rows. Both children of a split have at least ceil(x*n) rows.
	MinimalRelativeSegmentLength float64 `json:"minimal_relative_segment_length" yaml:"minimal_relative_segment_length"`

	// MinimalGainToSplit optionally requires the maximal gain of a node to reach this
	// value before the node is split. nil disables the check.
	MinimalGainToSplit *float64 `json:"minimal_gain_to_split,omitempty" yaml:"minimal_gain_to_split,omitempty"`

	// ModelSelectionAlpha is the significance level: a node is split when its
	// permutation p-value is <= alpha.
	ModelSelectionAlpha float64 `json:"model_selection_alpha" yaml:"model_selection_alpha"`

	// ModelSelectionNPermutations is the number of permutations P. p-values are never
	// below 1/(P+1).
	ModelSelectionNPermutations int `json:"model_selection_n_permutations" yaml:"model_selection_n_permutations"`

	// NumberOfWildSegments is the number of random intervals drawn for wbs.
	NumberOfWildSegments int `json:"number_of_wild_segments" yaml:"number_of_wild_segments"`

	// SeededSegmentsAlpha is the decay of interval lengths between two layers of sbs.
	SeededSegmentsAlpha float64 `json:"seeded_segments_alpha" yaml:"seeded_segments_alpha"`

	// Seed feeds every random number generator of a run (wbs intervals, bootstrap
	// samples, permutations). Equal seeds give equal trees.
	Seed int64 `json:"seed" yaml:"seed"`

	// ForbiddenSegments lists closed intervals [a, b] of split indices that may not be used.
	ForbiddenSegments [][2]int `json:"forbidden_segments" yaml:"forbidden_segments"`

	// MaxDepth stops the recursion at this depth. 0 means unlimited.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// KNNNeighbours is the number of neighbours of the knn gain. 0 means floor(sqrt(L))
	// for a segment of length L.
	KNNNeighbours int `json:"knn_neighbours" yaml:"knn_neighbours"`

	// PredictionClip bounds classifier probabilities to [clip, 1-clip] before taking logs.
	PredictionClip float64 `json:"prediction_clip" yaml:"prediction_clip"`

	RandomForestParameters RandomForestParameters `json:"random_forest_parameters" yaml:"random_forest_parameters"`

	// Workers is the number of goroutines used for children, intervals and permutations.
	// 0 means runtime.NumCPU().
	Workers int `json:"workers" yaml:"workers"`

	Logger         *zap.Logger          `json:"-" yaml:"-"`
	TracerProvider trace.TracerProvider `json:"-" yaml:"-"`
}

//DefaultControl returns a Control with the defaults of the reference implementation.
func DefaultControl() *Control {
	return &Control{
		MinimalRelativeSegmentLength: 0.01,
		ModelSelectionAlpha:          0.02,
		ModelSelectionNPermutations:  199,
		NumberOfWildSegments:         100,
		SeededSegmentsAlpha:          1 / math.Sqrt2,
		PredictionClip:               0.01,
		RandomForestParameters: RandomForestParameters{
			NEstimators:    100,
			MaxDepth:       8,
			MinSamplesLeaf: 1,
		},
	}
}

//WithMinimalRelativeSegmentLength returns a copy of the control with the given minimal length.
func (control Control) WithMinimalRelativeSegmentLength(x float64) *Control {
	control.MinimalRelativeSegmentLength = x
	return &control
}

//WithForbiddenSegments returns a copy of the control with the given forbidden intervals.
func (control Control) WithForbiddenSegments(segments [][2]int) *Control {
	control.ForbiddenSegments = append([][2]int(nil), segments...)
	return &control
}

//WithSeed returns a copy of the control with the given seed.
func (control Control) WithSeed(seed int64) *Control {
	control.Seed = seed
	return &control
}

//WithWorkers returns a copy of the control with the given number of workers.
func (control Control) WithWorkers(workers int) *Control {
	control.Workers = workers
	return &control
}

//Validate reports every problem of the control at once.
func (control *Control) Validate() error {
	var errs error

	if !(control.MinimalRelativeSegmentLength > 0 && control.MinimalRelativeSegmentLength < 0.5) {
		errs = multierr.Append(errs, configError("minimal_relative_segment_length must be in (0, 0.5), got %v", control.MinimalRelativeSegmentLength))
	}
	if !(control.ModelSelectionAlpha > 0 && control.ModelSelectionAlpha <= 1) {
		errs = multierr.Append(errs, configError("model_selection_alpha must be in (0, 1], got %v", control.ModelSelectionAlpha))
	}
	if control.ModelSelectionNPermutations < 1 {
		errs = multierr.Append(errs, configError("model_selection_n_permutations must be >= 1, got %d", control.ModelSelectionNPermutations))
	}
	if control.NumberOfWildSegments < 0 {
		errs = multierr.Append(errs, configError("number_of_wild_segments must be >= 0, got %d", control.NumberOfWildSegments))
	}
	if !(control.SeededSegmentsAlpha > 0 && control.SeededSegmentsAlpha < 1) {
		errs = multierr.Append(errs, configError("seeded_segments_alpha must be in (0, 1), got %v", control.SeededSegmentsAlpha))
	}
	for _, segment := range control.ForbiddenSegments {
		if segment[0] < 0 || segment[0] > segment[1] {
			errs = multierr.Append(errs, configError("forbidden segment [%d, %d] must satisfy 0 <= start <= end", segment[0], segment[1]))
		}
	}
	if control.MaxDepth < 0 {
		errs = multierr.Append(errs, configError("max_depth must be >= 0, got %d", control.MaxDepth))
	}
	if control.KNNNeighbours < 0 {
		errs = multierr.Append(errs, configError("knn_neighbours must be >= 0, got %d", control.KNNNeighbours))
	}
	if !(control.PredictionClip > 0 && control.PredictionClip < 0.5) {
		errs = multierr.Append(errs, configError("prediction_clip must be in (0, 0.5), got %v", control.PredictionClip))
	}
	rf := control.RandomForestParameters
	if rf.NEstimators < 1 {
		errs = multierr.Append(errs, configError("random_forest_parameters.n_estimators must be >= 1, got %d", rf.NEstimators))
	}
	if rf.MaxDepth < 1 {
		errs = multierr.Append(errs, configError("random_forest_parameters.max_depth must be >= 1, got %d", rf.MaxDepth))
	}
	if rf.MaxFeatures < 0 {
		errs = multierr.Append(errs, configError("random_forest_parameters.max_features must be >= 0, got %d", rf.MaxFeatures))
	}
	if rf.MinSamplesLeaf < 1 {
		errs = multierr.Append(errs, configError("random_forest_parameters.min_samples_leaf must be >= 1, got %d", rf.MinSamplesLeaf))
	}
	if control.Workers < 0 {
		errs = multierr.Append(errs, configError("workers must be >= 0, got %d", control.Workers))
	}
	return errs
}

//withRuntimeDefaults returns a copy with the fields resolved at run time filled in.
func (control Control) withRuntimeDefaults() *Control {
	if control.Workers == 0 {
		control.Workers = runtime.NumCPU()
	}
	if control.Logger == nil {
		control.Logger = zap.NewNop()
	}
	if control.TracerProvider == nil {
		control.TracerProvider = otel.GetTracerProvider()
	}
	control.ForbiddenSegments = append([][2]int(nil), control.ForbiddenSegments...)
	return &control
}

//minimalSegmentLength is the smallest admissible number of rows of a child segment.
func (control *Control) minimalSegmentLength(n int) int {
	// 0.1 * 150 must give 15, not 16
	m := int(math.Ceil(control.MinimalRelativeSegmentLength*float64(n) - 1e-9))
	if m < 1 {
		m = 1
	}
	return m
}
