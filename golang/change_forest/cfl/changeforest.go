package cfl

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const tracerName = "github.com/tarstars/change_forest/cfl"

//ChangeForest detects the change points of the rows of X. method is one of knn,
//change_in_mean, random_forest and segmentationType one of bs, wbs, sbs. A nil control
//means DefaultControl(). Configuration and data problems are reported before any work
//starts.
func ChangeForest(X *mat.Dense, method, segmentationType string, control *Control) (*BinarySegmentationResult, error) {
	return ChangeForestContext(context.Background(), X, method, segmentationType, control)
}

//ChangeForestContext is ChangeForest that stops scheduling work once ctx is done and
//then returns ctx.Err().
func ChangeForestContext(ctx context.Context, X *mat.Dense, method, segmentationType string, control *Control) (_ *BinarySegmentationResult, err error) {
	if control == nil {
		control = DefaultControl()
	}
	if err := control.Validate(); err != nil {
		return nil, err
	}
	control = control.withRuntimeDefaults()

	ctx, span := control.TracerProvider.Tracer(tracerName).Start(ctx, "cfl.ChangeForest",
		trace.WithAttributes(
			attribute.String("change_forest.method", method),
			attribute.String("change_forest.segmentation_type", segmentationType),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	st, err := ParseSegmentationType(segmentationType)
	if err != nil {
		return nil, err
	}
	dm, err := NewDMatrix(X)
	if err != nil {
		return nil, err
	}

	n := dm.Height()
	span.SetAttributes(attribute.Int("change_forest.rows", n), attribute.Int("change_forest.columns", dm.Width()))

	gain, err := NewGain(m, dm, control)
	if err != nil {
		return nil, err
	}
	minimalLength := control.minimalSegmentLength(n)
	forbidden := NewForbiddenSet(control.ForbiddenSegments)
	segmentation, err := NewSegmentation(st, n, minimalLength, control)
	if err != nil {
		return nil, err
	}
	builder := newTreeBuilder(control, NewOptimizer(gain, minimalLength, forbidden), segmentation, minimalLength, forbidden)

	began := time.Now()
	root, err := builder.BuildTree(ctx, Segment{0, n}, 0)
	if err != nil {
		return nil, err
	}
	treeNodes, _ := flatten(make([]TreeNode, 0), root)

	result := &BinarySegmentationResult{
		Method:           m,
		SegmentationType: st,
		N:                n,
		TreeNodes:        treeNodes,
	}
	splitPoints := result.SplitPoints()
	span.SetAttributes(attribute.Int("change_forest.split_points", len(splitPoints)))
	control.Logger.Info("change forest built",
		zap.String("method", string(m)),
		zap.String("segmentation_type", string(st)),
		zap.Int("rows", n),
		zap.Int("nodes", len(treeNodes)),
		zap.Ints("split_points", splitPoints),
		zap.Duration("elapsed", time.Since(began)),
	)
	return result, nil
}
