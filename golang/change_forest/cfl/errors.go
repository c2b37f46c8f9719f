package cfl

import (
	"errors"
	"fmt"
)

var (
	//ErrInvalidConfiguration is returned when a Control cannot be used to build a tree.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	//ErrUnknownMethod is returned for a gain method name other than knn, change_in_mean or random_forest.
	ErrUnknownMethod = fmt.Errorf("%w: unknown method", ErrInvalidConfiguration)
	//ErrUnknownSegmentationType is returned for a segmentation type other than bs, wbs or sbs.
	ErrUnknownSegmentationType = fmt.Errorf("%w: unknown segmentation type", ErrInvalidConfiguration)
	//ErrInvalidMatrix is returned for nil, empty or non finite input data.
	ErrInvalidMatrix = errors.New("invalid matrix")
)

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
