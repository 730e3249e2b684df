package renderer

import (
	"github.com/cockroachdb/errors"
)

// Stage sentinels. Every error returned by this package is marked with the
// sentinel of the stage that failed, so callers can branch with errors.Is.
var (
	ErrEnumeration                = errors.New("enumeration: no physical devices reported")
	ErrNoAcceptableDevice         = errors.New("device selection: no acceptable device")
	ErrInstanceCreation           = errors.New("instance creation failed")
	ErrValidationLayerUnavailable = errors.New("validation layer unavailable")
	ErrSurfaceCreation            = errors.New("surface creation failed")
	ErrDeviceCreation             = errors.New("logical device creation failed")
	ErrSwapchainCreation          = errors.New("swapchain creation failed")
	ErrShaderLoad                 = errors.New("shader load failed")
	ErrPipelineCreation           = errors.New("pipeline creation failed")
	ErrCommandRecording           = errors.New("command recording failed")
	ErrFrameSubmission            = errors.New("frame submission failed")
)

// stageError wraps err with the failing call and marks it with the stage sentinel.
func stageError(err error, stage error, call string) error {
	if err == nil {
		err = errors.New("rejected by driver")
	}
	return errors.Mark(errors.Wrap(err, call), stage)
}

// stageErrorf builds a new marked error for failures that have no underlying cause.
func stageErrorf(stage error, format string, args ...interface{}) error {
	return errors.Wrapf(stage, format, args...)
}
