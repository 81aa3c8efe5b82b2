package scr

import "errors"

// Errors returned by New and Forward.
var (
	// ErrInvalidArgument is returned by New when the mean coordinate does
	// not have exactly three components.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShapeMismatch is returned by Forward for inputs that are not
	// (B, 3, H, W) with H and W positive multiples of OutputSubsample, and
	// by LoadStateDict for tensors of the wrong shape.
	ErrShapeMismatch = errors.New("shape mismatch")
)
