/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import "errors"

var (
	ErrInsufficientSegments  = errors.New("at least two names are required to spin")
	ErrAlreadySpinning       = errors.New("a spin is already in progress")
	ErrUnsupportedCapability = errors.New("capability unsupported")
	ErrInvalidProfile        = errors.New("invalid intensity profile")
	ErrInvalidDuration       = errors.New("spin duration must be positive")
	ErrEngineClosed          = errors.New("engine closed")
)
