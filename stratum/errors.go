package stratum

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedJSON is returned when a line is not a JSON document.
	ErrMalformedJSON = errors.New("stratum: malformed json")
	// ErrEnvelope is returned when id, method, params, result or error are
	// missing, mistyped, or present in the wrong frame variant.
	ErrEnvelope = errors.New("stratum: invalid envelope")
	// ErrMethodMismatch means a payload was handed to the conversion for a
	// different message type. This is a routing bug on the caller's side.
	ErrMethodMismatch = errors.New("stratum: method mismatch")
	// ErrParamShape is returned when a params or result array has the wrong
	// length or an element has the wrong wire type for its position.
	ErrParamShape = errors.New("stratum: param shape mismatch")
	// ErrNoResult is returned when a response carrying an error is
	// converted into a result message.
	ErrNoResult = errors.New("stratum: no result")
	// ErrSerialize marks a well formed message that failed to encode.
	ErrSerialize = errors.New("stratum: serialization failed")
	// ErrMalformedHex is returned for odd-length or non-hex strings, and for
	// integers that are not exactly four bytes.
	ErrMalformedHex = errors.New("stratum: malformed hex")
	// ErrResponseShape is returned when building a response with both a
	// result and an error, or with neither.
	ErrResponseShape = errors.New("stratum: response needs exactly one of result or error")
	// ErrUnknownMethod is returned by the routing tables for methods that
	// have no catalog entry.
	ErrUnknownMethod = errors.New("stratum: unknown method")
)

// ShapeError describes where a positional array failed to decode. Index is
// -1 when the array itself (or its length) is wrong.
type ShapeError struct {
	Index int
	Want  int
	Got   int
	Err   error
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		if e.Err != nil {
			return fmt.Sprintf("%v: %v", ErrParamShape, e.Err)
		}
		return fmt.Sprintf("%v: want %d elements, got %d", ErrParamShape, e.Want, e.Got)
	}
	return fmt.Sprintf("%v: element %d: %v", ErrParamShape, e.Index, e.Err)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrParamShape
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// Stratum error codes as used by pools in the wild.
const (
	ErrCodeOther          = 20
	ErrCodeJobNotFound    = 21
	ErrCodeDuplicateShare = 22
	ErrCodeLowDifficulty  = 23
	ErrCodeUnauthorized   = 24
	ErrCodeNotSubscribed  = 25
)

func NewOtherError(msg string) *StratumError {
	return &StratumError{Code: ErrCodeOther, Message: msg}
}

func NewJobNotFoundError() *StratumError {
	return &StratumError{Code: ErrCodeJobNotFound, Message: "Job not found"}
}

func NewDuplicateShareError() *StratumError {
	return &StratumError{Code: ErrCodeDuplicateShare, Message: "Duplicate share"}
}

func NewLowDifficultyError() *StratumError {
	return &StratumError{Code: ErrCodeLowDifficulty, Message: "Low difficulty share"}
}

func NewUnauthorizedError() *StratumError {
	return &StratumError{Code: ErrCodeUnauthorized, Message: "Unauthorized worker"}
}

func NewNotSubscribedError() *StratumError {
	return &StratumError{Code: ErrCodeNotSubscribed, Message: "Not subscribed"}
}
