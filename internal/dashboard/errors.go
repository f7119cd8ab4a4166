package dashboard

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against a LoadError.
var (
	ErrNetwork          = errors.New("network error")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrAlreadySettled   = errors.New("session already settled")

	errNoModel = errors.New("loader returned no model")
)

// ErrorKind classifies a load failure.
type ErrorKind int

const (
	NetworkError ErrorKind = iota
	MalformedPayloadError
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network"
	case MalformedPayloadError:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	if k == MalformedPayloadError {
		return ErrMalformedPayload
	}
	return ErrNetwork
}

// LoadError is the single failure surfaced by a dashboard load.
type LoadError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Kind.sentinel(), e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNetwork) and errors.Is(err, ErrMalformedPayload) work.
func (e *LoadError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewNetworkError wraps a transport failure for source.
func NewNetworkError(source string, err error) *LoadError {
	return &LoadError{Kind: NetworkError, Source: source, Err: err}
}

// NewMalformedPayloadError wraps a decode or schema failure for source.
func NewMalformedPayloadError(source string, err error) *LoadError {
	return &LoadError{Kind: MalformedPayloadError, Source: source, Err: err}
}

// AsLoadError classifies any error as a LoadError. Errors that are not
// already classified are treated as network failures.
func AsLoadError(err error) *LoadError {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return NewNetworkError("", err)
}

// IsNetwork reports whether err is a network load failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsMalformed reports whether err is a malformed payload failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}
