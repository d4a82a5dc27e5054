package rendering

import "errors"

const markerMessage = "PlantUML code must start with @startuml and end with @enduml"

var (
	// ErrInvalidInput is returned before any engine call when the source is not
	// wrapped in @startuml/@enduml.
	ErrInvalidInput = errors.New("invalid PlantUML code: must start with @startuml and end with @enduml")

	// ErrRenderingFailed matches every *RenderError.
	ErrRenderingFailed = errors.New("plantuml rendering failed")
)

// RenderError reports that the engine rejected the source or produced unusable output.
// Message is safe to show to users.
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error { return e.Cause }

func (e *RenderError) Is(target error) bool { return target == ErrRenderingFailed }

// IOError marks transport or output-capture failures raised by an Engine.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }
