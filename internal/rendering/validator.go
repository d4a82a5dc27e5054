package rendering

import (
	"context"
	"errors"
	"fmt"
)

// Validator is a cheap pre-flight check that renders a throwaway PNG. Its verdict
// is advisory; callers that need an image must still go through a Renderer.
type Validator struct {
	engine Engine
}

func NewValidator(engine Engine) *Validator {
	return &Validator{engine: engine}
}

func (v *Validator) IsValid(ctx context.Context, code string) bool {
	ok, _ := v.probe(ctx, code)
	return ok
}

// ErrorMessage returns "" when the code renders.
func (v *Validator) ErrorMessage(ctx context.Context, code string) string {
	_, msg := v.probe(ctx, code)
	return msg
}

func (v *Validator) probe(ctx context.Context, code string) (ok bool, msg string) {
	if err := CheckMarkers(code); err != nil {
		return false, markerMessage
	}

	buf := getBuffer()
	defer putBuffer(buf)

	defer func() {
		if r := recover(); r != nil {
			ok, msg = false, fmt.Sprintf("PlantUML Syntax Error: %v", r)
		}
	}()

	desc, err := v.engine.Generate(ctx, code, FormatPNG, buf)
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return false, "Error processing diagram: " + ioErr.Error()
		}
		return false, "PlantUML Syntax Error: " + err.Error()
	}
	if buf.Len() == 0 {
		if desc == "" {
			desc = "no output produced"
		}
		return false, "PlantUML Syntax Error: " + desc
	}
	return true, ""
}
