package rendering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
)

// Renderer turns PlantUML source into images.
type Renderer interface {
	RenderSVG(ctx context.Context, code string) (string, error)
	RenderPNG(ctx context.Context, code string) ([]byte, error)
}

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}

// CheckMarkers reports ErrInvalidInput unless the trimmed code starts with
// @startuml and ends with @enduml.
func CheckMarkers(code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || !strings.HasPrefix(trimmed, "@startuml") || !strings.HasSuffix(trimmed, "@enduml") {
		return ErrInvalidInput
	}
	return nil
}

// Gateway validates input, calls the engine and classifies its failures.
type Gateway struct {
	engine Engine
}

func NewGateway(engine Engine) *Gateway {
	return &Gateway{engine: engine}
}

func (g *Gateway) RenderSVG(ctx context.Context, code string) (string, error) {
	logger := logging.FromContext(ctx)
	if err := CheckMarkers(code); err != nil {
		logger.LogWarn("render_svg", "invalid PlantUML code (missing @startuml/@enduml)")
		return "", err
	}

	out, err := g.generate(ctx, code, FormatSVG)
	if err != nil {
		logger.LogError("render_svg", err)
		return "", err
	}

	svg := strings.TrimSpace(string(out))
	if !looksLikeSVG(svg) {
		logger.LogErrorf("render_svg", "output is not SVG (%d bytes)", len(svg))
		return "", &RenderError{Message: "Failed to render valid SVG content. PlantUML output might be incomplete or invalid."}
	}
	logger.LogDebugf("render_svg", "rendered %d bytes", len(svg))
	return svg, nil
}

func (g *Gateway) RenderPNG(ctx context.Context, code string) ([]byte, error) {
	logger := logging.FromContext(ctx)
	if err := CheckMarkers(code); err != nil {
		logger.LogWarn("render_png", "invalid PlantUML code (missing @startuml/@enduml)")
		return nil, err
	}

	out, err := g.generate(ctx, code, FormatPNG)
	if err != nil {
		logger.LogError("render_png", err)
		return nil, err
	}
	if len(out) == 0 {
		logger.LogErrorf("render_png", "engine produced empty output")
		return nil, &RenderError{Message: "Failed to render PNG content. PlantUML output was empty."}
	}
	logger.LogDebugf("render_png", "rendered %d bytes", len(out))
	return out, nil
}

// generate runs the engine into a pooled buffer and returns a copy of its output.
func (g *Gateway) generate(ctx context.Context, code string, format Format) (out []byte, err error) {
	buf := getBuffer()
	defer putBuffer(buf)

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &RenderError{Message: fmt.Sprintf("Unexpected error rendering diagram as %s: %v", format.label(), r)}
		}
	}()

	desc, genErr := g.engine.Generate(ctx, code, format, buf)
	if genErr != nil {
		var ioErr *IOError
		if errors.As(genErr, &ioErr) {
			return nil, &RenderError{Message: "IO error while rendering diagram as " + format.label(), Cause: genErr}
		}
		return nil, &RenderError{Message: "Unexpected error rendering diagram as " + format.label(), Cause: genErr}
	}

	if desc == "" {
		return nil, &RenderError{Message: "Unknown error"}
	}
	if strings.Contains(desc, "Error") {
		return nil, &RenderError{Message: desc}
	}

	return bytes.Clone(buf.Bytes()), nil
}

func looksLikeSVG(s string) bool {
	if strings.HasPrefix(s, "<svg") {
		return true
	}
	return strings.HasPrefix(s, "<?xml") && strings.Contains(s, "<svg")
}
