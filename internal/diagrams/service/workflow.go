package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

const noExistingCodeMessage = "No existing code provided for refinement"

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Refine(ctx context.Context, existingCode, feedback string) (string, error)
}

type SyntaxChecker interface {
	IsValid(ctx context.Context, code string) bool
	ErrorMessage(ctx context.Context, code string) string
}

type SVGRenderer interface {
	RenderSVG(ctx context.Context, code string) (string, error)
}

// Result is what generate/refine hand back to callers. It is never accompanied
// by an error: every failure is described by Valid and ErrorMessage.
type Result struct {
	Code         string `json:"plantuml_code"`
	SVGPreview   string `json:"svg_image,omitempty"`
	Valid        bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type Workflow struct {
	llm      Generator
	checker  SyntaxChecker
	renderer SVGRenderer
}

func NewWorkflow(llm Generator, checker SyntaxChecker, renderer SVGRenderer) *Workflow {
	return &Workflow{llm: llm, checker: checker, renderer: renderer}
}

func (w *Workflow) Generate(ctx context.Context, prompt string) Result {
	return w.run(ctx, "generate_diagram", "prompt", "generating", func() (string, error) {
		return w.llm.Generate(ctx, prompt)
	})
}

func (w *Workflow) Refine(ctx context.Context, existingCode, feedback string) Result {
	if strings.TrimSpace(existingCode) == "" {
		logging.FromContext(ctx).LogWarn("refine_diagram", "no existing code provided")
		return Result{Valid: false, ErrorMessage: noExistingCodeMessage}
	}
	return w.run(ctx, "refine_diagram", "feedback or the code", "refining", func() (string, error) {
		return w.llm.Refine(ctx, existingCode, feedback)
	})
}

func (w *Workflow) run(ctx context.Context, operation, refineHint, verb string, produce func() (string, error)) (res Result) {
	logger := logging.FromContext(ctx)

	var code string
	defer func() {
		if r := recover(); r != nil {
			logger.LogErrorf(operation, "panic: %v", r)
			res = Result{Code: code, ErrorMessage: fmt.Sprintf("Error %s diagram: %v", verb, r)}
		}
	}()

	code, err := produce()
	if err != nil {
		logger.LogError(operation, err)
		return Result{ErrorMessage: fmt.Sprintf("Error %s diagram: %s", verb, err.Error())}
	}
	logger.LogDebugf(operation, "candidate code:\n%s", code)

	// advisory only
	if !w.checker.IsValid(ctx, code) {
		logger.LogWarnf(operation, "candidate failed initial validation: %s", w.checker.ErrorMessage(ctx, code))
	}

	svg, err := w.renderer.RenderSVG(ctx, code)
	if err != nil {
		var renderErr *rendering.RenderError
		if errors.As(err, &renderErr) {
			logger.LogErrorf(operation, "rendering failed: %s", renderErr.Message)
			return Result{
				Code:         code,
				ErrorMessage: fmt.Sprintf("PlantUML Syntax Error: %s. Please refine your %s.", renderErr.Message, refineHint),
			}
		}
		logger.LogError(operation, err)
		return Result{Code: code, ErrorMessage: fmt.Sprintf("Error %s diagram: %s", verb, err.Error())}
	}

	logger.LogInfof(operation, "rendered preview (%d bytes)", len(svg))
	return Result{Code: code, SVGPreview: svg, Valid: true}
}
