package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

type fakeGenerator struct {
	code        string
	err         error
	panicWith   any
	generated   []string
	refinements int
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if g.panicWith != nil {
		panic(g.panicWith)
	}
	g.generated = append(g.generated, prompt)
	return g.code, g.err
}

func (g *fakeGenerator) Refine(_ context.Context, _, _ string) (string, error) {
	g.refinements++
	return g.code, g.err
}

type fakeChecker struct {
	valid  bool
	checks int
}

func (c *fakeChecker) IsValid(context.Context, string) bool {
	c.checks++
	return c.valid
}

func (c *fakeChecker) ErrorMessage(context.Context, string) string {
	if c.valid {
		return ""
	}
	return "PlantUML Syntax Error: bad"
}

type fakeSVG struct {
	svg   string
	err   error
	calls int
}

func (r *fakeSVG) RenderSVG(context.Context, string) (string, error) {
	r.calls++
	return r.svg, r.err
}

const candidate = "@startuml\nA -> B\n@enduml"

func TestWorkflow_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{code: candidate}
		w := NewWorkflow(gen, &fakeChecker{valid: true}, &fakeSVG{svg: "<svg/>"})

		res := w.Generate(ctx, "simple login sequence")
		assert.Equal(t, Result{Code: candidate, SVGPreview: "<svg/>", Valid: true}, res)
		assert.Equal(t, []string{"simple login sequence"}, gen.generated)
	})

	t.Run("validator verdict is advisory", func(t *testing.T) {
		checker := &fakeChecker{valid: false}
		w := NewWorkflow(&fakeGenerator{code: candidate}, checker, &fakeSVG{svg: "<svg/>"})

		res := w.Generate(ctx, "p")
		assert.True(t, res.Valid)
		assert.Equal(t, 1, checker.checks)
	})

	t.Run("render failure keeps code", func(t *testing.T) {
		renderer := &fakeSVG{err: &rendering.RenderError{Message: "Error line 2: Syntax Error?"}}
		w := NewWorkflow(&fakeGenerator{code: candidate}, &fakeChecker{valid: true}, renderer)

		res := w.Generate(ctx, "p")
		assert.False(t, res.Valid)
		assert.Equal(t, candidate, res.Code)
		assert.Empty(t, res.SVGPreview)
		assert.Equal(t, "PlantUML Syntax Error: Error line 2: Syntax Error?. Please refine your prompt.", res.ErrorMessage)
	})

	t.Run("invalid markers are a generic failure", func(t *testing.T) {
		w := NewWorkflow(&fakeGenerator{code: "A -> B"}, &fakeChecker{}, &fakeSVG{err: rendering.ErrInvalidInput})

		res := w.Generate(ctx, "p")
		assert.False(t, res.Valid)
		assert.Equal(t, "A -> B", res.Code)
		assert.Equal(t, "Error generating diagram: "+rendering.ErrInvalidInput.Error(), res.ErrorMessage)
	})

	t.Run("llm failure", func(t *testing.T) {
		renderer := &fakeSVG{}
		w := NewWorkflow(&fakeGenerator{err: errors.New("quota exceeded")}, &fakeChecker{}, renderer)

		res := w.Generate(ctx, "p")
		assert.Equal(t, Result{ErrorMessage: "Error generating diagram: quota exceeded"}, res)
		assert.Zero(t, renderer.calls)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		w := NewWorkflow(&fakeGenerator{panicWith: "boom"}, &fakeChecker{}, &fakeSVG{})

		var res Result
		assert.NotPanics(t, func() { res = w.Generate(ctx, "p") })
		assert.False(t, res.Valid)
		assert.Equal(t, "Error generating diagram: boom", res.ErrorMessage)
	})
}

func TestWorkflow_Refine(t *testing.T) {
	ctx := context.Background()

	t.Run("empty existing code short-circuits", func(t *testing.T) {
		gen := &fakeGenerator{code: candidate}
		renderer := &fakeSVG{}
		w := NewWorkflow(gen, &fakeChecker{}, renderer)

		res := w.Refine(ctx, "  ", "add C")
		assert.Equal(t, Result{Valid: false, ErrorMessage: "No existing code provided for refinement"}, res)
		assert.Zero(t, gen.refinements)
		assert.Zero(t, renderer.calls)
	})

	t.Run("render failure mentions feedback", func(t *testing.T) {
		w := NewWorkflow(&fakeGenerator{code: candidate}, &fakeChecker{}, &fakeSVG{err: &rendering.RenderError{Message: "Unknown error"}})

		res := w.Refine(ctx, candidate, "add C")
		assert.Equal(t, "PlantUML Syntax Error: Unknown error. Please refine your feedback or the code.", res.ErrorMessage)
		assert.Equal(t, candidate, res.Code)
	})

	t.Run("llm failure", func(t *testing.T) {
		w := NewWorkflow(&fakeGenerator{err: errors.New("timeout")}, &fakeChecker{}, &fakeSVG{})

		res := w.Refine(ctx, candidate, "add C")
		assert.Equal(t, "Error refining diagram: timeout", res.ErrorMessage)
	})

	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{code: candidate}
		w := NewWorkflow(gen, &fakeChecker{valid: true}, &fakeSVG{svg: "<svg/>"})

		res := w.Refine(ctx, candidate, "add C")
		assert.True(t, res.Valid)
		assert.Equal(t, 1, gen.refinements)
	})
}
