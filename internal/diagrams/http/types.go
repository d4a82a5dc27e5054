package http

import (
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/service"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

// Handler bundles the dependencies for diagram HTTP endpoints.
type Handler struct {
	store    *service.VersionStore
	workflow *service.Workflow
	renderer rendering.Renderer
}

func New(store *service.VersionStore, workflow *service.Workflow, renderer rendering.Renderer) *Handler {
	return &Handler{store: store, workflow: workflow, renderer: renderer}
}

type generateReq struct {
	Prompt string `json:"prompt"`
}

type refineReq struct {
	ExistingCode string `json:"existing_code"`
	Feedback     string `json:"feedback"`
}

type createDiagramReq struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	PlantUMLCode string `json:"plantuml_code"`
}

type addVersionReq struct {
	PlantUMLCode string `json:"plantuml_code"`
	Label        string `json:"label"`
	Notes        string `json:"notes"`
}

type switchVersionReq struct {
	VersionNumber int `json:"version_number"`
}

type diagramView struct {
	Diagram     *domain.Diagram         `json:"diagram"`
	Versions    []domain.DiagramVersion `json:"versions"`
	SVGImage    string                  `json:"svg_image"`
	RenderError string                  `json:"render_error,omitempty"`
}

type versionView struct {
	Diagram     *domain.Diagram        `json:"diagram"`
	Version     *domain.DiagramVersion `json:"version"`
	SVGImage    string                 `json:"svg_image"`
	RenderError string                 `json:"render_error,omitempty"`
}
