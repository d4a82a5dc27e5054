package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/auth"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func (h *Handler) generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "prompt required"})
		return
	}
	res := h.workflow.Generate(c.Request.Context(), req.Prompt)
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func (h *Handler) refine(c *gin.Context) {
	var req refineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	res := h.workflow.Refine(c.Request.Context(), req.ExistingCode, req.Feedback)
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func (h *Handler) createDiagram(c *gin.Context) {
	var req createDiagramReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.PlantUMLCode) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "title and plantuml_code required"})
		return
	}

	d, err := h.store.CreateDiagram(c.Request.Context(), domain.CreateDiagramInput{
		OwnerID:     auth.UserID(c),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Code:        req.PlantUMLCode,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "diagram": d})
}

func (h *Handler) listDiagrams(c *gin.Context) {
	items, err := h.store.ListDiagrams(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "diagrams": items})
}

func (h *Handler) getDiagram(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	d, err := h.store.GetDiagram(ctx, c.Param("id"), userID)
	if err != nil {
		writeLookupErr(c, err, "diagram not found")
		return
	}
	versions, err := h.store.ListVersions(ctx, d.ID, userID)
	if err != nil {
		writeLookupErr(c, err, "diagram not found")
		return
	}

	svg, renderErr := h.preview(ctx, d.PlantUMLCode)
	c.JSON(http.StatusOK, gin.H{"ok": true, "view": diagramView{
		Diagram:     d,
		Versions:    versions,
		SVGImage:    svg,
		RenderError: renderErr,
	}})
}

func (h *Handler) deleteDiagram(c *gin.Context) {
	ok, err := h.store.DeleteOwnedDiagram(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "diagram not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) addVersion(c *gin.Context) {
	var req addVersionReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PlantUMLCode) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "plantuml_code required"})
		return
	}

	v, err := h.store.AddVersion(c.Request.Context(), c.Param("id"), auth.UserID(c), domain.CreateVersionInput{
		Code:  req.PlantUMLCode,
		Label: strings.TrimSpace(req.Label),
		Notes: req.Notes,
	})
	if err != nil {
		writeLookupErr(c, err, "diagram not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "version": v})
}

func (h *Handler) getVersion(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid version number"})
		return
	}

	ctx := c.Request.Context()
	userID := auth.UserID(c)
	d, err := h.store.GetDiagram(ctx, c.Param("id"), userID)
	if err != nil {
		writeLookupErr(c, err, "diagram not found")
		return
	}
	v, err := h.store.GetVersionByNumber(ctx, d.ID, number, userID)
	if err != nil {
		writeLookupErr(c, err, "version not found")
		return
	}

	svg, renderErr := h.preview(ctx, v.PlantUMLCode)
	c.JSON(http.StatusOK, gin.H{"ok": true, "view": versionView{
		Diagram:     d,
		Version:     v,
		SVGImage:    svg,
		RenderError: renderErr,
	}})
}

func (h *Handler) switchVersion(c *gin.Context) {
	var req switchVersionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.VersionNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "version_number required"})
		return
	}

	ok, err := h.store.SwitchVersion(c.Request.Context(), c.Param("id"), req.VersionNumber, auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "diagram or version not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteVersion(c *gin.Context) {
	ok, err := h.store.DeleteVersion(c.Request.Context(), c.Param("version_id"), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "version could not be deleted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) diagramPNG(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := h.store.GetDiagram(ctx, c.Param("id"), auth.UserID(c))
	if err != nil {
		writeLookupErr(c, err, "diagram not found")
		return
	}

	png, err := h.renderer.RenderPNG(ctx, d.PlantUMLCode)
	if err != nil {
		logging.FromContext(ctx).LogErrorf("diagram_png", "diagram %s: %v", d.ID, err)
		c.String(http.StatusInternalServerError, "Error rendering diagram: %s", renderMessage(err))
		return
	}
	writeAttachment(c, d.Title, png)
}

func (h *Handler) renderPNG(c *gin.Context) {
	code, err := c.GetRawData()
	if err != nil || strings.TrimSpace(string(code)) == "" {
		c.String(http.StatusBadRequest, "PlantUML code cannot be empty.")
		return
	}

	png, err := h.renderer.RenderPNG(c.Request.Context(), string(code))
	if err != nil {
		writeRenderErr(c, err)
		return
	}
	writeAttachment(c, c.DefaultQuery("filename", "diagram"), png)
}

func (h *Handler) renderSVG(c *gin.Context) {
	code, err := c.GetRawData()
	if err != nil || strings.TrimSpace(string(code)) == "" {
		c.String(http.StatusBadRequest, "PlantUML code cannot be empty.")
		return
	}

	svg, err := h.renderer.RenderSVG(c.Request.Context(), string(code))
	if err != nil {
		writeRenderErr(c, err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(svg))
}

// preview renders code for display. Failures produce a placeholder image and
// a message instead of failing the request.
func (h *Handler) preview(ctx context.Context, code string) (svg, renderErr string) {
	svg, err := h.renderer.RenderSVG(ctx, code)
	switch {
	case err == nil:
		return svg, ""
	case errors.Is(err, rendering.ErrInvalidInput):
		return fallbackSVG("Invalid code structure."), "Invalid PlantUML code structure: " + err.Error()
	default:
		logging.FromContext(ctx).LogWarnf("preview", "render failed: %v", err)
		return fallbackSVG("Error rendering diagram."), "Could not render diagram preview: " + renderMessage(err)
	}
}

func fallbackSVG(text string) string {
	return fmt.Sprintf(`<svg width='100%%' height='100'><text x='10' y='50' fill='red'>%s</text></svg>`, html.EscapeString(text))
}

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_") + ".png"
}

func writeAttachment(c *gin.Context, name string, png []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(name)))
	c.Data(http.StatusOK, "image/png", png)
}

func writeRenderErr(c *gin.Context, err error) {
	if errors.Is(err, rendering.ErrInvalidInput) || errors.Is(err, rendering.ErrRenderingFailed) {
		c.String(http.StatusBadRequest, "Error rendering diagram: %s", renderMessage(err))
		return
	}
	logging.FromContext(c.Request.Context()).LogError("render", err)
	c.String(http.StatusInternalServerError, "Unexpected error creating diagram file.")
}

func writeLookupErr(c *gin.Context, err error, notFound string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": notFound})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}

func renderMessage(err error) string {
	var renderErr *rendering.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Message
	}
	return err.Error()
}
