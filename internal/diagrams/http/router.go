package http

import "github.com/gin-gonic/gin"

// Register attaches diagram routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	d := rg.Group("/diagrams")
	d.POST("/generate", h.generate)
	d.POST("/refine", h.refine)

	d.POST("", h.createDiagram)
	d.GET("", h.listDiagrams)
	d.GET("/:id", h.getDiagram)
	d.DELETE("/:id", h.deleteDiagram)
	d.GET("/:id/png", h.diagramPNG)

	d.POST("/:id/versions", h.addVersion)
	d.GET("/:id/versions/:number", h.getVersion)
	d.POST("/:id/switch", h.switchVersion)

	rg.DELETE("/versions/:version_id", h.deleteVersion)

	rg.POST("/render/png", h.renderPNG)
	rg.POST("/render/svg", h.renderSVG)
}
