package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/auth"
	diagramshttp "github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/http"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/service"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

type V1Deps struct {
	Users    auth.UserEnsurer
	Store    *service.VersionStore
	Workflow *service.Workflow
	Renderer rendering.Renderer
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	api.Use(auth.WithUser(dep.Users))

	diagramshttp.New(dep.Store, dep.Workflow, dep.Renderer).Register(api)
}
