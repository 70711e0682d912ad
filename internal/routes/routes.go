package routes

import (
	"io"
	"os"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"matatu_hub/internal/controllers"
	"matatu_hub/internal/middleware"
)

// Options tunes the engine built by SetupRouter.
type Options struct {
	CORSOrigins []string
	AccessLog   io.Writer // defaults to stdout
}

func SetupRouter(h *controllers.Handler, opts Options) *gin.Engine {
	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(ginlog.SetLogger(
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/health"}),
		ginlog.WithWriter(accessLog),
	))
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.GET("/health", h.Health)

	AuthRoutes(r, h)
	SaccoRoutes(r, h)
	OwnerRoutes(r, h)
	SaccoAdminRoutes(r, h)
	WebSocketRoutes(r, h)

	return r
}
