package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is implemented by each API handler. Root names the route
// prefix under /api/v1 and SetRoutes registers the handler's endpoints
// on the public, authenticated and admin groups.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
