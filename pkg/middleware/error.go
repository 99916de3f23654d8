package middleware

import (
	"net/http"

	"licensing-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error pushed onto the gin context as the typed
// error envelope. Unclassified errors become a generic 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		if be, ok := errutil.AsBase(err.Err); ok {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		zap.L().Error("unclassified handler error", zap.Error(err.Err))
		be, _ := errutil.AsBase(errutil.Internal("internal server error"))
		c.JSON(http.StatusInternalServerError, be.JSON())
	}
}
