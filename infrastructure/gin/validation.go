package gin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithValidationError rejects a request whose body or query failed
// binding with 422 {"detail": "..."}.
func AbortWithValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
}
