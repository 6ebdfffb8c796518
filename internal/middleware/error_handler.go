package middleware

import (
	"github.com/gin-gonic/gin"

	"agency_messaging/pkg/errors"
)

// ErrorHandler отвечает {"error": ...} на ошибки, добавленные через c.Error,
// если обработчик сам ничего не записал
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		c.JSON(errors.HTTPStatusFromError(err.Err), gin.H{
			"error": err.Error(),
		})
	}
}
