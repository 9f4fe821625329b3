package ui

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"kpidash/internal/errors"
)

// renderTemplate executes into a buffer first so a template error never
// leaves a half-written page
func (s *Server) renderTemplate(c *gin.Context, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template %s failed: %v", name, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "template rendering failed",
			"code":  errors.CodeInternalError,
		})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Writer.WriteHeader(status)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		s.logger.Warn("writing %s response: %v", name, err)
	}
}

// respondError writes err as {"error", "code"} with the status its code maps to
func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": errors.UserMessage(err),
		"code":  errors.GetCode(err),
	})
}
