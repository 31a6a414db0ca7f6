package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/testprep-service/internal/utils"
)

// BaseHandler carries the shared logging helpers every handler embeds.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	h.logger.Info(msg, args...)
}

func (h BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
}

// requireIDParam pulls a non-empty path parameter or writes a 400.
func (h BaseHandler) requireIDParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing " + name + " parameter",
		})
		return "", false
	}
	return id, true
}

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
