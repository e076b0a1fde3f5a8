package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

// ErrorBody is the failure contract understood by the dashboard.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends data as-is, without an envelope.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, data)
}

// Message sends {"message": message} merged with any extra fields.
func Message(c *gin.Context, status int, message string, fields ...gin.H) {
	body := gin.H{}
	for _, extra := range fields {
		for k, v := range extra {
			body[k] = v
		}
	}
	body["message"] = message
	JSON(c, status, body)
}

// OK is Message with HTTP 200.
func OK(c *gin.Context, message string, fields ...gin.H) {
	Message(c, http.StatusOK, message, fields...)
}

// Error sends {"error": ...} using the status of the typed error. The
// underlying cause is part of the message so the caller sees why a batch failed.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	noStore(c)
	c.JSON(appErr.Status, ErrorBody{Error: appErr.Error(), Code: appErr.Code})
}
