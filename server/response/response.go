package response

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response. Clients branch on Status.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JSON writes the envelope with the given HTTP status. A non-nil err is
// surfaced verbatim in the error field.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	env := Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	}
	if err != nil {
		env.Error = err.Error()
		if env.Message == "" {
			env.Message = err.Error()
		}
	}
	c.JSON(status, env)
}
