package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is an API error carrying the HTTP status it should be reported with.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an *Error with the given message and HTTP status.
func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

var (
	ErrNotFound            = New("resource not found", http.StatusNotFound)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrInvalidPassword     = New("invalid email or password", http.StatusUnauthorized)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrForbidden           = New("forbidden", http.StatusForbidden)
	ErrAdminOnly           = New("only administrators can perform this action", http.StatusForbidden)
	ErrNotOwner            = New("only the owner of a report can modify it", http.StatusForbidden)
	ErrTooManyFiles        = New("a report accepts at most 2 media files", http.StatusBadRequest)
	ErrUnsupportedMedia    = New("only image and video files are accepted", http.StatusUnsupportedMediaType)
	ErrTooManyRequests     = New("too many requests, try again later", http.StatusTooManyRequests)

	// InActiveUserError is returned by repositories when a user has been blocked.
	InActiveUserError = errors.New("user is inactive")
)

// ErrReportLocked is returned when a non-draft report is edited, relocated or deleted.
func ErrReportLocked(status string) *Error {
	return New(fmt.Sprintf("report can no longer be modified: status is %s", status), http.StatusForbidden)
}

// ErrIllegalTransition is returned when an admin requests a status change the workflow forbids.
func ErrIllegalTransition(from, to string) *Error {
	return New(fmt.Sprintf("cannot move report from %s to %s", from, to), http.StatusUnprocessableEntity)
}

// GetUniqueContraintError maps a duplicate-key database error to a 400.
func GetUniqueContraintError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "already exists") {
		field := "record"
		if i := strings.Index(msg, "Key ("); i >= 0 {
			rest := msg[i+len("Key ("):]
			if j := strings.Index(rest, ")"); j > 0 {
				field = rest[:j]
			}
		}
		return New(fmt.Sprintf("%s already exists", field), http.StatusBadRequest)
	}
	return New(msg, http.StatusBadRequest)
}

// StatusOf returns the HTTP status an error should be reported with.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// ErrorHandler answers requests rejected by the rate limiter.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"status":  http.StatusTooManyRequests,
		"message": "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
		"error":   ErrTooManyRequests.Message,
	})
}
