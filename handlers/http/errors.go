package httpHandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/usecases"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagName sync.Once

// useJSONFieldNames makes validator report the json name of a failed field
// instead of the Go struct field.
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes the body into req and turns any failure into a
// *usecases.ValidationError naming the offending field.
func bindJSON(c *gin.Context, req any) error {
	useJSONFieldNames()
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var timeErr *time.ParseError
	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		fe := verrs[0]
		if fe.Tag() == "required" {
			return usecases.NewValidationError(fe.Field(), "is required")
		}
		return usecases.NewValidationError(fe.Field(), "failed "+fe.Tag()+" check")
	case errors.As(err, &typeErr):
		return usecases.NewValidationError(typeErr.Field, "must be a "+jsonKind(typeErr.Type))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return usecases.NewValidationError("", "malformed JSON body")
	case errors.As(err, &timeErr):
		return usecases.NewValidationError("timestamp", "must be an RFC 3339 time")
	case errors.Is(err, io.EOF):
		return usecases.NewValidationError("", "request body is required")
	default:
		return usecases.NewValidationError("", err.Error())
	}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Uint, reflect.Uint64:
		return "integer"
	case reflect.Float64, reflect.Float32:
		return "number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

// StatusClientClosedRequest is written when the caller went away before
// the store answered. Nobody reads the response.
const StatusClientClosedRequest = 499

// respondError writes the error envelope for err.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		logging.Component("http").Debug("request canceled by client", "path", c.FullPath())
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}

	var ve *usecases.ValidationError
	if errors.As(err, &ve) {
		body := gin.H{"status": "error", "message": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	_ = c.Error(err)
	if usecases.IsRetriable(err) {
		logging.Component("http").Warn("store unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "error",
			"message":   "storage temporarily unavailable",
			"retriable": true,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
}
