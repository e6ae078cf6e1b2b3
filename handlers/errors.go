package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"studyhub/apperrors"
	"studyhub/logger"
)

// respondError renders err at the request boundary. Forbidden responses
// carry no detail.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperrors.FieldError{Field: fieldName(fe), Error: describe(fe)})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}

	var appErr *apperrors.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "fields": nonNilFields(apperrors.FieldsOf(err))})
	case errors.Is(err, apperrors.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": message})
	case errors.Is(err, apperrors.ErrEmptyPool):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": message})
	default:
		log.Error("request failed", "path", c.FullPath(), "method", c.Request.Method, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindError renders a request body that could not be decoded or validated.
func bindError(c *gin.Context, log *logger.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "fields": []apperrors.FieldError{}})
}

func nonNilFields(fields []apperrors.FieldError) []apperrors.FieldError {
	if fields == nil {
		return []apperrors.FieldError{}
	}
	return fields
}

// UseJSONFieldNames makes binding errors report json field names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "failed on " + fe.Tag()
}

// uintParam parses a positive id path parameter.
func uintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation(name, "invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func boolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
