package utils

import (
	"errors"
	"log"

	"github.com/kataras/iris/v12"

	"github.com/Dhyanvj/BuddyUp/store"
)

type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"data":  data,
		"meta":  PageMeta{Page: page, PerPage: perPage, Total: total},
		"links": iris.Map{},
	})
}

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}

// WriteError maps a store error kind onto an HTTP response. Transient
// and unknown failures hide the detail behind a generic message; the
// specific error gets logged instead.
func WriteError(ctx iris.Context, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		JSONError(ctx, iris.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, store.ErrNotFound):
		JSONError(ctx, iris.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrForbidden):
		JSONError(ctx, iris.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, store.ErrCapacityExceeded):
		JSONError(ctx, iris.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, store.ErrConflict):
		JSONError(ctx, iris.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrTransient):
		log.Printf("%s %s: %v", ctx.Method(), ctx.Path(), err)
		JSONError(ctx, iris.StatusServiceUnavailable, "unavailable", "Could not complete action, please try again.")
	default:
		log.Printf("%s %s: %v", ctx.Method(), ctx.Path(), err)
		JSONError(ctx, iris.StatusInternalServerError, "internal", "Could not complete action, please try again.")
	}
}

// HandleValidationErrors turns validator failures into a 400 listing
// the offending fields.
func HandleValidationErrors(err error, ctx iris.Context) {
	JSONError(ctx, iris.StatusBadRequest, "validation_error", err.Error())
}
