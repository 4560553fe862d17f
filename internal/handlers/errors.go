package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/utils"
)

// respondAccessError maps guard errors onto the response taxonomy:
// absent resources are 404, resources owned by another tenant are 403,
// anything else is an internal failure that only gets logged server-side.
func respondAccessError(ctx *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, authz.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, authz.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this " + resource})
	default:
		log.Printf("Failed to resolve %s access: %v", resource, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func respondValidationError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation failed",
		"details": utils.ValidationDetails(err),
	})
}

func respondFieldErrors(ctx *gin.Context, details []utils.FieldError) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation failed",
		"details": details,
	})
}
