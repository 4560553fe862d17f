package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/services"
	"github.com/taskmind-dev/taskmind/internal/utils"
)

// Wired from main at startup.
var Parser *services.TaskParser

type ParseTaskRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// ParseTask turns free text into a draft task via the NLP provider.
// Nothing is persisted; the client reviews the draft and POSTs /tasks.
func ParseTask(ctx *gin.Context) {
	var req ParseTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	parsed, err := Parser.Parse(ctx.Request.Context(), req.Text)

	if err != nil {
		log.Printf("Failed to parse task text: %v", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Task parsing is unavailable"})
		return
	}

	// The provider's output is untrusted: out-of-range enum values fall
	// back to defaults instead of failing the request.
	if !models.ValidPriority(parsed.Priority) {
		parsed.Priority = models.PriorityMedium
	}

	if parsed.DueDate != "" {
		if _, err := utils.ParseDueDate(parsed.DueDate); err != nil {
			parsed.DueDate = ""
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"draft": parsed})
}
