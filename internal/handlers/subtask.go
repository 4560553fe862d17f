package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/utils"
	"gorm.io/gorm"
)

// Subtasks are task rows one level under a parent. Concurrent edits are
// last-writer-wins; there is no version check.

type CreateSubtaskRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

type UpdateSubtaskRequest struct {
	Title     *string `json:"title" binding:"omitempty,max=200"`
	Completed *bool   `json:"completed"`
}

func CreateSubtask(ctx *gin.Context) {
	parent, ok := resolveParentTask(ctx)
	if !ok {
		return
	}

	var req CreateSubtaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	subtask := models.Task{
		Title:        req.Title,
		Status:       models.StatusTodo,
		Priority:     parent.Priority,
		OwnerID:      parent.OwnerID,
		ProjectID:    parent.ProjectID,
		ParentTaskID: &parent.ID,
	}

	if err := db.DB.Create(&subtask).Error; err != nil {
		log.Printf("Failed to create subtask: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, taskResponse(subtask))
}

func UpdateSubtask(ctx *gin.Context) {
	subtask, ok := resolveSubtask(ctx)
	if !ok {
		return
	}

	var req UpdateSubtaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "title", Message: "is required"}})
			return
		}
		subtask.Title = *req.Title
	}

	if req.Completed != nil {
		applySubtaskCompletion(&subtask, *req.Completed)
	}

	if err := db.DB.Save(&subtask).Error; err != nil {
		log.Printf("Failed to update subtask: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(subtask))
}

func DeleteSubtask(ctx *gin.Context) {
	subtask, ok := resolveSubtask(ctx)
	if !ok {
		return
	}

	if err := db.DB.Delete(&subtask).Error; err != nil {
		log.Printf("Failed to delete subtask: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func ToggleSubtask(ctx *gin.Context) {
	subtask, ok := resolveSubtask(ctx)
	if !ok {
		return
	}

	applySubtaskCompletion(&subtask, subtask.Status != models.StatusDone)

	if err := db.DB.Save(&subtask).Error; err != nil {
		log.Printf("Failed to toggle subtask: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(subtask))
}

func applySubtaskCompletion(subtask *models.Task, completed bool) {
	if completed {
		if subtask.Status != models.StatusDone {
			now := time.Now()
			subtask.Status = models.StatusDone
			subtask.CompletedAt = &now
		}
	} else {
		subtask.Status = models.StatusTodo
		subtask.CompletedAt = nil
	}
}

func resolveParentTask(ctx *gin.Context) (models.Task, bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return models.Task{}, false
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Task{}, false
	}

	parent, err := authz.FindTaskForUser(userID, taskID, false)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return models.Task{}, false
	}

	if parent.ParentTaskID != nil {
		respondFieldErrors(ctx, []utils.FieldError{{Field: "task_id", Message: "subtasks cannot have subtasks"}})
		return models.Task{}, false
	}

	return parent, true
}

func resolveSubtask(ctx *gin.Context) (models.Task, bool) {
	parent, ok := resolveParentTask(ctx)
	if !ok {
		return models.Task{}, false
	}

	subtaskID, err := utils.GetSubtaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Task{}, false
	}

	var subtask models.Task

	if err := db.DB.Where("id = ? AND parent_task_id = ?", subtaskID, parent.ID).First(&subtask).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Subtask not found"})
		} else {
			log.Printf("Failed to fetch subtask: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return models.Task{}, false
	}

	return subtask, true
}
