package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetTaskID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "task_id", "Task")
}

func GetSubtaskID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "subtask_id", "Subtask")
}

func GetProjectID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "project_id", "Project")
}

func parseIDParam(ctx *gin.Context, name string, label string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New(label + " ID not found")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid " + label + " ID")
	}

	return uint(id), nil
}
