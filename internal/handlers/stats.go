package handlers

import (
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/utils"
	"gorm.io/gorm"
)

type TaskStatsResponse struct {
	Total          int64 `json:"total"`
	Completed      int64 `json:"completed"`
	InProgress     int64 `json:"in_progress"`
	Todo           int64 `json:"todo"`
	Overdue        int64 `json:"overdue"`
	DueToday       int64 `json:"due_today"`
	DueThisWeek    int64 `json:"due_this_week"`
	CompletionRate int   `json:"completion_rate"`
}

// GetTaskStats recomputes the caller's counters on every call; there is
// no caching layer in front of the task table.
func GetTaskStats(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	stats, err := buildTaskStats(func() *gorm.DB {
		return db.DB.Model(&models.Task{}).Where("owner_id = ? AND archived = ?", userID, false)
	})

	if err != nil {
		log.Printf("Failed to build task stats: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

func GetProjectStats(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := authz.FindProjectForUser(userID, projectID); err != nil {
		respondAccessError(ctx, err, "Project")
		return
	}

	stats, err := buildTaskStats(func() *gorm.DB {
		return db.DB.Model(&models.Task{}).Where("project_id = ? AND archived = ?", projectID, false)
	})

	if err != nil {
		log.Printf("Failed to build project stats: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// buildTaskStats runs each counter against a fresh copy of the base
// query; scope decides whose tasks are counted.
func buildTaskStats(scope func() *gorm.DB) (TaskStatsResponse, error) {
	var stats TaskStatsResponse

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)
	endOfWeek := startOfDay.AddDate(0, 0, 7)

	counters := []struct {
		dest  *int64
		apply func(*gorm.DB) *gorm.DB
	}{
		{&stats.Total, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.Completed, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusDone) }},
		{&stats.InProgress, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusInProgress) }},
		{&stats.Todo, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusTodo) }},
		{&stats.Overdue, func(q *gorm.DB) *gorm.DB {
			return q.Where("status NOT IN ?", []string{models.StatusDone, models.StatusCancelled}).
				Where("due_date IS NOT NULL AND due_date < ?", now)
		}},
		{&stats.DueToday, func(q *gorm.DB) *gorm.DB {
			return q.Where("due_date >= ? AND due_date < ?", startOfDay, endOfDay)
		}},
		{&stats.DueThisWeek, func(q *gorm.DB) *gorm.DB {
			return q.Where("due_date >= ? AND due_date < ?", startOfDay, endOfWeek)
		}},
	}

	for _, counter := range counters {
		if err := counter.apply(scope()).Count(counter.dest).Error; err != nil {
			return TaskStatsResponse{}, err
		}
	}

	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}

	return stats, nil
}
