package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// sortColumns is the allow-list for list sorting. Priority maps to a rank
// expression so high > medium > low instead of lexicographic order.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"title":      "title",
	"priority":   "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 END",
}

type CreateTaskRequest struct {
	Title        string   `json:"title" binding:"required,max=200"`
	Description  string   `json:"description" binding:"omitempty,max=2000"`
	Status       string   `json:"status" binding:"omitempty,oneof=todo in_progress done cancelled"`
	Priority     string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category     string   `json:"category" binding:"omitempty,max=100"`
	Tags         []string `json:"tags"`
	DueDate      string   `json:"due_date"`
	ProjectID    *uint    `json:"project_id"`
	ParentTaskID *uint    `json:"parent_task_id"`
}

type UpdateTaskRequest struct {
	Title       *string   `json:"title" binding:"omitempty,max=200"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Status      *string   `json:"status" binding:"omitempty,oneof=todo in_progress done cancelled"`
	Priority    *string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category    *string   `json:"category" binding:"omitempty,max=100"`
	Tags        *[]string `json:"tags"`
	DueDate     *string   `json:"due_date"`
	ProjectID   *uint     `json:"project_id"`
}

type BulkTaskRequest struct {
	TaskIDs []uint `json:"task_ids" binding:"required,min=1"`
}

type TaskResponse struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Status       string         `json:"status"`
	Priority     string         `json:"priority"`
	Category     string         `json:"category,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	DueDate      *time.Time     `json:"due_date,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ReminderSent bool           `json:"reminder_sent"`
	Archived     bool           `json:"archived"`
	OwnerID      uint           `json:"owner_id"`
	OwnerName    string         `json:"owner_name,omitempty"`
	ProjectID    *uint          `json:"project_id,omitempty"`
	ProjectName  string         `json:"project_name,omitempty"`
	ParentTaskID *uint          `json:"parent_task_id,omitempty"`
	Subtasks     []TaskResponse `json:"subtasks,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func CreateTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := utils.ParseDueDate(req.DueDate)
		if err != nil {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "due_date", Message: "must be a valid date"}})
			return
		}
		dueDate = &parsed
	}

	if req.ProjectID != nil {
		if _, err := authz.FindProjectForUser(userID, *req.ProjectID); err != nil {
			respondAccessError(ctx, err, "Project")
			return
		}
	}

	if req.ParentTaskID != nil {
		parent, err := authz.FindTaskForUser(userID, *req.ParentTaskID, false)
		if err != nil {
			respondAccessError(ctx, err, "Task")
			return
		}
		// Subtasks nest exactly one level deep.
		if parent.ParentTaskID != nil {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "parent_task_id", Message: "subtasks cannot have subtasks"}})
			return
		}
	}

	priority := req.Priority
	if priority == "" {
		var owner models.User
		if err := db.DB.First(&owner, userID).Error; err != nil {
			log.Printf("Failed to fetch user for priority default: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		priority = owner.DefaultPriority
		if priority == "" {
			priority = models.PriorityMedium
		}
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}

	task := models.Task{
		Title:        req.Title,
		Description:  req.Description,
		Status:       status,
		Priority:     priority,
		Category:     req.Category,
		Tags:         marshalTags(req.Tags),
		DueDate:      dueDate,
		OwnerID:      userID,
		ProjectID:    req.ProjectID,
		ParentTaskID: req.ParentTaskID,
	}

	if status == models.StatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}

	if err := db.DB.Create(&task).Error; err != nil {
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastTaskEvent(userID, "task.created", task)

	ctx.JSON(http.StatusCreated, taskResponse(task))
}

func ListTasks(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query, ok := buildTaskQuery(ctx, userID)
	if !ok {
		return
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		log.Printf("Failed to count tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	page, limit := pagination(ctx)

	var tasks []models.Task
	if err := query.Order(taskOrder(ctx)).Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&tasks).Error; err != nil {
		log.Printf("Failed to list tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskResponse(task))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"tasks": responses,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

func GetTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	includeDeleted := ctx.Query("deleted") == "true"

	task, err := authz.FindTaskForUser(userID, taskID, includeDeleted)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return
	}

	// Reload with associations for the detail view.
	loader := db.DB.Preload("Owner").Preload("Project").Preload("Subtasks")
	if includeDeleted {
		loader = loader.Unscoped()
	}
	if err := loader.First(&task, task.ID).Error; err != nil {
		log.Printf("Failed to load task associations: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func UpdateTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := authz.FindTaskForUser(userID, taskID, false)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return
	}

	var req UpdateTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "title", Message: "is required"}})
			return
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Tags != nil {
		task.Tags = marshalTags(*req.Tags)
	}

	if req.ProjectID != nil {
		if _, err := authz.FindProjectForUser(userID, *req.ProjectID); err != nil {
			respondAccessError(ctx, err, "Project")
			return
		}
		task.ProjectID = req.ProjectID
	}

	if req.DueDate != nil {
		// Changing the due date does not re-arm reminder_sent: a task gets
		// at most one reminder unless the send itself failed.
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			parsed, err := utils.ParseDueDate(*req.DueDate)
			if err != nil {
				respondFieldErrors(ctx, []utils.FieldError{{Field: "due_date", Message: "must be a valid date"}})
				return
			}
			task.DueDate = &parsed
		}
	}

	if req.Status != nil && *req.Status != task.Status {
		applyStatusTransition(&task, *req.Status)
	}

	if err := db.DB.Save(&task).Error; err != nil {
		log.Printf("Failed to update task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastTaskEvent(task.OwnerID, "task.updated", task)

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func DeleteTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := authz.FindTaskForUser(userID, taskID, false)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return
	}

	// Soft delete; subtasks go with their parent.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_task_id = ?", task.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})

	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	BroadcastTaskEvent(task.OwnerID, "task.deleted", task)

	ctx.Status(http.StatusNoContent)
}

func CompleteTask(ctx *gin.Context) {
	setTaskStatus(ctx, models.StatusDone, "task.completed")
}

func ArchiveTask(ctx *gin.Context) {
	setTaskArchived(ctx, true)
}

func RestoreTask(ctx *gin.Context) {
	setTaskArchived(ctx, false)
}

func SearchTasks(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	q := ctx.Query("q")
	if q == "" {
		respondFieldErrors(ctx, []utils.FieldError{{Field: "q", Message: "is required"}})
		return
	}

	var tasks []models.Task

	pattern := "%" + q + "%"

	err = db.DB.Where("owner_id = ? AND archived = ?", userID, false).
		Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?) OR LOWER(CAST(tags AS TEXT)) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern,
		).
		Order("created_at DESC").Order("id ASC").
		Limit(maxPageSize).
		Find(&tasks).Error

	if err != nil {
		log.Printf("Failed to search tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskResponse(task))
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": responses})
}

func OverdueTasks(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var tasks []models.Task

	err = db.DB.Where("owner_id = ? AND archived = ?", userID, false).
		Where("status NOT IN ?", []string{models.StatusDone, models.StatusCancelled}).
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Order("due_date ASC").Order("id ASC").
		Find(&tasks).Error

	if err != nil {
		log.Printf("Failed to list overdue tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskResponse(task))
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": responses})
}

// Bulk operations apply single-item semantics to every id the caller
// owns; ids that are missing or owned by someone else are skipped, not
// errors. The response reports how many rows actually changed.

func BulkCompleteTasks(ctx *gin.Context) {
	userID, ids, ok := bindBulkRequest(ctx)
	if !ok {
		return
	}

	now := time.Now()

	res := db.DB.Model(&models.Task{}).
		Where("id IN ? AND owner_id = ? AND status != ?", ids, userID, models.StatusDone).
		Updates(map[string]interface{}{
			"status":       models.StatusDone,
			"completed_at": now,
		})

	if res.Error != nil {
		log.Printf("Failed to bulk complete tasks: %v", res.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"modified_count": res.RowsAffected})
}

func BulkDeleteTasks(ctx *gin.Context) {
	userID, ids, ok := bindBulkRequest(ctx)
	if !ok {
		return
	}

	var modified int64

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_task_id IN ? AND owner_id = ?", ids, userID).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		res := tx.Where("id IN ? AND owner_id = ?", ids, userID).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}

		modified = res.RowsAffected
		return nil
	})

	if err != nil {
		log.Printf("Failed to bulk delete tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"modified_count": modified})
}

func BulkArchiveTasks(ctx *gin.Context) {
	userID, ids, ok := bindBulkRequest(ctx)
	if !ok {
		return
	}

	res := db.DB.Model(&models.Task{}).
		Where("id IN ? AND owner_id = ? AND archived = ?", ids, userID, false).
		Update("archived", true)

	if res.Error != nil {
		log.Printf("Failed to bulk archive tasks: %v", res.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"modified_count": res.RowsAffected})
}

func bindBulkRequest(ctx *gin.Context) (uint, []uint, bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, nil, false
	}

	var req BulkTaskRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return 0, nil, false
	}

	return userID, req.TaskIDs, true
}

// buildTaskQuery applies the AND-combined list filters. It writes the
// error response itself when a filter value is invalid.
func buildTaskQuery(ctx *gin.Context, userID uint) (*gorm.DB, bool) {
	query := db.DB.Model(&models.Task{})

	if ctx.Query("deleted") == "true" {
		query = query.Unscoped().Where("deleted_at IS NOT NULL")
	}

	if rawProject := ctx.Query("project_id"); rawProject != "" {
		projectID, err := strconv.ParseUint(rawProject, 10, 32)
		if err != nil {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "project_id", Message: "is invalid"}})
			return nil, false
		}
		if _, err := authz.FindProjectForUser(userID, uint(projectID)); err != nil {
			respondAccessError(ctx, err, "Project")
			return nil, false
		}
		query = query.Where("project_id = ?", uint(projectID))
	} else {
		query = query.Where("owner_id = ?", userID)
	}

	if ctx.Query("archived") == "true" {
		query = query.Where("archived = ?", true)
	} else {
		query = query.Where("archived = ?", false)
	}

	if status := ctx.Query("status"); status != "" {
		if !models.ValidStatus(status) {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "status", Message: "is invalid"}})
			return nil, false
		}
		query = query.Where("status = ?", status)
	}

	if priority := ctx.Query("priority"); priority != "" {
		if !models.ValidPriority(priority) {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "priority", Message: "is invalid"}})
			return nil, false
		}
		query = query.Where("priority = ?", priority)
	}

	if category := ctx.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	if tag := ctx.Query("tag"); tag != "" {
		query = query.Where("LOWER(CAST(tags AS TEXT)) LIKE LOWER(?)", "%\""+tag+"\"%")
	}

	if rawDue := ctx.Query("due_date"); rawDue != "" {
		day, err := time.Parse("2006-01-02", rawDue)
		if err != nil {
			respondFieldErrors(ctx, []utils.FieldError{{Field: "due_date", Message: "must be a valid date"}})
			return nil, false
		}
		query = query.Where("due_date >= ? AND due_date < ?", day, day.AddDate(0, 0, 1))
	}

	if q := ctx.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?) OR LOWER(CAST(tags AS TEXT)) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern,
		)
	}

	return query, true
}

func taskOrder(ctx *gin.Context) string {
	column, ok := sortColumns[ctx.DefaultQuery("sortBy", "created_at")]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if ctx.Query("sortOrder") == "asc" {
		direction = "ASC"
	}

	return column + " " + direction
}

func pagination(ctx *gin.Context) (int, int) {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	return page, limit
}

// applyStatusTransition keeps the completion invariant: completed_at is
// set exactly when the task is done.
func applyStatusTransition(task *models.Task, status string) {
	if status == models.StatusDone {
		now := time.Now()
		task.CompletedAt = &now
	} else if task.Status == models.StatusDone {
		task.CompletedAt = nil
	}
	task.Status = status
}

func setTaskStatus(ctx *gin.Context, status string, event string) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := authz.FindTaskForUser(userID, taskID, false)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return
	}

	if task.Status != status {
		applyStatusTransition(&task, status)

		if err := db.DB.Save(&task).Error; err != nil {
			log.Printf("Failed to update task status: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		BroadcastTaskEvent(task.OwnerID, event, task)
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func setTaskArchived(ctx *gin.Context, archived bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := authz.FindTaskForUser(userID, taskID, false)

	if err != nil {
		respondAccessError(ctx, err, "Task")
		return
	}

	if task.Archived != archived {
		task.Archived = archived

		if err := db.DB.Save(&task).Error; err != nil {
			log.Printf("Failed to update task archive flag: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

func marshalTags(tags []string) datatypes.JSON {
	if len(tags) == 0 {
		return nil
	}

	data, err := json.Marshal(tags)
	if err != nil {
		return nil
	}

	return datatypes.JSON(data)
}

func taskResponse(task models.Task) TaskResponse {
	resp := TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		Priority:     task.Priority,
		Category:     task.Category,
		DueDate:      task.DueDate,
		CompletedAt:  task.CompletedAt,
		ReminderSent: task.ReminderSent,
		Archived:     task.Archived,
		OwnerID:      task.OwnerID,
		ProjectID:    task.ProjectID,
		ParentTaskID: task.ParentTaskID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	if len(task.Tags) > 0 {
		var tags []string
		if err := json.Unmarshal(task.Tags, &tags); err == nil {
			resp.Tags = tags
		}
	}

	if task.Owner.ID != 0 {
		resp.OwnerName = task.Owner.Name
	}

	if task.Project != nil && task.Project.ID != 0 {
		resp.ProjectName = task.Project.Name
	}

	for _, subtask := range task.Subtasks {
		resp.Subtasks = append(resp.Subtasks, taskResponse(subtask))
	}

	return resp
}
