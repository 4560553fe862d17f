package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type statsBody struct {
	Total          int64 `json:"total"`
	Completed      int64 `json:"completed"`
	InProgress     int64 `json:"in_progress"`
	Todo           int64 `json:"todo"`
	Overdue        int64 `json:"overdue"`
	DueToday       int64 `json:"due_today"`
	DueThisWeek    int64 `json:"due_this_week"`
	CompletionRate int   `json:"completion_rate"`
}

func TestGetTaskStats(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")
	_, other := registerUser(t, r, "Bob", "bob@example.com")

	createTask(t, r, token, gin.H{"title": "Done 1", "status": "done"})
	createTask(t, r, token, gin.H{"title": "Done 2", "status": "done"})
	createTask(t, r, token, gin.H{"title": "Done 3", "status": "done"})
	createTask(t, r, token, gin.H{"title": "Working", "status": "in_progress"})
	createTask(t, r, token, gin.H{
		"title":    "Late",
		"due_date": time.Now().AddDate(0, 0, -3).Format("2006-01-02"),
	})

	// Another tenant's tasks and archived tasks never count.
	createTask(t, r, other, gin.H{"title": "Bob's"})
	archived := createTask(t, r, token, gin.H{"title": "Archived"})
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/archive", archived.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks/stats", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}

	var stats statsBody
	decodeBody(t, w, &stats)

	if stats.Total != 5 {
		t.Errorf("total = %d, want 5", stats.Total)
	}
	if stats.Completed != 3 {
		t.Errorf("completed = %d, want 3", stats.Completed)
	}
	if stats.InProgress != 1 {
		t.Errorf("in_progress = %d, want 1", stats.InProgress)
	}
	if stats.Todo != 1 {
		t.Errorf("todo = %d, want 1", stats.Todo)
	}
	if stats.Overdue != 1 {
		t.Errorf("overdue = %d, want 1", stats.Overdue)
	}
	if stats.CompletionRate != 60 {
		t.Errorf("completion_rate = %d, want 60", stats.CompletionRate)
	}
}

func TestGetTaskStatsEmpty(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/tasks/stats", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}

	var stats statsBody
	decodeBody(t, w, &stats)

	if stats.Total != 0 || stats.CompletionRate != 0 {
		t.Errorf("empty stats = %+v, want all zeros", stats)
	}
}

func TestGetProjectStats(t *testing.T) {
	r := setupAPI(t)
	_, alice := registerUser(t, r, "Alice", "alice@example.com")
	_, bob := registerUser(t, r, "Bob", "bob@example.com")

	project := createProject(t, r, alice, "Stats board")
	createTask(t, r, alice, gin.H{"title": "In project done", "status": "done", "project_id": project.ID})
	createTask(t, r, alice, gin.H{"title": "In project todo", "project_id": project.ID})
	createTask(t, r, alice, gin.H{"title": "Outside project"})

	path := fmt.Sprintf("/api/projects/%d/stats", project.ID)

	w := doJSON(t, r, http.MethodGet, path, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("project stats: %d %s", w.Code, w.Body.String())
	}

	var stats statsBody
	decodeBody(t, w, &stats)

	if stats.Total != 2 || stats.Completed != 1 || stats.CompletionRate != 50 {
		t.Errorf("project stats = %+v, want total 2 completed 1 rate 50", stats)
	}

	if w := doJSON(t, r, http.MethodGet, path, bob, nil); w.Code != http.StatusForbidden {
		t.Errorf("non-member project stats: %d, want 403", w.Code)
	}
}
