package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestCreateTaskDefaults(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	task := createTask(t, r, token, gin.H{"title": "Write report"})

	if task.Status != "todo" {
		t.Errorf("status = %q, want todo", task.Status)
	}
	if task.Priority != "medium" {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Errorf("completed_at = %v, want nil", task.CompletedAt)
	}
	if task.Archived {
		t.Error("new task should not be archived")
	}
}

func TestCreateTaskDoneSetsCompletedAt(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	task := createTask(t, r, token, gin.H{"title": "Already done", "status": "done"})

	if task.Status != "done" {
		t.Fatalf("status = %q, want done", task.Status)
	}
	if task.CompletedAt == nil {
		t.Fatal("completed_at should be set when a task is created done")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	cases := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"missing title", gin.H{"description": "no title"}, "title"},
		{"invalid priority", gin.H{"title": "x", "priority": "urgent"}, "priority"},
		{"invalid status", gin.H{"title": "x", "status": "paused"}, "status"},
		{"bad due date", gin.H{"title": "x", "due_date": "tomorrow"}, "due_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/tasks", token, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
			}

			var resp struct {
				Error   string `json:"error"`
				Details []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"details"`
			}
			decodeBody(t, w, &resp)

			found := false
			for _, d := range resp.Details {
				if d.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("details %v missing field %q", resp.Details, tc.field)
			}
		})
	}
}

func TestStatusTransitionsKeepCompletionInvariant(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	task := createTask(t, r, token, gin.H{"title": "Ship it"})
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := doJSON(t, r, http.MethodPut, path, token, gin.H{"status": "done"})
	if w.Code != http.StatusOK {
		t.Fatalf("update to done: %d %s", w.Code, w.Body.String())
	}
	var updated taskBody
	decodeBody(t, w, &updated)
	if updated.CompletedAt == nil {
		t.Fatal("completed_at should be set after transition to done")
	}

	w = doJSON(t, r, http.MethodPut, path, token, gin.H{"status": "in_progress"})
	if w.Code != http.StatusOK {
		t.Fatalf("update to in_progress: %d %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &updated)
	if updated.CompletedAt != nil {
		t.Fatal("completed_at should be cleared when leaving done")
	}

	w = doJSON(t, r, http.MethodPatch, path+"/complete", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &updated)
	if updated.Status != "done" || updated.CompletedAt == nil {
		t.Fatalf("after complete: status %q completed_at %v", updated.Status, updated.CompletedAt)
	}
}

func TestListTasksFilters(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	createTask(t, r, token, gin.H{"title": "Buy milk", "priority": "low", "category": "errands", "tags": []string{"home"}})
	createTask(t, r, token, gin.H{"title": "Quarterly review", "priority": "high", "category": "work", "status": "in_progress"})
	createTask(t, r, token, gin.H{"title": "File taxes", "priority": "high", "category": "work", "status": "done"})

	cases := []struct {
		query string
		want  []string
	}{
		{"?status=in_progress", []string{"Quarterly review"}},
		{"?priority=high&status=done", []string{"File taxes"}},
		{"?category=errands", []string{"Buy milk"}},
		{"?tag=home", []string{"Buy milk"}},
		{"?q=review", []string{"Quarterly review"}},
	}

	for _, tc := range cases {
		w := doJSON(t, r, http.MethodGet, "/api/tasks"+tc.query, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.query, w.Code)
		}

		var list taskListBody
		decodeBody(t, w, &list)

		if len(list.Tasks) != len(tc.want) {
			t.Errorf("%s: got %d tasks, want %d", tc.query, len(list.Tasks), len(tc.want))
			continue
		}
		for i, title := range tc.want {
			if list.Tasks[i].Title != title {
				t.Errorf("%s: task[%d] = %q, want %q", tc.query, i, list.Tasks[i].Title, title)
			}
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/tasks?status=bogus", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: %d, want 400", w.Code)
	}
}

func TestListTasksPaginationIsExact(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	for i := 0; i < 5; i++ {
		createTask(t, r, token, gin.H{"title": fmt.Sprintf("Task %d", i)})
	}

	w := doJSON(t, r, http.MethodGet, "/api/tasks?limit=100", token, nil)
	var full taskListBody
	decodeBody(t, w, &full)

	if full.Total != 5 || len(full.Tasks) != 5 {
		t.Fatalf("full listing: total %d len %d", full.Total, len(full.Tasks))
	}

	var paged []uint
	for page := 1; page <= 3; page++ {
		w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks?limit=2&page=%d", page), token, nil)
		var list taskListBody
		decodeBody(t, w, &list)

		if list.Total != 5 {
			t.Errorf("page %d: total = %d, want 5", page, list.Total)
		}
		for _, task := range list.Tasks {
			paged = append(paged, task.ID)
		}
	}

	if len(paged) != 5 {
		t.Fatalf("pages concatenated to %d tasks, want 5", len(paged))
	}
	for i, task := range full.Tasks {
		if paged[i] != task.ID {
			t.Errorf("paged[%d] = %d, want %d", i, paged[i], task.ID)
		}
	}
}

func TestListTasksPrioritySortIsStable(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	first := createTask(t, r, token, gin.H{"title": "First high", "priority": "high"})
	low := createTask(t, r, token, gin.H{"title": "Low", "priority": "low"})
	second := createTask(t, r, token, gin.H{"title": "Second high", "priority": "high"})

	w := doJSON(t, r, http.MethodGet, "/api/tasks?sortBy=priority&sortOrder=desc", token, nil)
	var list taskListBody
	decodeBody(t, w, &list)

	want := []uint{first.ID, second.ID, low.ID}
	if len(list.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(list.Tasks))
	}
	for i, id := range want {
		if list.Tasks[i].ID != id {
			t.Errorf("tasks[%d].ID = %d, want %d", i, list.Tasks[i].ID, id)
		}
	}
}

func TestSoftDeleteAndArchiveViews(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	deleted := createTask(t, r, token, gin.H{"title": "To delete"})
	archived := createTask(t, r, token, gin.H{"title": "To archive"})
	kept := createTask(t, r, token, gin.H{"title": "Kept"})

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", deleted.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/archive", archived.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks", token, nil)
	var list taskListBody
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != kept.ID {
		t.Fatalf("default listing should only hold the kept task, got %v", list.Tasks)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks?archived=true", token, nil)
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != archived.ID {
		t.Fatalf("archived listing wrong: %v", list.Tasks)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks?deleted=true", token, nil)
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != deleted.ID {
		t.Fatalf("deleted listing wrong: %v", list.Tasks)
	}

	// The trash view can still fetch the row directly.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d?deleted=true", deleted.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get deleted task: %d", w.Code)
	}

	// Restore brings an archived task back to the default listing.
	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/restore", archived.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore: %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/tasks", token, nil)
	decodeBody(t, w, &list)
	if len(list.Tasks) != 2 {
		t.Fatalf("after restore: %d tasks, want 2", len(list.Tasks))
	}
}

func TestTaskAccessIsTenantScoped(t *testing.T) {
	r := setupAPI(t)
	_, alice := registerUser(t, r, "Alice", "alice@example.com")
	_, bob := registerUser(t, r, "Bob", "bob@example.com")

	task := createTask(t, r, alice, gin.H{"title": "Private"})
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	if w := doJSON(t, r, http.MethodGet, path, bob, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign GET: %d, want 403", w.Code)
	}
	if w := doJSON(t, r, http.MethodPut, path, bob, gin.H{"title": "Hijacked"}); w.Code != http.StatusForbidden {
		t.Errorf("foreign PUT: %d, want 403", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, path, bob, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign DELETE: %d, want 403", w.Code)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/tasks/99999", alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing task: %d, want 404", w.Code)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/tasks", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d, want 401", w.Code)
	}
}

func TestBulkCompleteCountsOnlyModifiedRows(t *testing.T) {
	r := setupAPI(t)
	_, alice := registerUser(t, r, "Alice", "alice@example.com")
	_, bob := registerUser(t, r, "Bob", "bob@example.com")

	t1 := createTask(t, r, alice, gin.H{"title": "One"})
	t2 := createTask(t, r, alice, gin.H{"title": "Two"})
	done := createTask(t, r, alice, gin.H{"title": "Done already", "status": "done"})
	foreign := createTask(t, r, bob, gin.H{"title": "Bob's"})

	w := doJSON(t, r, http.MethodPatch, "/api/tasks/bulk/complete", alice, gin.H{
		"task_ids": []uint{t1.ID, t2.ID, done.ID, foreign.ID, 99999},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk complete: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		ModifiedCount int64 `json:"modified_count"`
	}
	decodeBody(t, w, &resp)
	if resp.ModifiedCount != 2 {
		t.Errorf("modified_count = %d, want 2", resp.ModifiedCount)
	}

	// Bob's task must be untouched.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", foreign.ID), bob, nil)
	var check taskBody
	decodeBody(t, w, &check)
	if check.Status != "todo" {
		t.Errorf("foreign task status = %q, want todo", check.Status)
	}
}

func TestBulkDeleteAndArchive(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	parent := createTask(t, r, token, gin.H{"title": "Parent"})
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", parent.ID), token, gin.H{"title": "Child"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create subtask: %d", w.Code)
	}
	other := createTask(t, r, token, gin.H{"title": "Other"})

	w = doJSON(t, r, http.MethodPatch, "/api/tasks/bulk/delete", token, gin.H{"task_ids": []uint{parent.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ModifiedCount int64 `json:"modified_count"`
	}
	decodeBody(t, w, &resp)
	if resp.ModifiedCount != 1 {
		t.Errorf("bulk delete modified_count = %d, want 1", resp.ModifiedCount)
	}

	// Subtask went down with the parent.
	w = doJSON(t, r, http.MethodGet, "/api/tasks", token, nil)
	var list taskListBody
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != other.ID {
		t.Fatalf("after bulk delete: %v", list.Tasks)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/tasks/bulk/archive", token, gin.H{"task_ids": []uint{other.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk archive: %d", w.Code)
	}
	decodeBody(t, w, &resp)
	if resp.ModifiedCount != 1 {
		t.Errorf("bulk archive modified_count = %d, want 1", resp.ModifiedCount)
	}

	w = doJSON(t, r, http.MethodPatch, "/api/tasks/bulk/delete", token, gin.H{"task_ids": []uint{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty task_ids: %d, want 400", w.Code)
	}
}

func TestSubtaskLifecycle(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	parent := createTask(t, r, token, gin.H{"title": "Parent", "priority": "high"})
	base := fmt.Sprintf("/api/tasks/%d/subtasks", parent.ID)

	w := doJSON(t, r, http.MethodPost, base, token, gin.H{"title": "Step one"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create subtask: %d %s", w.Code, w.Body.String())
	}
	var sub taskBody
	decodeBody(t, w, &sub)

	if sub.Priority != "high" {
		t.Errorf("subtask priority = %q, want inherited high", sub.Priority)
	}
	if sub.ParentTaskID == nil || *sub.ParentTaskID != parent.ID {
		t.Errorf("subtask parent = %v, want %d", sub.ParentTaskID, parent.ID)
	}

	// One level of nesting only.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", sub.ID), token, gin.H{"title": "Too deep"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("nested subtask: %d, want 400", w.Code)
	}

	togglePath := fmt.Sprintf("%s/%d/toggle", base, sub.ID)

	w = doJSON(t, r, http.MethodPatch, togglePath, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: %d", w.Code)
	}
	decodeBody(t, w, &sub)
	if sub.Status != "done" || sub.CompletedAt == nil {
		t.Fatalf("after toggle: status %q completed_at %v", sub.Status, sub.CompletedAt)
	}

	w = doJSON(t, r, http.MethodPatch, togglePath, token, nil)
	decodeBody(t, w, &sub)
	if sub.Status != "todo" || sub.CompletedAt != nil {
		t.Fatalf("after second toggle: status %q completed_at %v", sub.Status, sub.CompletedAt)
	}

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("%s/%d", base, sub.ID), token, gin.H{"title": "Renamed", "completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update subtask: %d", w.Code)
	}
	decodeBody(t, w, &sub)
	if sub.Title != "Renamed" || sub.Status != "done" {
		t.Fatalf("after update: title %q status %q", sub.Title, sub.Status)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("%s/%d", base, sub.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete subtask: %d", w.Code)
	}

	// Parent detail view no longer lists it.
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", parent.ID), token, nil)
	var detail taskBody
	decodeBody(t, w, &detail)
	if len(detail.Subtasks) != 0 {
		t.Errorf("parent still lists %d subtasks", len(detail.Subtasks))
	}
}

func TestSearchAndOverdueTasks(t *testing.T) {
	r := setupAPI(t)
	_, token := registerUser(t, r, "Alice", "alice@example.com")

	createTask(t, r, token, gin.H{"title": "Plan Sprint Review"})
	createTask(t, r, token, gin.H{"title": "Water plants", "category": "home"})
	overdue := createTask(t, r, token, gin.H{
		"title":    "Late report",
		"due_date": time.Now().AddDate(0, 0, -2).Format("2006-01-02"),
	})
	createTask(t, r, token, gin.H{
		"title":    "Future work",
		"due_date": time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
	})

	w := doJSON(t, r, http.MethodGet, "/api/tasks/search?q=sprint", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d", w.Code)
	}
	var list taskListBody
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "Plan Sprint Review" {
		t.Errorf("search results: %v", list.Tasks)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks/search", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q: %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/tasks/overdue", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("overdue: %d", w.Code)
	}
	decodeBody(t, w, &list)
	if len(list.Tasks) != 1 || list.Tasks[0].ID != overdue.ID {
		t.Errorf("overdue results: %v", list.Tasks)
	}
}
