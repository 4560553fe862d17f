package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/internal/auth"
	"github.com/taskmind-dev/taskmind/internal/router"
	"github.com/taskmind-dev/taskmind/internal/testdb"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()

	t.Setenv("JWT_SECRET", "test-secret")
	if err := auth.InitJWTSecret(); err != nil {
		t.Fatalf("init jwt: %v", err)
	}

	gin.SetMode(gin.TestMode)
	testdb.Setup(t)

	return router.NewRouter()
}

func doJSON(t *testing.T, r *gin.Engine, method string, path string, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    uint   `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func registerUser(t *testing.T, r *gin.Engine, name string, email string) (uint, string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}

	var resp authResponse
	decodeBody(t, w, &resp)

	return resp.User.ID, resp.Token
}

type taskBody struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	ReminderSent bool       `json:"reminder_sent"`
	Archived     bool       `json:"archived"`
	OwnerID      uint       `json:"owner_id"`
	ProjectID    *uint      `json:"project_id"`
	ParentTaskID *uint      `json:"parent_task_id"`
	Subtasks     []taskBody `json:"subtasks"`
}

type taskListBody struct {
	Tasks []taskBody `json:"tasks"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int64      `json:"total"`
}

func createTask(t *testing.T, r *gin.Engine, token string, payload gin.H) taskBody {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/tasks", token, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: status %d body %s", w.Code, w.Body.String())
	}

	var task taskBody
	decodeBody(t, w, &task)
	return task
}
