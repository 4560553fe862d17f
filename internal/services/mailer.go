package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/taskmind-dev/taskmind/internal/models"
)

// Mailer is the email transport boundary. The scheduler depends on this
// interface so tests can substitute a recording double.
type Mailer interface {
	SendTaskReminder(user models.User, task models.Task) error
}

// HTTPMailer delivers through a JSON mail API (Resend-style endpoint).
type HTTPMailer struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPMailer(apiURL string, apiKey string, from string) *HTTPMailer {
	return &HTTPMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type mailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (m *HTTPMailer) SendTaskReminder(user models.User, task models.Task) error {
	if m.apiURL == "" {
		return fmt.Errorf("mail API is not configured")
	}

	dueDate := "soon"
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("Monday, January 2")
	}

	msg := mailMessage{
		From:    m.from,
		To:      user.Email,
		Subject: fmt.Sprintf("Reminder: %q is due %s", task.Title, dueDate),
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour task %q is due %s.\n\n%s\n\n— TaskMind",
			user.Name, task.Title, dueDate, task.Description,
		),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build reminder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}

	return nil
}
