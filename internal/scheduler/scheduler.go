package scheduler

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/services"
)

// reminderWindowDays is how far ahead of the due date a reminder fires:
// tasks due today through today+2 are eligible.
const reminderWindowDays = 2

const invitationPurgeTime = "03:00"

type Scheduler struct {
	cron   *cron.Cron
	mailer services.Mailer
	loc    *time.Location
}

func NewScheduler(loc *time.Location, mailer services.Mailer) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		mailer: mailer,
		loc:    loc,
	}
}

// Start registers the daily jobs and begins ticking. A fire missed while
// the process is down is simply skipped until the next day.
func (s *Scheduler) Start(reminderTime string) error {
	log.Println("Starting scheduler...")

	reminderSpec, err := buildDailySpec(reminderTime)
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(reminderSpec, func() {
		if _, err := s.RunReminders(time.Now().In(s.loc)); err != nil {
			log.Printf("Reminder run failed: %v", err)
		}
	}); err != nil {
		return err
	}

	purgeSpec, err := buildDailySpec(invitationPurgeTime)
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(purgeSpec, func() {
		if _, err := s.PurgeExpiredInvitations(time.Now().In(s.loc)); err != nil {
			log.Printf("Invitation purge failed: %v", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Scheduler started, reminders at %s", reminderTime)
	return nil
}

// Stop waits for any in-flight job before returning.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// RunReminders sends one reminder per task due within the window that has
// not been reminded yet, and returns how many were sent. Each task is
// claimed with a conditional update before sending, so concurrent service
// instances never double-send: only the instance that flips reminder_sent
// false->true delivers the email.
func (s *Scheduler) RunReminders(now time.Time) (int, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	threshold := today.AddDate(0, 0, reminderWindowDays+1)

	var tasks []models.Task

	err := db.DB.Preload("Owner").
		Where("status NOT IN ?", []string{models.StatusDone, models.StatusCancelled}).
		Where("archived = ?", false).
		Where("reminder_sent = ?", false).
		Where("due_date >= ? AND due_date < ?", today, threshold).
		Find(&tasks).Error

	if err != nil {
		return 0, fmt.Errorf("failed to load reminder candidates: %w", err)
	}

	sent := 0

	for _, task := range tasks {
		// Should be unreachable given the query predicate, but a task
		// without a due date or owner must never produce an email.
		if task.DueDate == nil || task.Owner.ID == 0 {
			continue
		}

		// Skipped without claiming: if the owner re-enables reminders
		// while the task is still in the window, it becomes eligible again.
		if !task.Owner.TaskReminders {
			continue
		}

		claim := db.DB.Model(&models.Task{}).
			Where("id = ? AND reminder_sent = ?", task.ID, false).
			Update("reminder_sent", true)

		if claim.Error != nil {
			log.Printf("Failed to claim reminder for task %d: %v", task.ID, claim.Error)
			continue
		}

		if claim.RowsAffected == 0 {
			// Another instance got there first inside this run window.
			continue
		}

		if err := s.mailer.SendTaskReminder(task.Owner, task); err != nil {
			log.Printf("Failed to send reminder for task %d: %v", task.ID, err)

			// Release the claim so tomorrow's run retries the send.
			if resetErr := db.DB.Model(&models.Task{}).
				Where("id = ?", task.ID).
				Update("reminder_sent", false).Error; resetErr != nil {
				log.Printf("Failed to reset reminder flag for task %d: %v", task.ID, resetErr)
			}
			continue
		}

		sent++
	}

	if sent > 0 {
		log.Printf("Sent %d task reminders", sent)
	}

	return sent, nil
}

// PurgeExpiredInvitations hard-deletes pending invitations past their
// expiry. Accepted invitations are kept as membership history.
func (s *Scheduler) PurgeExpiredInvitations(now time.Time) (int64, error) {
	res := db.DB.Unscoped().
		Where("status = ? AND expires_at < ?", models.InvitationPending, now).
		Delete(&models.Invitation{})

	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge invitations: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		log.Printf("Purged %d expired invitations", res.RowsAffected)
	}

	return res.RowsAffected, nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler.
func Initialize(loc *time.Location, mailer services.Mailer, reminderTime string) error {
	if mailer == nil {
		return errors.New("scheduler requires a mailer")
	}
	globalScheduler = NewScheduler(loc, mailer)
	return globalScheduler.Start(reminderTime)
}

// Shutdown stops the global scheduler.
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}
