package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/services"
	"github.com/taskmind-dev/taskmind/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Wired from main at startup.
var (
	Payments             *services.PaymentClient
	PaymentWebhookSecret string
	AppBaseURL           string
)

type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price_cents"`
	Interval string `json:"interval"`
}

// The catalog is static; the provider owns the money side of each plan.
var plans = []Plan{
	{ID: "free", Name: "Free", Price: 0, Interval: "month"},
	{ID: "pro-monthly", Name: "Pro", Price: 900, Interval: "month"},
	{ID: "pro-yearly", Name: "Pro (annual)", Price: 9000, Interval: "year"},
}

type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type webhookEvent struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type webhookSubscription struct {
	ID               string     `json:"id"`
	CustomerID       string     `json:"customer_id"`
	PlanID           string     `json:"plan_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CustomData       struct {
		UserID uint `json:"user_id"`
	} `json:"custom_data"`
}

func ListPlans(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"plans": plans})
}

func CreateCheckoutSession(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CheckoutRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	if !validPlan(req.PlanID) {
		respondFieldErrors(ctx, []utils.FieldError{{Field: "plan_id", Message: "is invalid"}})
		return
	}

	url, err := Payments.CreateCheckoutSession(currentUser.Email, req.PlanID, currentUser.ID, AppBaseURL)

	if err != nil {
		log.Printf("Failed to create checkout session: %v", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider is unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

// PaymentWebhook consumes provider events. The raw body is verified
// against the shared secret before anything is parsed.
func PaymentWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := ctx.GetHeader("Webhook-Signature")

	if !services.VerifyWebhookSignature(PaymentWebhookSecret, signature, body) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var event webhookEvent

	if err := json.Unmarshal(body, &event); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	switch event.EventType {
	case "subscription.created", "subscription.updated":
		err = upsertSubscription(event.Data)
	case "subscription.canceled":
		err = cancelSubscription(event.Data)
	default:
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		log.Printf("Failed to process webhook event %s: %v", event.EventType, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// upsertSubscription keeps the one-row-per-user invariant and updates the
// user's provider reference in the same transaction.
func upsertSubscription(data json.RawMessage) error {
	var sub webhookSubscription

	if err := json.Unmarshal(data, &sub); err != nil {
		return err
	}

	return db.DB.Transaction(func(tx *gorm.DB) error {
		row := models.Subscription{
			UserID:           sub.CustomData.UserID,
			PlanID:           sub.PlanID,
			Status:           sub.Status,
			CurrentPeriodEnd: sub.CurrentPeriodEnd,
			ExternalID:       sub.ID,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id", "status", "current_period_end", "external_id", "updated_at",
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", sub.CustomData.UserID).
			Update("payment_customer_id", sub.CustomerID).Error
	})
}

func cancelSubscription(data json.RawMessage) error {
	var sub webhookSubscription

	if err := json.Unmarshal(data, &sub); err != nil {
		return err
	}

	return db.DB.Unscoped().Where("external_id = ?", sub.ID).Delete(&models.Subscription{}).Error
}

func validPlan(planID string) bool {
	for _, plan := range plans {
		if plan.ID == planID {
			return true
		}
	}
	return false
}
