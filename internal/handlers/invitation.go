package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/utils"
	"gorm.io/gorm"
)

const invitationTTL = 7 * 24 * time.Hour

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

type InvitationResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	ProjectID uint      `json:"project_id"`
	Status    string    `json:"status"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateInvitation issues a single-use token for the invitee. Only the
// project owner may invite.
func CreateInvitation(ctx *gin.Context) {
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

	project, err := authz.RequireProjectOwner(userID, projectID)

	if err != nil {
		respondAccessError(ctx, err, "Project")
		return
	}

	var req CreateInvitationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	invitation := models.Invitation{
		ProjectID: project.ID,
		InviterID: userID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Token:     uuid.NewString(),
		Status:    models.InvitationPending,
		ExpiresAt: time.Now().Add(invitationTTL),
	}

	if err := db.DB.Create(&invitation).Error; err != nil {
		log.Printf("Failed to create invitation: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, invitationResponse(invitation, true))
}

func ListInvitations(ctx *gin.Context) {
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

	if _, err := authz.RequireProjectOwner(userID, projectID); err != nil {
		respondAccessError(ctx, err, "Project")
		return
	}

	var invitations []models.Invitation

	if err := db.DB.Where("project_id = ?", projectID).Order("created_at DESC").Find(&invitations).Error; err != nil {
		log.Printf("Failed to list invitations: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	response := make([]InvitationResponse, 0, len(invitations))

	for _, invitation := range invitations {
		response = append(response, invitationResponse(invitation, false))
	}

	ctx.JSON(http.StatusOK, response)
}

// AcceptInvitation consumes the token and adds the caller as a project
// member. Flipping the status and inserting the membership happen in one
// transaction so the token can only be spent once.
func AcceptInvitation(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req AcceptInvitationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondValidationError(ctx, err)
		return
	}

	var invitation models.Invitation

	if err := db.DB.Where("token = ?", req.Token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		} else {
			log.Printf("Failed to fetch invitation: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if invitation.Status != models.InvitationPending {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Invitation has already been used"})
		return
	}

	if time.Now().After(invitation.ExpiresAt) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Invitation has expired"})
		return
	}

	if !strings.EqualFold(invitation.Email, currentUser.Email) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Invitation was issued for a different email address"})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		// Conditional update makes the token single-use even under
		// concurrent accepts.
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Update("status", models.InvitationAccepted)

		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		membership := models.ProjectMembership{
			UserID:    currentUser.ID,
			ProjectID: invitation.ProjectID,
			Role:      models.RoleMember,
		}

		return tx.Create(&membership).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Invitation has already been used"})
			return
		}
		log.Printf("Failed to accept invitation: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Invitation accepted",
		"project_id": invitation.ProjectID,
	})
}

func invitationResponse(invitation models.Invitation, includeToken bool) InvitationResponse {
	resp := InvitationResponse{
		ID:        invitation.ID,
		Email:     invitation.Email,
		ProjectID: invitation.ProjectID,
		Status:    invitation.Status,
		ExpiresAt: invitation.ExpiresAt,
	}

	if includeToken {
		resp.Token = invitation.Token
	}

	return resp
}
