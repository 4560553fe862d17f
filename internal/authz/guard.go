// Package authz resolves whether an authenticated user may touch a task
// or project. NotFound and Forbidden are distinct: a resource that exists
// but belongs to an unrelated tenant must never be reported as absent.
package authz

import (
	"errors"

	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("access denied")
)

// FindTaskForUser loads a task and checks access. The owner always has
// access; members of the task's project get read/write access as well.
// includeDeleted widens the lookup to soft-deleted rows for the trash view.
func FindTaskForUser(userID uint, taskID uint, includeDeleted bool) (models.Task, error) {
	var task models.Task

	query := db.DB
	if includeDeleted {
		query = query.Unscoped()
	}

	if err := query.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}

	if task.OwnerID == userID {
		return task, nil
	}

	if task.ProjectID != nil {
		ok, err := isProjectMember(userID, *task.ProjectID)
		if err != nil {
			return models.Task{}, err
		}
		if ok {
			return task, nil
		}
	}

	return models.Task{}, ErrForbidden
}

// FindProjectForUser grants access to the owner and to members.
func FindProjectForUser(userID uint, projectID uint) (models.Project, error) {
	project, err := findProject(projectID)
	if err != nil {
		return models.Project{}, err
	}

	if project.OwnerID == userID {
		return project, nil
	}

	ok, err := isProjectMember(userID, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if !ok {
		return models.Project{}, ErrForbidden
	}

	return project, nil
}

// RequireProjectOwner is the guard for mutations: only the owner may
// update, delete, or manage members and invitations.
func RequireProjectOwner(userID uint, projectID uint) (models.Project, error) {
	project, err := findProject(projectID)
	if err != nil {
		return models.Project{}, err
	}

	if project.OwnerID != userID {
		return models.Project{}, ErrForbidden
	}

	return project, nil
}

func findProject(projectID uint) (models.Project, error) {
	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}

	return project, nil
}

func isProjectMember(userID uint, projectID uint) (bool, error) {
	var count int64

	err := db.DB.Model(&models.ProjectMembership{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
