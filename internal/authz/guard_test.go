package authz_test

import (
	"errors"
	"testing"

	"github.com/taskmind-dev/taskmind/internal/authz"
	"github.com/taskmind-dev/taskmind/internal/models"
	"github.com/taskmind-dev/taskmind/internal/testdb"
	"gorm.io/gorm"
)

func seed(t *testing.T, gdb *gorm.DB, value interface{}) {
	t.Helper()
	if err := gdb.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

func TestFindTaskForUser(t *testing.T) {
	gdb := testdb.Setup(t)

	owner := models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x"}
	member := models.User{Name: "Member", Email: "member@example.com", PasswordHash: "x"}
	outsider := models.User{Name: "Outsider", Email: "outsider@example.com", PasswordHash: "x"}
	seed(t, gdb, &owner)
	seed(t, gdb, &member)
	seed(t, gdb, &outsider)

	project := models.Project{Name: "Shared", OwnerID: owner.ID}
	seed(t, gdb, &project)
	seed(t, gdb, &models.ProjectMembership{UserID: member.ID, ProjectID: project.ID, Role: models.RoleMember})

	private := models.Task{Title: "Private", Status: models.StatusTodo, Priority: models.PriorityMedium, OwnerID: owner.ID}
	shared := models.Task{Title: "Shared", Status: models.StatusTodo, Priority: models.PriorityMedium, OwnerID: owner.ID, ProjectID: &project.ID}
	seed(t, gdb, &private)
	seed(t, gdb, &shared)

	if _, err := authz.FindTaskForUser(owner.ID, private.ID, false); err != nil {
		t.Errorf("owner on private task: %v", err)
	}

	if _, err := authz.FindTaskForUser(member.ID, private.ID, false); !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("member on private task: %v, want ErrForbidden", err)
	}

	if _, err := authz.FindTaskForUser(member.ID, shared.ID, false); err != nil {
		t.Errorf("member on project task: %v", err)
	}

	if _, err := authz.FindTaskForUser(outsider.ID, shared.ID, false); !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("outsider on project task: %v, want ErrForbidden", err)
	}

	if _, err := authz.FindTaskForUser(owner.ID, 99999, false); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("missing task: %v, want ErrNotFound", err)
	}
}

func TestFindTaskForUserDeletedVisibility(t *testing.T) {
	gdb := testdb.Setup(t)

	owner := models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x"}
	seed(t, gdb, &owner)

	task := models.Task{Title: "Trashed", Status: models.StatusTodo, Priority: models.PriorityMedium, OwnerID: owner.ID}
	seed(t, gdb, &task)

	if err := gdb.Delete(&task).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := authz.FindTaskForUser(owner.ID, task.ID, false); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("deleted task without includeDeleted: %v, want ErrNotFound", err)
	}

	if _, err := authz.FindTaskForUser(owner.ID, task.ID, true); err != nil {
		t.Errorf("deleted task with includeDeleted: %v", err)
	}
}

func TestProjectGuards(t *testing.T) {
	gdb := testdb.Setup(t)

	owner := models.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x"}
	member := models.User{Name: "Member", Email: "member@example.com", PasswordHash: "x"}
	seed(t, gdb, &owner)
	seed(t, gdb, &member)

	project := models.Project{Name: "Guarded", OwnerID: owner.ID}
	seed(t, gdb, &project)
	seed(t, gdb, &models.ProjectMembership{UserID: member.ID, ProjectID: project.ID, Role: models.RoleMember})

	if _, err := authz.FindProjectForUser(member.ID, project.ID); err != nil {
		t.Errorf("member read access: %v", err)
	}

	if _, err := authz.RequireProjectOwner(member.ID, project.ID); !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("member as owner: %v, want ErrForbidden", err)
	}

	if _, err := authz.RequireProjectOwner(owner.ID, project.ID); err != nil {
		t.Errorf("owner as owner: %v", err)
	}

	if _, err := authz.FindProjectForUser(owner.ID, 99999); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("missing project: %v, want ErrNotFound", err)
	}
}
