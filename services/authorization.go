package services

import (
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	minTitleLength       = 3
	minDescriptionLength = 10
)

// ValidateTaskUpdate proverava sadržaj zahteva pre bilo kakve izmene stanja.
// Validacija je sve-ili-ništa: jedno loše polje obara ceo zahtev.
func ValidateTaskUpdate(update TaskUpdate) error {
	if !update.requestsAny() {
		return NewValidationError("no fields to update")
	}
	if update.Title != nil && len(*update.Title) < minTitleLength {
		return NewValidationError("title must be at least %d characters long", minTitleLength)
	}
	if update.Description != nil && len(*update.Description) < minDescriptionLength {
		return NewValidationError("description must be at least %d characters long", minDescriptionLength)
	}
	if update.Status != nil && !update.Status.IsValid() {
		return NewValidationError("invalid task status: %s", *update.Status)
	}
	if update.Priority != nil && !update.Priority.IsValid() {
		return NewValidationError("invalid task priority: %s", *update.Priority)
	}
	// Vidljivost je ili javna ili po listi, nikad oboje u istom zahtevu.
	if update.IsPublic != nil && *update.IsPublic && update.VisibleTo != nil && len(*update.VisibleTo) > 0 {
		return NewValidationError("isPublic and visibleTo are mutually exclusive")
	}
	return nil
}

// isTaskLocked - task je zaključan kad je behind-schedule ili mu je rok tiho
// prošao, a još nije reklasifikovan.
func isTaskLocked(task models.Task, now time.Time) bool {
	return task.Status == models.StatusBehindSchedule || task.IsOverdue(now)
}

// AuthorizeTaskUpdate odlučuje da li akter sme da primeni zahtevane izmene.
// Poziva se pre reklasifikacije i pre engine-a, tako da odbijen zahtev ne
// ostavlja nikakav trag u stanju.
func AuthorizeTaskUpdate(task models.Task, update TaskUpdate, actor models.User, now time.Time) error {
	if actor.Role != models.RoleAdmin {
		// Task bez vlasnika može da menja samo admin; preuzimanje vlasništva
		// ide isključivo kroz assign endpoint.
		if task.Owner == nil {
			return NewForbiddenError("only an admin can update an unowned task")
		}
		if *task.Owner != actor.ID {
			return NewForbiddenError("only the task owner or an admin can update this task")
		}
	}

	if isTaskLocked(task, now) {
		return authorizeLockedTaskUpdate(task, update, actor, now)
	}

	return nil
}

// authorizeLockedTaskUpdate primenjuje pravila za task koji je probio rok:
// ne-admin ne sme da dira status ni rok, a admin sme samo completed/cancelled
// osim ako istim zahtevom produži rok u budućnost.
func authorizeLockedTaskUpdate(task models.Task, update TaskUpdate, actor models.User, now time.Time) error {
	if actor.Role != models.RoleAdmin {
		if update.Status != nil || update.DueDate != nil {
			return NewForbiddenError("task is behind schedule; only an admin can change its status or due date")
		}
		return nil
	}

	dueExtended := update.DueDate != nil && now.Before(*update.DueDate)

	if update.Status != nil && !dueExtended {
		switch *update.Status {
		case models.StatusCompleted, models.StatusCancelled, models.StatusBehindSchedule:
			// dozvoljeni izlazi iz behind-schedule
		default:
			return NewStateConflictError("a behind-schedule task can only move to completed or cancelled; extend the due date first")
		}
	}

	return nil
}

// AuthorizeTaskDelete - brisanje sme vlasnik ili admin; task bez vlasnika
// briše samo admin.
func AuthorizeTaskDelete(task models.Task, actor models.User) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if task.Owner == nil || *task.Owner != actor.ID {
		return NewForbiddenError("only the task owner or an admin can delete this task")
	}
	return nil
}

// AuthorizeTaskAssign odlučuje ko sme da menja vlasnika. Admin sme sve;
// običan korisnik sme samo da preuzme task bez vlasnika za sebe, ili da
// vrati svoj task. Zaključan task ne-admin ne sme ni da pusti ni da preuzme:
// puštanje ide kroz pending, a to je promena statusa koja je za njega zabranjena.
func AuthorizeTaskAssign(task models.Task, newOwner *primitive.ObjectID, actor models.User, now time.Time) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if isTaskLocked(task, now) {
		return NewForbiddenError("task is behind schedule; only an admin can change its owner")
	}
	if task.Owner == nil {
		if newOwner == nil || *newOwner != actor.ID {
			return NewForbiddenError("you can only claim an unowned task for yourself")
		}
		return nil
	}
	if *task.Owner != actor.ID {
		return NewForbiddenError("only the task owner or an admin can reassign this task")
	}
	if newOwner != nil && *newOwner != actor.ID {
		return NewForbiddenError("only an admin can assign a task to another user")
	}
	return nil
}

// AuthorizeAdmin štiti administratorske operacije nad nalozima.
func AuthorizeAdmin(actor models.User) error {
	if actor.Role != models.RoleAdmin {
		return NewForbiddenError("admin role required")
	}
	return nil
}
