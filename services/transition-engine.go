package services

import (
	"math"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskUpdate opisuje zahtevane izmene polja; nil znači da polje nije u zahtevu.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	DueDate     *time.Time
	Priority    *models.TaskPriority
	IsPublic    *bool
	VisibleTo   *[]primitive.ObjectID

	// Owner se menja samo preko assign endpointa, nikad kroz opšti PATCH.
	Owner       *primitive.ObjectID
	RemoveOwner bool
}

// requestsAny vraća true ako zahtev menja bar jedno polje.
func (u TaskUpdate) requestsAny() bool {
	return u.Title != nil || u.Description != nil || u.Status != nil ||
		u.DueDate != nil || u.Priority != nil || u.IsPublic != nil ||
		u.VisibleTo != nil || u.Owner != nil || u.RemoveOwner
}

// TransitionResult je rezultat čistog izračunavanja prelaza.
type TransitionResult struct {
	Task        models.Task
	CreditDelta int
	Appended    []models.HistoryEntry
}

// ApplyTransition primenjuje zahtevane izmene na task i računa promenu kredita
// vlasnika i nove zapise istorije. Funkcija je čista: ne dira bazu i ne može
// da padne, ulaz je već validiran i autorizovan. Pozivalac upisuje vraćeni
// task i dodaje CreditDelta na kredite vlasnika koji je task imao PRE izmene.
func ApplyTransition(task models.Task, update TaskUpdate, actor models.User, now time.Time) TransitionResult {
	result := TransitionResult{Task: task}
	newTask := &result.Task
	creditOwner := task.Owner
	prevStatus := task.Status
	changed := false

	if update.Title != nil && *update.Title != newTask.Title {
		newTask.Title = *update.Title
		changed = true
	}
	if update.Description != nil && *update.Description != newTask.Description {
		newTask.Description = *update.Description
		changed = true
	}
	if update.Priority != nil && *update.Priority != newTask.Priority {
		newTask.Priority = *update.Priority
		changed = true
	}

	dueExtended := false
	if update.DueDate != nil {
		if newTask.DueDate == nil || !newTask.DueDate.Equal(*update.DueDate) {
			changed = true
		}
		d := *update.DueDate
		newTask.DueDate = &d
		dueExtended = now.Before(d)
	}

	// Ekskluzivnost vidljivosti: neprazan visibleTo obara isPublic,
	// isPublic=true briše visibleTo.
	if update.VisibleTo != nil {
		newTask.VisibleTo = *update.VisibleTo
		if len(newTask.VisibleTo) > 0 {
			newTask.IsPublic = false
		}
		changed = true
	}
	if update.IsPublic != nil {
		if *update.IsPublic {
			newTask.IsPublic = true
			newTask.VisibleTo = nil
		} else {
			newTask.IsPublic = false
		}
		changed = true
	}

	// Novi status: eksplicitno zahtevan, ili reset posle admin produženja roka
	// na tasku koji je probio rok.
	newStatus := prevStatus
	if update.Status != nil {
		newStatus = *update.Status
	} else if prevStatus == models.StatusBehindSchedule && dueExtended {
		if newTask.Owner != nil {
			newStatus = models.StatusInProgress
		} else {
			newStatus = models.StatusPending
		}
	}

	// Pravila 1-3 su međusobno isključiva: parovi (prethodni, novi) status se
	// ne preklapaju, pa po jednoj izmeni okida najviše jedno.
	if newStatus != prevStatus {
		newTask.Status = newStatus
		changed = true

		switch {
		case newStatus == models.StatusCompleted:
			if creditOwner != nil {
				result.CreditDelta = completionCredit(newTask.DueDate, now)
			}
			entry := models.HistoryEntry{
				Action:      models.ActionCompleted,
				Date:        now,
				PerformedBy: actor.ID,
			}
			newTask.History = append(newTask.History, entry)
			result.Appended = append(result.Appended, entry)

		case newStatus == models.StatusBehindSchedule &&
			prevStatus != models.StatusCompleted && prevStatus != models.StatusCancelled:
			if creditOwner != nil {
				result.CreditDelta = behindSchedulePenalty(task)
			}

		case newStatus == models.StatusCancelled && prevStatus == models.StatusBehindSchedule:
			if creditOwner != nil {
				result.CreditDelta = 1
			}
		}
	}

	// Pravilo 4: eksplicitno postavljanje statusa na pending uvek skida
	// vlasnika, bez obzira ko je tražio izmenu.
	if update.Status != nil && *update.Status == models.StatusPending {
		if newTask.Owner != nil {
			changed = true
		}
		newTask.Owner = nil
	}

	if update.RemoveOwner && newTask.Owner != nil {
		newTask.Owner = nil
		changed = true
	}

	// Pravilo 5: svako postavljanje vlasnika upisuje "assigned" zapis,
	// nezavisno od statusnih pravila.
	if update.Owner != nil {
		owner := *update.Owner
		newTask.Owner = &owner
		entry := models.HistoryEntry{
			Action:      models.ActionAssigned,
			Date:        now,
			PerformedBy: actor.ID,
			AssignedTo:  &owner,
		}
		newTask.History = append(newTask.History, entry)
		result.Appended = append(result.Appended, entry)
		changed = true
	}

	// Generički "updated" zapis samo kad je nešto stvarno promenjeno, a
	// specifičniji zapis već nije dodat. Ponovljena ista izmena ne sme da
	// duplira istoriju niti da dira kredite.
	if changed && len(result.Appended) == 0 {
		entry := models.HistoryEntry{
			Action:      models.ActionUpdated,
			Date:        now,
			PerformedBy: actor.ID,
		}
		newTask.History = append(newTask.History, entry)
		result.Appended = append(result.Appended, entry)
	}

	if changed {
		newTask.UpdatedAt = now
	}

	return result
}

// completionCredit računa nagradu za završetak: +2 ako je task završen bar dva
// dana pre roka, +1 ako je pre roka ali manje od dva dana, 0 posle roka ili
// bez roka.
func completionCredit(dueDate *time.Time, now time.Time) int {
	if dueDate == nil {
		return 0
	}
	if !now.Before(*dueDate) {
		return 0
	}
	daysEarly := int(math.Ceil(dueDate.Sub(now).Hours() / 24))
	if daysEarly >= 2 {
		return 2
	}
	return 1
}

// behindSchedulePenalty računa kaznu za probijanje roka: -2 ako je task
// vlasniku dodelio neko drugi (poslednji "assigned" zapis), inače -1.
func behindSchedulePenalty(task models.Task) int {
	if task.Owner == nil {
		return 0
	}
	if last := task.LatestAssignment(); last != nil && last.PerformedBy != *task.Owner {
		return -2
	}
	return -1
}

// ReclassifyOverdue prevodi task kome je rok istekao u behind-schedule i
// računa kaznu. Detektor probijenih rokova ga zove lenjo pri čitanju i iz
// periodičnog sweepa; za task koji je već behind-schedule ne radi ništa.
func ReclassifyOverdue(task models.Task, now time.Time) (models.Task, int) {
	if !task.IsOverdue(now) {
		return task, 0
	}
	delta := 0
	if task.Owner != nil {
		delta = behindSchedulePenalty(task)
	}
	task.Status = models.StatusBehindSchedule
	task.UpdatedAt = now
	return task, delta
}
