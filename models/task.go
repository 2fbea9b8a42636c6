package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusPending        TaskStatus = "pending"
	StatusInProgress     TaskStatus = "in-progress"
	StatusCompleted      TaskStatus = "completed"
	StatusBehindSchedule TaskStatus = "behind-schedule"
	StatusCancelled      TaskStatus = "cancelled"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBehindSchedule, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal - completed i cancelled su krajnji statusi.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// HistoryAction je zatvoren skup akcija koje se upisuju u istoriju taska.
type HistoryAction string

const (
	ActionAssigned  HistoryAction = "assigned"
	ActionCompleted HistoryAction = "completed"
	ActionUpdated   HistoryAction = "updated"
)

// HistoryEntry je nepromenljiv zapis u istoriji taska.
type HistoryEntry struct {
	Action      HistoryAction       `bson:"action" json:"action"`
	Date        time.Time           `bson:"date" json:"date"`
	PerformedBy primitive.ObjectID  `bson:"performedBy" json:"performedBy"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
}

// Attachment čuva samo metapodatke; sadržaj fajla je u file store-u.
type Attachment struct {
	FileName    string `bson:"fileName" json:"fileName"`
	ContentType string `bson:"contentType" json:"contentType"`
}

type Task struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Status      TaskStatus           `bson:"status" json:"status"`
	Owner       *primitive.ObjectID  `bson:"owner,omitempty" json:"owner,omitempty"`
	DueDate     *time.Time           `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Priority    TaskPriority         `bson:"priority,omitempty" json:"priority,omitempty"`
	IsPublic    bool                 `bson:"isPublic" json:"isPublic"`
	VisibleTo   []primitive.ObjectID `bson:"visibleTo,omitempty" json:"visibleTo,omitempty"`
	History     []HistoryEntry       `bson:"history,omitempty" json:"history,omitempty"`
	Attachment  *Attachment          `bson:"attachment,omitempty" json:"attachment,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// LatestAssignment vraća poslednji "assigned" zapis iz istorije, ili nil.
func (t Task) LatestAssignment() *HistoryEntry {
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Action == ActionAssigned {
			return &t.History[i]
		}
	}
	return nil
}

// IsOverdue - task je probio rok ako još nije u krajnjem statusu, a dueDate je prošao.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return false
	}
	return !now.Before(*t.DueDate)
}

// VisibleBy proverava da li korisnik sme da vidi task.
func (t Task) VisibleBy(userID primitive.ObjectID, role Role) bool {
	if role == RoleAdmin || t.IsPublic {
		return true
	}
	if t.Owner != nil && *t.Owner == userID {
		return true
	}
	for _, id := range t.VisibleTo {
		if id == userID {
			return true
		}
	}
	return false
}
