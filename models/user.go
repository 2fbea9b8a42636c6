package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role je zatvoren skup uloga korisnika.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid proverava da li je uloga jedna od dozvoljenih.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ApprovalStatus prati da li je admin odobrio nalog.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDeclined ApprovalStatus = "declined"
)

func (a ApprovalStatus) IsValid() bool {
	switch a {
	case ApprovalPending, ApprovalApproved, ApprovalDeclined:
		return true
	}
	return false
}

type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	LastName           string             `bson:"lastName" json:"lastName"`
	Email              string             `bson:"email" json:"email"`
	Password           string             `bson:"password" json:"-"`
	Role               Role               `bson:"role" json:"role"`
	ApprovalStatus     ApprovalStatus     `bson:"approvalStatus" json:"approvalStatus"`
	IsEmailVerified    bool               `bson:"isEmailVerified" json:"isEmailVerified"`
	Credits            int                `bson:"credits" json:"credits"`
	ActiveTokens       []string           `bson:"activeTokens" json:"-"`
	VerificationCode   string             `bson:"verificationCode" json:"-"`
	VerificationExpiry time.Time          `bson:"verificationExpiry" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName vraća ime za prikaz u exportu i na rang listi.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}

// HasToken proverava da li je token u listi aktivnih tokena korisnika.
func (u User) HasToken(token string) bool {
	for _, t := range u.ActiveTokens {
		if t == token {
			return true
		}
	}
	return false
}
