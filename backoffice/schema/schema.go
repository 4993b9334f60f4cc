package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleManager    = "manager"
	RoleInstructor = "instructor"
)

func CheckValidRole(role string) error {
	if role != RoleManager && role != RoleInstructor {
		return fmt.Errorf("invalid role '%v', must be '%v' or '%v'", role, RoleManager, RoleInstructor)
	}
	return nil
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	Name        string `gorm:"size:100;not null"`
	PhoneNumber string `gorm:"size:20"`

	Role string `gorm:"size:20;not null;default:'instructor'"`

	ProfilePhotoUrl  string `gorm:"size:255"`
	Bio              string
	PortfolioContent string
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

const (
	LectureGeneral     = "general"
	LectureCompetition = "competition"
	LectureCamp        = "camp"
	LectureDoroland    = "doroland"
	LectureBooth       = "booth"
	LectureEtc         = "etc"
)

const (
	StatusRecruiting = "recruiting"
	StatusAllocating = "allocating"
	StatusCompleted  = "completed"
)

func CheckValidLectureType(lectureType string) error {
	switch lectureType {
	case LectureGeneral, LectureCompetition, LectureCamp, LectureDoroland, LectureBooth, LectureEtc:
		return nil
	}
	return fmt.Errorf("invalid lecture type '%v'", lectureType)
}

func CheckValidLectureStatus(status string) error {
	switch status {
	case StatusRecruiting, StatusAllocating, StatusCompleted:
		return nil
	}
	return fmt.Errorf("invalid lecture status '%v'", status)
}

type Lecture struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title    string `gorm:"size:255;not null"`
	Type     string `gorm:"size:20"`
	Category string `gorm:"size:50"`

	Status string `gorm:"size:20;not null;default:'recruiting';index"`

	LectureStartTime *time.Time `gorm:"index"`
	LectureEndTime   *time.Time

	Location string `gorm:"size:255"`

	// The lecture outlives its manager, the reference is cleared on deletion.
	ManagerId *uuid.UUID `gorm:"type:uuid;index"`
	Manager   *User      `gorm:"constraint:OnDelete:SET NULL"`

	TargetAudience     string `gorm:"size:100"`
	ContentDescription string
	SpecialNotes       string `gorm:"size:1000"`
	AttachmentUrl      string `gorm:"size:255"`

	CreatedAt time.Time

	Recruitment  *LectureRecruitment `gorm:"foreignKey:LectureId;constraint:OnDelete:CASCADE"`
	Applications []Application       `gorm:"constraint:OnDelete:CASCADE"`
}

type LectureRecruitment struct {
	LectureId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lecture   *Lecture  `gorm:"constraint:OnDelete:CASCADE"`

	ApplicationStartDate *time.Time
	ApplicationEndDate   *time.Time

	MaxParticipants int `gorm:"default:0"`
	MainNeeded      int `gorm:"not null;default:0"`
	AssistNeeded    int `gorm:"not null;default:0"`

	FeeMain   int `gorm:"default:0"`
	FeeAssist int `gorm:"default:0"`
}

const (
	RoleMain   = "main"
	RoleAssist = "assist"
)

const (
	AssignmentPending  = "pending"
	AssignmentAssigned = "assigned"
	AssignmentRejected = "rejected"
)

func CheckValidLectureRole(role string) error {
	if role != RoleMain && role != RoleAssist {
		return fmt.Errorf("invalid lecture role '%v', must be '%v' or '%v'", role, RoleMain, RoleAssist)
	}
	return nil
}

func CheckValidAssignmentStatus(status string) error {
	switch status {
	case AssignmentPending, AssignmentAssigned, AssignmentRejected:
		return nil
	}
	return fmt.Errorf("invalid assignment status '%v'", status)
}

type Application struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	LectureId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lecture_user_role"`
	Lecture   *Lecture  `gorm:"constraint:OnDelete:CASCADE"`

	UserId uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_lecture_user_role"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	AppliedRole string `gorm:"size:10;not null;uniqueIndex:idx_lecture_user_role"`

	// Copy of the applicant's portfolio at submission time, never updated after.
	PortfolioSnapshot string

	AssignmentStatus string `gorm:"size:10;not null;default:'pending'"`
	AssignedRole     string `gorm:"size:10"`

	AppliedAt time.Time
}

type Announcement struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	// The announcement outlives its author, the reference is cleared on deletion.
	AuthorId *uuid.UUID `gorm:"type:uuid;index"`
	Author   *User      `gorm:"constraint:OnDelete:SET NULL"`

	Title   string `gorm:"size:255;not null"`
	Content string `gorm:"not null"`

	CreatedAt time.Time
}

type Notification struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId uuid.UUID `gorm:"type:uuid;not null;index:idx_user_read"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE"`

	LectureId *uuid.UUID `gorm:"type:uuid"`
	Lecture   *Lecture   `gorm:"constraint:OnDelete:CASCADE"`

	Message string `gorm:"not null"`
	IsRead  bool   `gorm:"not null;default:false;index:idx_user_read"`

	CreatedAt time.Time
}

type Message struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Messages outlive both participants, the references are cleared on deletion.
	SenderId *uuid.UUID `gorm:"type:uuid;index"`
	Sender   *User      `gorm:"foreignKey:SenderId;constraint:OnDelete:SET NULL"`

	RecipientId *uuid.UUID `gorm:"type:uuid;index"`
	Recipient   *User      `gorm:"foreignKey:RecipientId;constraint:OnDelete:SET NULL"`

	Content string `gorm:"not null"`

	SentAt time.Time
	ReadAt *time.Time
}

func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Lecture{}, &LectureRecruitment{}, &Application{},
		&Announcement{}, &Notification{}, &Message{},
	}
}
