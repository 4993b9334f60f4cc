package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrLectureNotFound      = errors.New("lecture not found")
	ErrRecruitmentNotFound  = errors.New("recruitment not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrDbAccessFailed       = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetLecture(lectureId uuid.UUID, db *gorm.DB, loadManager bool) (Lecture, error) {
	var lecture Lecture

	query := db
	if loadManager {
		query = query.Preload("Manager")
	}
	result := query.First(&lecture, "id = ?", lectureId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return lecture, ErrLectureNotFound
		}
		slog.Error("sql error in get lecture", "lecture_id", lectureId, "error", result.Error)
		return lecture, ErrDbAccessFailed
	}

	return lecture, nil
}

func GetRecruitment(lectureId uuid.UUID, db *gorm.DB) (LectureRecruitment, error) {
	var recruitment LectureRecruitment

	result := db.Preload("Lecture").First(&recruitment, "lecture_id = ?", lectureId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return recruitment, ErrRecruitmentNotFound
		}
		slog.Error("sql error in get recruitment", "lecture_id", lectureId, "error", result.Error)
		return recruitment, ErrDbAccessFailed
	}

	return recruitment, nil
}

func GetApplication(applicationId uuid.UUID, db *gorm.DB) (Application, error) {
	var application Application

	result := db.Preload("Lecture").Preload("User").First(&application, "id = ?", applicationId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return application, ErrApplicationNotFound
		}
		slog.Error("sql error in get application", "application_id", applicationId, "error", result.Error)
		return application, ErrDbAccessFailed
	}

	return application, nil
}

func GetAnnouncement(announcementId uuid.UUID, db *gorm.DB) (Announcement, error) {
	var announcement Announcement

	result := db.Preload("Author").First(&announcement, "id = ?", announcementId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return announcement, ErrAnnouncementNotFound
		}
		slog.Error("sql error in get announcement", "announcement_id", announcementId, "error", result.Error)
		return announcement, ErrDbAccessFailed
	}

	return announcement, nil
}

func GetNotification(notificationId uuid.UUID, db *gorm.DB) (Notification, error) {
	var notification Notification

	result := db.Preload("User").First(&notification, "id = ?", notificationId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return notification, ErrNotificationNotFound
		}
		slog.Error("sql error in get notification", "notification_id", notificationId, "error", result.Error)
		return notification, ErrDbAccessFailed
	}

	return notification, nil
}

func GetMessage(messageId uuid.UUID, db *gorm.DB) (Message, error) {
	var message Message

	result := db.Preload("Sender").Preload("Recipient").First(&message, "id = ?", messageId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return message, ErrMessageNotFound
		}
		slog.Error("sql error in get message", "message_id", messageId, "error", result.Error)
		return message, ErrDbAccessFailed
	}

	return message, nil
}
