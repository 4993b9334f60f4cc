package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"staffing_platform/backoffice/auth"
	"staffing_platform/backoffice/schema"
	"staffing_platform/utils"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *NotificationService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionCreate)).Post("/", s.Create)

	r.Route("/{notification_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionUpdate)).Patch("/", s.Update)
		r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionDelete)).Delete("/", s.Delete)
		r.With(auth.RequirePermission(auth.ResourceNotification, auth.ActionMarkRead)).Post("/mark-as-read", s.MarkAsRead)
	})

	return r
}

type NotificationInfo struct {
	Id        uuid.UUID  `json:"id"`
	UserId    uuid.UUID  `json:"user_id"`
	LectureId *uuid.UUID `json:"lecture_id,omitempty"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

func convertToNotificationInfo(notification *schema.Notification) NotificationInfo {
	return NotificationInfo{
		Id:        notification.Id,
		UserId:    notification.UserId,
		LectureId: notification.LectureId,
		Message:   notification.Message,
		IsRead:    notification.IsRead,
		CreatedAt: notification.CreatedAt,
	}
}

type notificationCreateRequest struct {
	UserId    uuid.UUID  `json:"user_id"`
	LectureId *uuid.UUID `json:"lecture_id"`
	Message   string     `json:"message"`
}

func (s *NotificationService) Create(w http.ResponseWriter, r *http.Request) {
	var params notificationCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.UserId == uuid.Nil {
		http.Error(w, "user_id must be specified", http.StatusUnprocessableEntity)
		return
	}
	if params.Message == "" {
		http.Error(w, "notification message must be specified", http.StatusUnprocessableEntity)
		return
	}

	notification := schema.Notification{
		Id:        uuid.New(),
		UserId:    params.UserId,
		LectureId: params.LectureId,
		Message:   params.Message,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.UserId); err != nil {
			return err
		}
		if params.LectureId != nil {
			if err := checkLectureExists(txn, *params.LectureId); err != nil {
				return err
			}
		}

		if result := txn.Create(&notification); result.Error != nil {
			slog.Error("sql error creating notification", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating notification: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToNotificationInfo(&notification))
}

func (s *NotificationService) List(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db.Order("created_at desc")

	if auth.Allowed(principal.Role, auth.ResourceNotification, auth.ActionList) == auth.ScopeOwn {
		query = query.Where("user_id = ?", principal.Id)
	} else {
		userId, err := utils.QueryParamUUID(r, "user_id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if userId != uuid.Nil {
			query = query.Where("user_id = ?", userId)
		}
	}

	if isReadParam := r.URL.Query().Get("is_read"); isReadParam != "" {
		isRead, err := strconv.ParseBool(isReadParam)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid is_read value '%v'", isReadParam), http.StatusBadRequest)
			return
		}
		query = query.Where("is_read = ?", isRead)
	}

	var notifications []schema.Notification
	if result := query.Find(&notifications); result.Error != nil {
		slog.Error("sql error listing notifications", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing notifications: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]NotificationInfo, 0, len(notifications))
	for i := range notifications {
		infos = append(infos, convertToNotificationInfo(&notifications[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *NotificationService) Retrieve(w http.ResponseWriter, r *http.Request) {
	notificationId, err := utils.URLParamUUID(r, "notification_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	notification, err := schema.GetNotification(notificationId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrNotificationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting notification: %v", err), http.StatusInternalServerError)
		return
	}

	if auth.Allowed(principal.Role, auth.ResourceNotification, auth.ActionRetrieve) == auth.ScopeOwn &&
		notification.UserId != principal.Id {
		http.Error(w, schema.ErrNotificationNotFound.Error(), http.StatusNotFound)
		return
	}

	utils.WriteJsonResponse(w, convertToNotificationInfo(&notification))
}

type notificationUpdateRequest struct {
	Message *string `json:"message"`
	IsRead  *bool   `json:"is_read"`
}

func (s *NotificationService) Update(w http.ResponseWriter, r *http.Request) {
	notificationId, err := utils.URLParamUUID(r, "notification_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params notificationUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	updates := map[string]interface{}{}
	if params.Message != nil {
		if *params.Message == "" {
			http.Error(w, "notification message cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		updates["message"] = *params.Message
	}
	if params.IsRead != nil {
		updates["is_read"] = *params.IsRead
	}

	var updated schema.Notification
	err = s.db.Transaction(func(txn *gorm.DB) error {
		notification, err := schema.GetNotification(notificationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrNotificationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if len(updates) > 0 {
			if result := txn.Model(&notification).Updates(updates); result.Error != nil {
				slog.Error("sql error updating notification", "notification_id", notificationId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = notification
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating notification: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToNotificationInfo(&updated))
}

// MarkAsRead is idempotent, marking an already read notification succeeds
// without changing anything.
func (s *NotificationService) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	notificationId, err := utils.URLParamUUID(r, "notification_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var updated schema.Notification
	err = s.db.Transaction(func(txn *gorm.DB) error {
		notification, err := schema.GetNotification(notificationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrNotificationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if auth.Allowed(principal.Role, auth.ResourceNotification, auth.ActionMarkRead) == auth.ScopeOwn &&
			notification.UserId != principal.Id {
			return CodedError(schema.ErrNotificationNotFound, http.StatusNotFound)
		}

		if !notification.IsRead {
			if result := txn.Model(&notification).Update("is_read", true); result.Error != nil {
				slog.Error("sql error marking notification as read", "notification_id", notificationId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = notification
		updated.IsRead = true
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error marking notification as read: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToNotificationInfo(&updated))
}

func (s *NotificationService) Delete(w http.ResponseWriter, r *http.Request) {
	notificationId, err := utils.URLParamUUID(r, "notification_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		notification, err := schema.GetNotification(notificationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrNotificationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if result := txn.Delete(&notification); result.Error != nil {
			slog.Error("sql error deleting notification", "notification_id", notificationId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting notification: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
