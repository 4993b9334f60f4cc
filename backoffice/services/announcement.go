package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"staffing_platform/backoffice/auth"
	"staffing_platform/backoffice/schema"
	"staffing_platform/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const recentAnnouncementCount = 5

type AnnouncementService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *AnnouncementService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionList)).Get("/recent", s.Recent)
	r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionCreate)).Post("/", s.Create)

	r.Route("/{announcement_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionUpdate)).Patch("/", s.Update)
		r.With(auth.RequirePermission(auth.ResourceAnnouncement, auth.ActionDelete)).Delete("/", s.Delete)
	})

	return r
}

type AnnouncementInfo struct {
	Id        uuid.UUID  `json:"id"`
	AuthorId  *uuid.UUID `json:"author_id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

func convertToAnnouncementInfo(announcement *schema.Announcement) AnnouncementInfo {
	return AnnouncementInfo{
		Id:        announcement.Id,
		AuthorId:  announcement.AuthorId,
		Title:     announcement.Title,
		Content:   announcement.Content,
		CreatedAt: announcement.CreatedAt,
	}
}

type announcementCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *AnnouncementService) Create(w http.ResponseWriter, r *http.Request) {
	var params announcementCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Title == "" || params.Content == "" {
		http.Error(w, "announcement title and content must be specified", http.StatusUnprocessableEntity)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	announcement := schema.Announcement{
		Id:        uuid.New(),
		AuthorId:  &principal.Id,
		Title:     params.Title,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}

	if result := s.db.Create(&announcement); result.Error != nil {
		slog.Error("sql error creating announcement", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating announcement: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToAnnouncementInfo(&announcement))
}

func (s *AnnouncementService) List(w http.ResponseWriter, r *http.Request) {
	var announcements []schema.Announcement
	if result := s.db.Order("created_at desc").Find(&announcements); result.Error != nil {
		slog.Error("sql error listing announcements", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing announcements: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]AnnouncementInfo, 0, len(announcements))
	for i := range announcements {
		infos = append(infos, convertToAnnouncementInfo(&announcements[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

type AnnouncementDigest struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Recent returns a short digest of the newest announcements for dashboards.
func (s *AnnouncementService) Recent(w http.ResponseWriter, r *http.Request) {
	var announcements []schema.Announcement
	result := s.db.Order("created_at desc").Limit(recentAnnouncementCount).Find(&announcements)
	if result.Error != nil {
		slog.Error("sql error listing recent announcements", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing announcements: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	digests := make([]AnnouncementDigest, 0, len(announcements))
	for _, announcement := range announcements {
		digests = append(digests, AnnouncementDigest{
			Id:        announcement.Id,
			Title:     announcement.Title,
			CreatedAt: announcement.CreatedAt,
		})
	}
	utils.WriteJsonResponse(w, digests)
}

func (s *AnnouncementService) Retrieve(w http.ResponseWriter, r *http.Request) {
	announcementId, err := utils.URLParamUUID(r, "announcement_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	announcement, err := schema.GetAnnouncement(announcementId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrAnnouncementNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting announcement: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToAnnouncementInfo(&announcement))
}

type announcementUpdateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (s *AnnouncementService) Update(w http.ResponseWriter, r *http.Request) {
	announcementId, err := utils.URLParamUUID(r, "announcement_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params announcementUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	updates := map[string]interface{}{}
	if params.Title != nil {
		if *params.Title == "" {
			http.Error(w, "announcement title cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		updates["title"] = *params.Title
	}
	if params.Content != nil {
		if *params.Content == "" {
			http.Error(w, "announcement content cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		updates["content"] = *params.Content
	}

	var updated schema.Announcement
	err = s.db.Transaction(func(txn *gorm.DB) error {
		announcement, err := schema.GetAnnouncement(announcementId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrAnnouncementNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if len(updates) > 0 {
			if result := txn.Model(&announcement).Updates(updates); result.Error != nil {
				slog.Error("sql error updating announcement", "announcement_id", announcementId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = announcement
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating announcement: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToAnnouncementInfo(&updated))
}

func (s *AnnouncementService) Delete(w http.ResponseWriter, r *http.Request) {
	announcementId, err := utils.URLParamUUID(r, "announcement_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		announcement, err := schema.GetAnnouncement(announcementId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrAnnouncementNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if result := txn.Delete(&announcement); result.Error != nil {
			slog.Error("sql error deleting announcement", "announcement_id", announcementId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting announcement: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
