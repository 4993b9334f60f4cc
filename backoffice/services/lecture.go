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

type LectureService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *LectureService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionList)).Get("/calendar", s.Calendar)
	r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionCreate)).Post("/", s.Create)

	r.Route("/{lecture_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionUpdate)).Patch("/", s.Update)
		r.With(auth.RequirePermission(auth.ResourceLecture, auth.ActionDelete)).Delete("/", s.Delete)
	})

	return r
}

type LectureInfo struct {
	Id       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Type     string    `json:"type,omitempty"`
	Category string    `json:"category,omitempty"`
	Status   string    `json:"status"`

	LectureStartTime *time.Time `json:"lecture_start_time,omitempty"`
	LectureEndTime   *time.Time `json:"lecture_end_time,omitempty"`

	Location  string     `json:"location,omitempty"`
	ManagerId *uuid.UUID `json:"manager_id,omitempty"`

	TargetAudience     string `json:"target_audience,omitempty"`
	ContentDescription string `json:"content_description,omitempty"`
	SpecialNotes       string `json:"special_notes,omitempty"`
	AttachmentUrl      string `json:"attachment_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Recruitment *RecruitmentInfo `json:"recruitment,omitempty"`
}

func convertToLectureInfo(lecture *schema.Lecture) LectureInfo {
	info := LectureInfo{
		Id:                 lecture.Id,
		Title:              lecture.Title,
		Type:               lecture.Type,
		Category:           lecture.Category,
		Status:             lecture.Status,
		LectureStartTime:   lecture.LectureStartTime,
		LectureEndTime:     lecture.LectureEndTime,
		Location:           lecture.Location,
		ManagerId:          lecture.ManagerId,
		TargetAudience:     lecture.TargetAudience,
		ContentDescription: lecture.ContentDescription,
		SpecialNotes:       lecture.SpecialNotes,
		AttachmentUrl:      lecture.AttachmentUrl,
		CreatedAt:          lecture.CreatedAt,
	}
	if lecture.Recruitment != nil {
		recruitment := convertToRecruitmentInfo(lecture.Recruitment)
		info.Recruitment = &recruitment
	}
	return info
}

type lectureCreateRequest struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Status   string `json:"status"`

	LectureStartTime *time.Time `json:"lecture_start_time"`
	LectureEndTime   *time.Time `json:"lecture_end_time"`

	Location  string     `json:"location"`
	ManagerId *uuid.UUID `json:"manager_id"`

	TargetAudience     string `json:"target_audience"`
	ContentDescription string `json:"content_description"`
	SpecialNotes       string `json:"special_notes"`
	AttachmentUrl      string `json:"attachment_url"`
}

func (s *LectureService) Create(w http.ResponseWriter, r *http.Request) {
	var params lectureCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Title == "" {
		http.Error(w, "lecture title must be specified", http.StatusUnprocessableEntity)
		return
	}
	if params.Type != "" {
		if err := schema.CheckValidLectureType(params.Type); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if params.Status == "" {
		params.Status = schema.StatusRecruiting
	}
	if err := schema.CheckValidLectureStatus(params.Status); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if params.LectureStartTime != nil && params.LectureEndTime != nil &&
		params.LectureEndTime.Before(*params.LectureStartTime) {
		http.Error(w, "lecture cannot end before it starts", http.StatusUnprocessableEntity)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	managerId := params.ManagerId
	if managerId == nil {
		managerId = &principal.Id
	}

	lecture := schema.Lecture{
		Id:                 uuid.New(),
		Title:              params.Title,
		Type:               params.Type,
		Category:           params.Category,
		Status:             params.Status,
		LectureStartTime:   params.LectureStartTime,
		LectureEndTime:     params.LectureEndTime,
		Location:           params.Location,
		ManagerId:          managerId,
		TargetAudience:     params.TargetAudience,
		ContentDescription: params.ContentDescription,
		SpecialNotes:       params.SpecialNotes,
		AttachmentUrl:      params.AttachmentUrl,
		CreatedAt:          time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, *managerId); err != nil {
			return err
		}

		if result := txn.Create(&lecture); result.Error != nil {
			slog.Error("sql error creating lecture", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating lecture: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToLectureInfo(&lecture))
}

func (s *LectureService) List(w http.ResponseWriter, r *http.Request) {
	query := s.db.Preload("Recruitment").Order("created_at desc")

	if lectureType := r.URL.Query().Get("type"); lectureType != "" {
		if err := schema.CheckValidLectureType(lectureType); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		query = query.Where("type = ?", lectureType)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if err := schema.CheckValidLectureStatus(status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		query = query.Where("status = ?", status)
	}
	managerId, err := utils.QueryParamUUID(r, "manager_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if managerId != uuid.Nil {
		query = query.Where("manager_id = ?", managerId)
	}

	var lectures []schema.Lecture
	if result := query.Find(&lectures); result.Error != nil {
		slog.Error("sql error listing lectures", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing lectures: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]LectureInfo, 0, len(lectures))
	for i := range lectures {
		infos = append(infos, convertToLectureInfo(&lectures[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

type CalendarEntry struct {
	Id               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type,omitempty"`
	Status           string     `json:"status"`
	LectureStartTime *time.Time `json:"lecture_start_time"`
	LectureEndTime   *time.Time `json:"lecture_end_time,omitempty"`
}

// Calendar returns scheduled lectures only, optionally restricted to a single
// month via the 'year' and 'month' query params.
func (s *LectureService) Calendar(w http.ResponseWriter, r *http.Request) {
	query := s.db.Where("lecture_start_time IS NOT NULL").Order("lecture_start_time")

	yearParam, monthParam := r.URL.Query().Get("year"), r.URL.Query().Get("month")
	if yearParam != "" && monthParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid year '%v'", yearParam), http.StatusBadRequest)
			return
		}
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			http.Error(w, fmt.Sprintf("invalid month '%v'", monthParam), http.StatusBadRequest)
			return
		}

		monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("lecture_start_time >= ? AND lecture_start_time < ?", monthStart, monthStart.AddDate(0, 1, 0))
	} else if yearParam != "" || monthParam != "" {
		http.Error(w, "year and month must be given together", http.StatusBadRequest)
		return
	}

	var lectures []schema.Lecture
	if result := query.Find(&lectures); result.Error != nil {
		slog.Error("sql error listing calendar lectures", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing lectures: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	entries := make([]CalendarEntry, 0, len(lectures))
	for _, lecture := range lectures {
		entries = append(entries, CalendarEntry{
			Id:               lecture.Id,
			Title:            lecture.Title,
			Type:             lecture.Type,
			Status:           lecture.Status,
			LectureStartTime: lecture.LectureStartTime,
			LectureEndTime:   lecture.LectureEndTime,
		})
	}
	utils.WriteJsonResponse(w, entries)
}

func (s *LectureService) Retrieve(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var lecture schema.Lecture
	result := s.db.Preload("Recruitment").First(&lecture, "id = ?", lectureId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, schema.ErrLectureNotFound.Error(), http.StatusNotFound)
			return
		}
		slog.Error("sql error getting lecture", "lecture_id", lectureId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error getting lecture: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToLectureInfo(&lecture))
}

type lectureUpdateRequest struct {
	Title    *string `json:"title"`
	Type     *string `json:"type"`
	Category *string `json:"category"`
	Status   *string `json:"status"`

	LectureStartTime *time.Time `json:"lecture_start_time"`
	LectureEndTime   *time.Time `json:"lecture_end_time"`

	Location  *string    `json:"location"`
	ManagerId *uuid.UUID `json:"manager_id"`

	TargetAudience     *string `json:"target_audience"`
	ContentDescription *string `json:"content_description"`
	SpecialNotes       *string `json:"special_notes"`
	AttachmentUrl      *string `json:"attachment_url"`
}

func (s *LectureService) Update(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params lectureUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	updates := map[string]interface{}{}
	if params.Title != nil {
		if *params.Title == "" {
			http.Error(w, "lecture title cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		updates["title"] = *params.Title
	}
	if params.Type != nil {
		if err := schema.CheckValidLectureType(*params.Type); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		updates["type"] = *params.Type
	}
	if params.Category != nil {
		updates["category"] = *params.Category
	}
	if params.Status != nil {
		if err := schema.CheckValidLectureStatus(*params.Status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		updates["status"] = *params.Status
	}
	if params.LectureStartTime != nil {
		updates["lecture_start_time"] = *params.LectureStartTime
	}
	if params.LectureEndTime != nil {
		updates["lecture_end_time"] = *params.LectureEndTime
	}
	if params.Location != nil {
		updates["location"] = *params.Location
	}
	if params.ManagerId != nil {
		updates["manager_id"] = *params.ManagerId
	}
	if params.TargetAudience != nil {
		updates["target_audience"] = *params.TargetAudience
	}
	if params.ContentDescription != nil {
		updates["content_description"] = *params.ContentDescription
	}
	if params.SpecialNotes != nil {
		updates["special_notes"] = *params.SpecialNotes
	}
	if params.AttachmentUrl != nil {
		updates["attachment_url"] = *params.AttachmentUrl
	}

	var updated schema.Lecture
	err = s.db.Transaction(func(txn *gorm.DB) error {
		lecture, err := schema.GetLecture(lectureId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrLectureNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.ManagerId != nil {
			if err := checkUserExists(txn, *params.ManagerId); err != nil {
				return err
			}
		}

		start, end := lecture.LectureStartTime, lecture.LectureEndTime
		if params.LectureStartTime != nil {
			start = params.LectureStartTime
		}
		if params.LectureEndTime != nil {
			end = params.LectureEndTime
		}
		if start != nil && end != nil && end.Before(*start) {
			return CodedError(errors.New("lecture cannot end before it starts"), http.StatusUnprocessableEntity)
		}

		if len(updates) > 0 {
			if result := txn.Model(&lecture).Updates(updates); result.Error != nil {
				slog.Error("sql error updating lecture", "lecture_id", lectureId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = lecture
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating lecture: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToLectureInfo(&updated))
}

func (s *LectureService) Delete(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		lecture, err := schema.GetLecture(lectureId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrLectureNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// Dependent rows go first so the delete works the same whether or not
		// the database enforces the cascade constraints.
		for _, dependent := range []interface{}{&schema.Application{}, &schema.Notification{}, &schema.LectureRecruitment{}} {
			if result := txn.Where("lecture_id = ?", lectureId).Delete(dependent); result.Error != nil {
				slog.Error("sql error deleting lecture dependents", "lecture_id", lectureId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		if result := txn.Delete(&lecture); result.Error != nil {
			slog.Error("sql error deleting lecture", "lecture_id", lectureId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting lecture: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
