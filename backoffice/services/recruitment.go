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

// RecruitmentService manages the staffing terms attached to a lecture. A
// lecture has at most one recruitment, so records are addressed by lecture id.
type RecruitmentService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *RecruitmentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceRecruitment, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceRecruitment, auth.ActionCreate)).Post("/", s.Create)

	r.Route("/{lecture_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceRecruitment, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceRecruitment, auth.ActionUpdate)).Patch("/", s.Update)
		r.With(auth.RequirePermission(auth.ResourceRecruitment, auth.ActionDelete)).Delete("/", s.Delete)
	})

	return r
}

type RecruitmentInfo struct {
	LectureId uuid.UUID `json:"lecture_id"`

	ApplicationStartDate *time.Time `json:"application_start_date,omitempty"`
	ApplicationEndDate   *time.Time `json:"application_end_date,omitempty"`

	MaxParticipants int `json:"max_participants"`
	MainNeeded      int `json:"main_needed"`
	AssistNeeded    int `json:"assist_needed"`

	FeeMain   int `json:"fee_main"`
	FeeAssist int `json:"fee_assist"`
}

func convertToRecruitmentInfo(recruitment *schema.LectureRecruitment) RecruitmentInfo {
	return RecruitmentInfo{
		LectureId:            recruitment.LectureId,
		ApplicationStartDate: recruitment.ApplicationStartDate,
		ApplicationEndDate:   recruitment.ApplicationEndDate,
		MaxParticipants:      recruitment.MaxParticipants,
		MainNeeded:           recruitment.MainNeeded,
		AssistNeeded:         recruitment.AssistNeeded,
		FeeMain:              recruitment.FeeMain,
		FeeAssist:            recruitment.FeeAssist,
	}
}

type recruitmentCreateRequest struct {
	LectureId uuid.UUID `json:"lecture_id"`

	ApplicationStartDate *time.Time `json:"application_start_date"`
	ApplicationEndDate   *time.Time `json:"application_end_date"`

	MaxParticipants int `json:"max_participants"`
	MainNeeded      int `json:"main_needed"`
	AssistNeeded    int `json:"assist_needed"`

	FeeMain   int `json:"fee_main"`
	FeeAssist int `json:"fee_assist"`
}

func checkRecruitmentCounts(mainNeeded, assistNeeded, maxParticipants, feeMain, feeAssist int) error {
	if mainNeeded < 0 || assistNeeded < 0 || maxParticipants < 0 {
		return errors.New("headcounts cannot be negative")
	}
	if feeMain < 0 || feeAssist < 0 {
		return errors.New("fees cannot be negative")
	}
	return nil
}

func (s *RecruitmentService) Create(w http.ResponseWriter, r *http.Request) {
	var params recruitmentCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.LectureId == uuid.Nil {
		http.Error(w, "lecture_id must be specified", http.StatusUnprocessableEntity)
		return
	}
	if err := checkRecruitmentCounts(params.MainNeeded, params.AssistNeeded, params.MaxParticipants, params.FeeMain, params.FeeAssist); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if params.ApplicationStartDate != nil && params.ApplicationEndDate != nil &&
		params.ApplicationEndDate.Before(*params.ApplicationStartDate) {
		http.Error(w, "application window cannot end before it starts", http.StatusUnprocessableEntity)
		return
	}

	recruitment := schema.LectureRecruitment{
		LectureId:            params.LectureId,
		ApplicationStartDate: params.ApplicationStartDate,
		ApplicationEndDate:   params.ApplicationEndDate,
		MaxParticipants:      params.MaxParticipants,
		MainNeeded:           params.MainNeeded,
		AssistNeeded:         params.AssistNeeded,
		FeeMain:              params.FeeMain,
		FeeAssist:            params.FeeAssist,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkLectureExists(txn, params.LectureId); err != nil {
			return err
		}

		_, err := schema.GetRecruitment(params.LectureId, txn)
		if err == nil {
			return CodedError(fmt.Errorf("lecture %v already has a recruitment", params.LectureId), http.StatusConflict)
		}
		if !errors.Is(err, schema.ErrRecruitmentNotFound) {
			return CodedError(err, http.StatusInternalServerError)
		}

		if result := txn.Create(&recruitment); result.Error != nil {
			slog.Error("sql error creating recruitment", "lecture_id", params.LectureId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating recruitment: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToRecruitmentInfo(&recruitment))
}

func (s *RecruitmentService) List(w http.ResponseWriter, r *http.Request) {
	query := s.db.Order("lecture_id")

	lectureId, err := utils.QueryParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if lectureId != uuid.Nil {
		query = query.Where("lecture_id = ?", lectureId)
	}

	var recruitments []schema.LectureRecruitment
	if result := query.Find(&recruitments); result.Error != nil {
		slog.Error("sql error listing recruitments", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing recruitments: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]RecruitmentInfo, 0, len(recruitments))
	for i := range recruitments {
		infos = append(infos, convertToRecruitmentInfo(&recruitments[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *RecruitmentService) Retrieve(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	recruitment, err := schema.GetRecruitment(lectureId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrRecruitmentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting recruitment: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRecruitmentInfo(&recruitment))
}

type recruitmentUpdateRequest struct {
	ApplicationStartDate *time.Time `json:"application_start_date"`
	ApplicationEndDate   *time.Time `json:"application_end_date"`

	MaxParticipants *int `json:"max_participants"`
	MainNeeded      *int `json:"main_needed"`
	AssistNeeded    *int `json:"assist_needed"`

	FeeMain   *int `json:"fee_main"`
	FeeAssist *int `json:"fee_assist"`
}

func (s *RecruitmentService) Update(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params recruitmentUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var updated schema.LectureRecruitment
	err = s.db.Transaction(func(txn *gorm.DB) error {
		recruitment, err := schema.GetRecruitment(lectureId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrRecruitmentNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		updates := map[string]interface{}{}
		if params.ApplicationStartDate != nil {
			recruitment.ApplicationStartDate = params.ApplicationStartDate
			updates["application_start_date"] = *params.ApplicationStartDate
		}
		if params.ApplicationEndDate != nil {
			recruitment.ApplicationEndDate = params.ApplicationEndDate
			updates["application_end_date"] = *params.ApplicationEndDate
		}
		if params.MaxParticipants != nil {
			recruitment.MaxParticipants = *params.MaxParticipants
			updates["max_participants"] = *params.MaxParticipants
		}
		if params.MainNeeded != nil {
			recruitment.MainNeeded = *params.MainNeeded
			updates["main_needed"] = *params.MainNeeded
		}
		if params.AssistNeeded != nil {
			recruitment.AssistNeeded = *params.AssistNeeded
			updates["assist_needed"] = *params.AssistNeeded
		}
		if params.FeeMain != nil {
			recruitment.FeeMain = *params.FeeMain
			updates["fee_main"] = *params.FeeMain
		}
		if params.FeeAssist != nil {
			recruitment.FeeAssist = *params.FeeAssist
			updates["fee_assist"] = *params.FeeAssist
		}

		if err := checkRecruitmentCounts(recruitment.MainNeeded, recruitment.AssistNeeded, recruitment.MaxParticipants, recruitment.FeeMain, recruitment.FeeAssist); err != nil {
			return CodedError(err, http.StatusUnprocessableEntity)
		}
		if recruitment.ApplicationStartDate != nil && recruitment.ApplicationEndDate != nil &&
			recruitment.ApplicationEndDate.Before(*recruitment.ApplicationStartDate) {
			return CodedError(errors.New("application window cannot end before it starts"), http.StatusUnprocessableEntity)
		}

		if len(updates) > 0 {
			if result := txn.Model(&schema.LectureRecruitment{}).Where("lecture_id = ?", lectureId).Updates(updates); result.Error != nil {
				slog.Error("sql error updating recruitment", "lecture_id", lectureId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = recruitment
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating recruitment: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToRecruitmentInfo(&updated))
}

func (s *RecruitmentService) Delete(w http.ResponseWriter, r *http.Request) {
	lectureId, err := utils.URLParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetRecruitment(lectureId, txn); err != nil {
			if errors.Is(err, schema.ErrRecruitmentNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if result := txn.Where("lecture_id = ?", lectureId).Delete(&schema.LectureRecruitment{}); result.Error != nil {
			slog.Error("sql error deleting recruitment", "lecture_id", lectureId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting recruitment: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
