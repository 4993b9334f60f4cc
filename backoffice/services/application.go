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

// ApplicationService handles the staffing workflow: instructors submit and
// withdraw applications, managers decide them.
type ApplicationService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ApplicationService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceApplication, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceApplication, auth.ActionCreate)).Post("/", s.Create)

	r.Route("/{application_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceApplication, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceApplication, auth.ActionUpdate)).Patch("/", s.Update)
		r.With(auth.RequirePermission(auth.ResourceApplication, auth.ActionDelete)).Delete("/", s.Delete)
	})

	return r
}

type ApplicationInfo struct {
	Id        uuid.UUID `json:"id"`
	LectureId uuid.UUID `json:"lecture_id"`
	UserId    uuid.UUID `json:"user_id"`

	AppliedRole       string `json:"applied_role"`
	PortfolioSnapshot string `json:"portfolio_snapshot,omitempty"`

	AssignmentStatus string `json:"assignment_status"`
	AssignedRole     string `json:"assigned_role,omitempty"`

	AppliedAt time.Time `json:"applied_at"`
}

func convertToApplicationInfo(application *schema.Application) ApplicationInfo {
	return ApplicationInfo{
		Id:                application.Id,
		LectureId:         application.LectureId,
		UserId:            application.UserId,
		AppliedRole:       application.AppliedRole,
		PortfolioSnapshot: application.PortfolioSnapshot,
		AssignmentStatus:  application.AssignmentStatus,
		AssignedRole:      application.AssignedRole,
		AppliedAt:         application.AppliedAt,
	}
}

type applicationCreateRequest struct {
	LectureId   uuid.UUID `json:"lecture_id"`
	AppliedRole string    `json:"applied_role"`
}

func (s *ApplicationService) Create(w http.ResponseWriter, r *http.Request) {
	var params applicationCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.LectureId == uuid.Nil {
		http.Error(w, "lecture_id must be specified", http.StatusUnprocessableEntity)
		return
	}
	if err := schema.CheckValidLectureRole(params.AppliedRole); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	application := schema.Application{
		Id:          uuid.New(),
		LectureId:   params.LectureId,
		UserId:      principal.Id,
		AppliedRole: params.AppliedRole,
		// The applicant's portfolio is frozen at submission time so later
		// profile edits do not change what the manager reviewed.
		PortfolioSnapshot: principal.PortfolioContent,
		AssignmentStatus:  schema.AssignmentPending,
		AppliedAt:         time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkLectureExists(txn, params.LectureId); err != nil {
			return err
		}

		var existing schema.Application
		result := txn.First(&existing, "lecture_id = ? AND user_id = ? AND applied_role = ?",
			params.LectureId, principal.Id, params.AppliedRole)
		if result.Error == nil {
			return CodedError(fmt.Errorf("an application for this lecture and role already exists"), http.StatusConflict)
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Error("sql error checking for duplicate application", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Create(&application); result.Error != nil {
			slog.Error("sql error creating application", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating application: %v", err), GetResponseCode(err))
		return
	}

	applicationSubmittedMetric.Inc()

	utils.WriteJsonResponse(w, convertToApplicationInfo(&application))
}

func (s *ApplicationService) List(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db.Order("applied_at desc")

	// Instructors only ever see their own applications, whatever filters they
	// pass.
	if auth.Allowed(principal.Role, auth.ResourceApplication, auth.ActionList) == auth.ScopeOwn {
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

	lectureId, err := utils.QueryParamUUID(r, "lecture_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if lectureId != uuid.Nil {
		query = query.Where("lecture_id = ?", lectureId)
	}
	if status := r.URL.Query().Get("assignment_status"); status != "" {
		if err := schema.CheckValidAssignmentStatus(status); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		query = query.Where("assignment_status = ?", status)
	}
	if role := r.URL.Query().Get("applied_role"); role != "" {
		if err := schema.CheckValidLectureRole(role); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		query = query.Where("applied_role = ?", role)
	}

	var applications []schema.Application
	if result := query.Find(&applications); result.Error != nil {
		slog.Error("sql error listing applications", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing applications: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ApplicationInfo, 0, len(applications))
	for i := range applications {
		infos = append(infos, convertToApplicationInfo(&applications[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *ApplicationService) Retrieve(w http.ResponseWriter, r *http.Request) {
	applicationId, err := utils.URLParamUUID(r, "application_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	application, err := schema.GetApplication(applicationId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrApplicationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting application: %v", err), http.StatusInternalServerError)
		return
	}

	// An instructor asking for someone else's application gets the same
	// response as for a missing one.
	if auth.Allowed(principal.Role, auth.ResourceApplication, auth.ActionRetrieve) == auth.ScopeOwn &&
		application.UserId != principal.Id {
		http.Error(w, schema.ErrApplicationNotFound.Error(), http.StatusNotFound)
		return
	}

	utils.WriteJsonResponse(w, convertToApplicationInfo(&application))
}

type applicationUpdateRequest struct {
	AppliedRole      *string `json:"applied_role"`
	AssignmentStatus *string `json:"assignment_status"`
	AssignedRole     *string `json:"assigned_role"`
}

func (s *ApplicationService) Update(w http.ResponseWriter, r *http.Request) {
	applicationId, err := utils.URLParamUUID(r, "application_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params applicationUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ownOnly := auth.Allowed(principal.Role, auth.ResourceApplication, auth.ActionUpdate) == auth.ScopeOwn

	// Assignment is the manager's call. If an instructor's request touches the
	// decision fields at all, the whole request is rejected and nothing else in
	// it is applied.
	if ownOnly && (params.AssignmentStatus != nil || params.AssignedRole != nil) {
		http.Error(w, "instructors cannot modify assignment fields", http.StatusUnprocessableEntity)
		return
	}

	if params.AppliedRole != nil {
		if err := schema.CheckValidLectureRole(*params.AppliedRole); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if params.AssignmentStatus != nil {
		if err := schema.CheckValidAssignmentStatus(*params.AssignmentStatus); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if params.AssignedRole != nil && *params.AssignedRole != "" {
		if err := schema.CheckValidLectureRole(*params.AssignedRole); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	var updated schema.Application
	err = s.db.Transaction(func(txn *gorm.DB) error {
		application, err := schema.GetApplication(applicationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrApplicationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if ownOnly && application.UserId != principal.Id {
			return CodedError(schema.ErrApplicationNotFound, http.StatusNotFound)
		}

		updates := map[string]interface{}{}

		if params.AppliedRole != nil && *params.AppliedRole != application.AppliedRole {
			if application.AssignmentStatus != schema.AssignmentPending {
				return CodedError(errors.New("cannot change applied role after the application is decided"), http.StatusUnprocessableEntity)
			}

			var existing schema.Application
			result := txn.First(&existing, "lecture_id = ? AND user_id = ? AND applied_role = ?",
				application.LectureId, application.UserId, *params.AppliedRole)
			if result.Error == nil {
				return CodedError(errors.New("an application for this lecture and role already exists"), http.StatusConflict)
			}
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				slog.Error("sql error checking for duplicate application", "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			updates["applied_role"] = *params.AppliedRole
		}

		notify := ""
		if params.AssignmentStatus != nil && *params.AssignmentStatus != application.AssignmentStatus {
			switch *params.AssignmentStatus {
			case schema.AssignmentAssigned:
				assignedRole := application.AppliedRole
				if params.AssignedRole != nil && *params.AssignedRole != "" {
					assignedRole = *params.AssignedRole
				}
				updates["assignment_status"] = schema.AssignmentAssigned
				updates["assigned_role"] = assignedRole
				notify = fmt.Sprintf("You have been assigned as %v instructor.", assignedRole)
			case schema.AssignmentRejected:
				updates["assignment_status"] = schema.AssignmentRejected
				updates["assigned_role"] = ""
				notify = "Your application was not selected."
			case schema.AssignmentPending:
				// Managers can walk a decision back to pending.
				updates["assignment_status"] = schema.AssignmentPending
				updates["assigned_role"] = ""
			}
		} else if params.AssignedRole != nil && application.AssignmentStatus == schema.AssignmentAssigned &&
			*params.AssignedRole != application.AssignedRole {
			updates["assigned_role"] = *params.AssignedRole
			notify = fmt.Sprintf("You have been assigned as %v instructor.", *params.AssignedRole)
		}

		if len(updates) > 0 {
			if result := txn.Model(&application).Updates(updates); result.Error != nil {
				slog.Error("sql error updating application", "application_id", applicationId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		if notify != "" {
			lectureId := application.LectureId
			notification := schema.Notification{
				Id:        uuid.New(),
				UserId:    application.UserId,
				LectureId: &lectureId,
				Message:   notify,
				CreatedAt: time.Now().UTC(),
			}
			if result := txn.Create(&notification); result.Error != nil {
				slog.Error("sql error creating decision notification", "application_id", applicationId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			applicationDecidedMetric.Inc()
		}

		updated = application
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating application: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToApplicationInfo(&updated))
}

func (s *ApplicationService) Delete(w http.ResponseWriter, r *http.Request) {
	applicationId, err := utils.URLParamUUID(r, "application_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		application, err := schema.GetApplication(applicationId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrApplicationNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if auth.Allowed(principal.Role, auth.ResourceApplication, auth.ActionDelete) == auth.ScopeOwn &&
			application.UserId != principal.Id {
			return CodedError(schema.ErrApplicationNotFound, http.StatusNotFound)
		}

		if result := txn.Delete(&application); result.Error != nil {
			slog.Error("sql error deleting application", "application_id", applicationId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error withdrawing application: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
