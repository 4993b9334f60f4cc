package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"staffing_platform/backoffice/auth"
	"staffing_platform/backoffice/schema"
	"staffing_platform/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

// AuthRoutes are the only unauthenticated routes in the system.
func (s *UserService) AuthRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", s.Register)
	r.Post("/login", s.Login)
	r.Post("/refresh", s.Refresh)

	return r
}

func (s *UserService) MeRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/", s.Me)
	r.Patch("/", s.UpdateMe)

	return r
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceUser, auth.ActionList)).Get("/", s.List)

	r.Route("/{user_id}", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.ResourceUser, auth.ActionRetrieve)).Get("/", s.Retrieve)
		r.With(auth.RequirePermission(auth.ResourceUser, auth.ActionUpdate)).Patch("/", s.Update)
	})

	return r
}

type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	PhoneNumber      string `json:"phone_number"`
	Role             string `json:"role"`
	ProfilePhotoUrl  string `json:"profile_photo_url"`
	Bio              string `json:"bio"`
	PortfolioContent string `json:"portfolio_content"`
}

type registerResponse struct {
	UserId uuid.UUID `json:"user_id"`
}

func (s *UserService) Register(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Username == "" || params.Email == "" || params.Name == "" {
		http.Error(w, "username, email, and name must be specified", http.StatusUnprocessableEntity)
		return
	}

	if len(params.Password) < minPasswordLength {
		http.Error(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength), http.StatusUnprocessableEntity)
		return
	}

	if params.Role == "" {
		params.Role = schema.RoleInstructor
	}
	if err := schema.CheckValidRole(params.Role); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	newUser := schema.User{
		Username:         params.Username,
		Email:            params.Email,
		Name:             params.Name,
		PhoneNumber:      params.PhoneNumber,
		Role:             params.Role,
		ProfilePhotoUrl:  params.ProfilePhotoUrl,
		Bio:              params.Bio,
		PortfolioContent: params.PortfolioContent,
	}

	userId, err := s.userAuth.CreateUser(newUser, params.Password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyInUse):
			responseCode = http.StatusConflict
		case errors.Is(err, auth.ErrUsernameAlreadyInUse):
			responseCode = http.StatusConflict
		}
		http.Error(w, fmt.Sprintf("error registering user: %v", err), responseCode)
		return
	}

	registrationMetric.Inc()

	utils.WriteJsonResponse(w, registerResponse{UserId: userId})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserId       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.Login(params.Email, params.Password)
	if err != nil {
		// A uniform rejection: the caller does not learn whether the email or
		// the password was wrong.
		if errors.Is(err, auth.ErrUserNotFoundWithEmail) || errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "login failed: invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("login failed: %v", err), http.StatusInternalServerError)
		return
	}

	loginMetric.Inc()

	utils.WriteJsonResponse(w, loginResponse{
		UserId:       login.UserId,
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *UserService) Refresh(w http.ResponseWriter, r *http.Request) {
	var params refreshRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.Refresh(params.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, fmt.Sprintf("refresh failed: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, loginResponse{
		UserId:       login.UserId,
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
}

type UserInfo struct {
	Id               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	Role             string    `json:"role"`
	ProfilePhotoUrl  string    `json:"profile_photo_url,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	PortfolioContent string    `json:"portfolio_content,omitempty"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	return UserInfo{
		Id:               user.Id,
		Username:         user.Username,
		Email:            user.Email,
		Name:             user.Name,
		PhoneNumber:      user.PhoneNumber,
		Role:             user.Role,
		ProfilePhotoUrl:  user.ProfilePhotoUrl,
		Bio:              user.Bio,
		PortfolioContent: user.PortfolioContent,
	}
}

func (s *UserService) Me(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info := convertToUserInfo(&user)
	utils.WriteJsonResponse(w, info)
}

// userUpdateRequest is the self-edit field set. Username, email, and role are
// deliberately absent: no endpoint mutates them.
type userUpdateRequest struct {
	Name             *string `json:"name"`
	PhoneNumber      *string `json:"phone_number"`
	ProfilePhotoUrl  *string `json:"profile_photo_url"`
	Bio              *string `json:"bio"`
	PortfolioContent *string `json:"portfolio_content"`
}

func (s *UserService) updateUser(w http.ResponseWriter, r *http.Request, userId uuid.UUID) {
	var params userUpdateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	updates := map[string]interface{}{}
	if params.Name != nil {
		if *params.Name == "" {
			http.Error(w, "name cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		updates["name"] = *params.Name
	}
	if params.PhoneNumber != nil {
		updates["phone_number"] = *params.PhoneNumber
	}
	if params.ProfilePhotoUrl != nil {
		updates["profile_photo_url"] = *params.ProfilePhotoUrl
	}
	if params.Bio != nil {
		updates["bio"] = *params.Bio
	}
	if params.PortfolioContent != nil {
		updates["portfolio_content"] = *params.PortfolioContent
	}

	var updated schema.User
	err := s.db.Transaction(func(txn *gorm.DB) error {
		user, err := schema.GetUser(userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrUserNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if len(updates) > 0 {
			result := txn.Model(&user).Updates(updates)
			if result.Error != nil {
				slog.Error("sql error updating user", "user_id", userId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		updated = user
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating user: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&updated))
}

func (s *UserService) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.updateUser(w, r, user.Id)
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	query := s.db.Order("username")

	if role := r.URL.Query().Get("role"); role != "" {
		if err := schema.CheckValidRole(role); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		query = query.Where("role = ?", role)
	}
	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if email := r.URL.Query().Get("email"); email != "" {
		query = query.Where("email LIKE ?", "%"+email+"%")
	}

	var users []schema.User
	result := query.Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing users: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, convertToUserInfo(&u))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *UserService) Retrieve(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The ownership check runs on ids alone, before any lookup, so a denied
	// caller learns nothing about whether the target exists.
	if auth.Allowed(principal.Role, auth.ResourceUser, auth.ActionRetrieve) == auth.ScopeOwn && userId != principal.Id {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	user, err := schema.GetUser(userId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting user: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&user))
}

func (s *UserService) Update(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if auth.Allowed(principal.Role, auth.ResourceUser, auth.ActionUpdate) == auth.ScopeOwn && userId != principal.Id {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	s.updateUser(w, r, userId)
}
