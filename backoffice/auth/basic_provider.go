package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"staffing_platform/backoffice/schema"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BasicIdentityProvider issues a short-lived access token and a longer-lived
// refresh token. The two are signed with different secrets so a refresh token
// can never be presented as an access token.
type BasicIdentityProvider struct {
	accessJwt  *JwtManager
	refreshJwt *JwtManager
	db         *gorm.DB
	auditLog   AuditLogger
}

type BasicProviderArgs struct {
	Secret          []byte
	ManagerUsername string
	ManagerEmail    string
	ManagerPassword string
}

func NewBasicIdentityProvider(db *gorm.DB, auditLog AuditLogger, args BasicProviderArgs) (IdentityProvider, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(args.ManagerPassword), 10)
	if err != nil {
		return nil, fmt.Errorf("error encrypting initial manager password: %w", err)
	}

	err = addInitialManagerToDb(db, uuid.New(), args.ManagerUsername, args.ManagerEmail, hashedPwd)
	if err != nil {
		return nil, fmt.Errorf("error adding initial manager to db: %w", err)
	}

	return &BasicIdentityProvider{
		accessJwt:  NewJwtManager(args.Secret),
		refreshJwt: NewJwtManager(slices.Concat(args.Secret, []byte("refresh"))),
		db:         db,
		auditLog:   auditLog,
	}, nil
}

func (auth *BasicIdentityProvider) addUserToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			userId, err := ValueFromContext(r, userIdKey)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			userUUID, err := uuid.Parse(userId)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid user uuid '%v': %v", userId, err), http.StatusUnauthorized)
				return
			}

			user, err := schema.GetUser(userUUID, auth.db)
			if err != nil {
				if errors.Is(err, schema.ErrUserNotFound) {
					http.Error(w, err.Error(), http.StatusUnauthorized)
					return
				}
				http.Error(w, fmt.Sprintf("unable to find user %v: %v", userId, err), http.StatusInternalServerError)
				return
			}

			reqCtx := r.Context()
			reqCtx = context.WithValue(reqCtx, UserRequestContextKey, user)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		}

		return http.HandlerFunc(handler)
	}
}

func (auth *BasicIdentityProvider) AuthMiddleware() chi.Middlewares {
	return chi.Middlewares{auth.accessJwt.Verifier(), auth.accessJwt.Authenticator(), auth.addUserToContext(), auth.auditLog.Middleware}
}

func (auth *BasicIdentityProvider) Login(email, password string) (LoginResult, error) {
	var user schema.User
	result := auth.db.First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return LoginResult{}, ErrUserNotFoundWithEmail
		}
		slog.Error("sql error looking up user by email", "error", result.Error)
		return LoginResult{}, schema.ErrDbAccessFailed
	}

	err := bcrypt.CompareHashAndPassword(user.Password, []byte(password))
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	return auth.tokenPair(user.Id)
}

func (auth *BasicIdentityProvider) Refresh(refreshToken string) (LoginResult, error) {
	userId, err := auth.refreshJwt.UserIdFromToken(refreshToken)
	if err != nil {
		return LoginResult{}, ErrInvalidRefreshToken
	}

	// The account may have been deleted since the refresh token was issued.
	if _, err := schema.GetUser(userId, auth.db); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidRefreshToken
		}
		return LoginResult{}, err
	}

	return auth.tokenPair(userId)
}

func (auth *BasicIdentityProvider) tokenPair(userId uuid.UUID) (LoginResult, error) {
	access, err := auth.accessJwt.CreateUserJwt(userId, AccessTokenLifetime)
	if err != nil {
		return LoginResult{}, ErrGeneratingJwt
	}

	refresh, err := auth.refreshJwt.CreateUserJwt(userId, RefreshTokenLifetime)
	if err != nil {
		return LoginResult{}, ErrGeneratingJwt
	}

	return LoginResult{UserId: userId, AccessToken: access, RefreshToken: refresh}, nil
}

func (auth *BasicIdentityProvider) CreateUser(newUser schema.User, password string) (uuid.UUID, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("error encrypting password: %w", err)
	}

	newUser.Id = uuid.New()
	newUser.Password = hashedPwd

	err = auth.db.Transaction(func(txn *gorm.DB) error {
		var existingUser schema.User
		result := txn.Limit(1).Find(&existingUser, "username = ? or email = ?", newUser.Username, newUser.Email)
		if result.Error != nil {
			slog.Error("sql error checking for existing username/email", "error", result.Error)
			return schema.ErrDbAccessFailed
		}
		if result.RowsAffected != 0 {
			if existingUser.Username == newUser.Username {
				return ErrUsernameAlreadyInUse
			} else {
				return ErrEmailAlreadyInUse
			}
		}

		result = txn.Create(&newUser)
		if result.Error != nil {
			slog.Error("sql error creating new user entry", "error", result.Error)
			return schema.ErrDbAccessFailed
		}

		return nil
	})

	if err != nil {
		return uuid.UUID{}, fmt.Errorf("error creating new user: %w", err)
	}

	return newUser.Id, nil
}
