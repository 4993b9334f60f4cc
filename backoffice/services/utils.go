package services

import (
	"errors"
	"log/slog"
	"net/http"
	"staffing_platform/backoffice/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	_, err := schema.GetUser(userId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkLectureExists(txn *gorm.DB, lectureId uuid.UUID) error {
	_, err := schema.GetLecture(lectureId, txn, false)
	if err != nil {
		if errors.Is(err, schema.ErrLectureNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}
