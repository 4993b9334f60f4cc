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

// MessageService implements direct messages between users. Both roles use it
// the same way, every caller only ever sees conversations they took part in.
type MessageService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *MessageService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(auth.RequirePermission(auth.ResourceMessage, auth.ActionList)).Get("/", s.List)
	r.With(auth.RequirePermission(auth.ResourceMessage, auth.ActionCreate)).Post("/", s.Send)
	r.With(auth.RequirePermission(auth.ResourceMessage, auth.ActionRetrieve)).Get("/{message_id}", s.Retrieve)

	return r
}

type MessageInfo struct {
	Id          uuid.UUID  `json:"id"`
	SenderId    *uuid.UUID `json:"sender_id,omitempty"`
	RecipientId *uuid.UUID `json:"recipient_id,omitempty"`
	Content     string     `json:"content"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

func convertToMessageInfo(message *schema.Message) MessageInfo {
	return MessageInfo{
		Id:          message.Id,
		SenderId:    message.SenderId,
		RecipientId: message.RecipientId,
		Content:     message.Content,
		SentAt:      message.SentAt,
		ReadAt:      message.ReadAt,
	}
}

type sendMessageRequest struct {
	RecipientId uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
}

func (s *MessageService) Send(w http.ResponseWriter, r *http.Request) {
	var params sendMessageRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.RecipientId == uuid.Nil {
		http.Error(w, "recipient_id must be specified", http.StatusUnprocessableEntity)
		return
	}
	if params.Content == "" {
		http.Error(w, "message content must be specified", http.StatusUnprocessableEntity)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if params.RecipientId == principal.Id {
		http.Error(w, "cannot send a message to yourself", http.StatusUnprocessableEntity)
		return
	}

	recipientId := params.RecipientId
	message := schema.Message{
		Id:          uuid.New(),
		SenderId:    &principal.Id,
		RecipientId: &recipientId,
		Content:     params.Content,
		SentAt:      time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.RecipientId); err != nil {
			return err
		}

		if result := txn.Create(&message); result.Error != nil {
			slog.Error("sql error creating message", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error sending message: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToMessageInfo(&message))
}

func (s *MessageService) List(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db.Order("sent_at desc")

	box := r.URL.Query().Get("box")
	switch box {
	case "", "inbox":
		query = query.Where("recipient_id = ?", principal.Id)
	case "sent":
		query = query.Where("sender_id = ?", principal.Id)
	default:
		http.Error(w, fmt.Sprintf("invalid box '%v', must be 'inbox' or 'sent'", box), http.StatusBadRequest)
		return
	}

	var messages []schema.Message
	if result := query.Find(&messages); result.Error != nil {
		slog.Error("sql error listing messages", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing messages: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]MessageInfo, 0, len(messages))
	for i := range messages {
		infos = append(infos, convertToMessageInfo(&messages[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *MessageService) Retrieve(w http.ResponseWriter, r *http.Request) {
	messageId, err := utils.URLParamUUID(r, "message_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	principal, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var message schema.Message
	err = s.db.Transaction(func(txn *gorm.DB) error {
		found, err := schema.GetMessage(messageId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMessageNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		isSender := found.SenderId != nil && *found.SenderId == principal.Id
		isRecipient := found.RecipientId != nil && *found.RecipientId == principal.Id
		if !isSender && !isRecipient {
			return CodedError(schema.ErrMessageNotFound, http.StatusNotFound)
		}

		// The read receipt records the first time the recipient opened the
		// message and is never overwritten after that.
		if isRecipient && found.ReadAt == nil {
			now := time.Now().UTC()
			if result := txn.Model(&found).Update("read_at", now); result.Error != nil {
				slog.Error("sql error recording message read receipt", "message_id", messageId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			found.ReadAt = &now
		}

		message = found
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting message: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToMessageInfo(&message))
}
