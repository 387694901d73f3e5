package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/service"
	"github.com/vedran77/nestmate/internal/transport/http/middleware"
	"github.com/vedran77/nestmate/pkg/validator"
)

type ConversationHandler struct {
	chat *service.ChatService
	log  *slog.Logger
}

func NewConversationHandler(chat *service.ChatService, log *slog.Logger) *ConversationHandler {
	return &ConversationHandler{chat: chat, log: log}
}

// Register mounts the conversation routes behind auth.
func (h *ConversationHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(h.Start)))
	mux.Handle("GET /api/v1/conversations/unread", auth(http.HandlerFunc(h.ListUnread)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(h.ListMessages)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(h.SendMessage)))
	mux.Handle("POST /api/v1/conversations/{id}/read", auth(http.HandlerFunc(h.MarkRead)))
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		h.internal(w, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.chat.ListUnread(r.Context(), userID)
	if err != nil {
		h.internal(w, "list unread conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if errs := validator.ValidateStartConversation(input.UserID); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	conv, err := h.chat.StartConversation(r.Context(), userID, input.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotMessageSelf):
			writeError(w, http.StatusBadRequest, "CANNOT_MESSAGE_SELF", "Cannot start a conversation with yourself")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			h.internal(w, "start conversation", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &id
	}

	// 0 means the whole history
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = l
	}

	page, err := h.chat.ListMessages(r.Context(), userID, convID, before, limit)
	if err != nil {
		h.conversationError(w, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), userID, convID, input.Content)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeValidationErrors(w, verr.Fields)
			return
		}
		h.conversationError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}

	n, err := h.chat.MarkRead(r.Context(), userID, convID)
	if err != nil {
		h.conversationError(w, "mark read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ConversationHandler) conversationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	default:
		h.internal(w, op, err)
	}
}

func (h *ConversationHandler) internal(w http.ResponseWriter, op string, err error) {
	h.log.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}
