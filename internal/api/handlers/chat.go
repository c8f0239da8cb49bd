package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"jamesfarrell.me/youtube-chat/internal/chat"
	"jamesfarrell.me/youtube-chat/internal/llm"
	"jamesfarrell.me/youtube-chat/internal/logging"
	"jamesfarrell.me/youtube-chat/internal/storage/models"
)

type ChatService interface {
	Handle(ctx context.Context, question string) (*models.ChatResponse, error)
	History(ctx context.Context) ([]models.ChatMessage, error)
}

type ChatHandler struct {
	chat ChatService
	log  *log.Helper
}

func NewChatHandler(svc ChatService, logger log.Logger) *ChatHandler {
	return &ChatHandler{chat: svc, log: logging.Helper(logger, "api")}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	resp, err := h.chat.Handle(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, chat.ErrServiceUnavailable) {
			WriteError(w, http.StatusServiceUnavailable, "chat service unavailable")
			return
		}
		h.log.Errorw("msg", "chat failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	h.log.Infow("msg", "question answered", "question", req.Question, "answer", llm.Truncate(resp.Answer, 50))
	WriteJSON(w, http.StatusOK, "ok", resp)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.History(r.Context())
	if err != nil {
		h.log.Errorw("msg", "load chat history failed", "err", err)
		WriteError(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	WriteJSON(w, http.StatusOK, "ok", messages)
}
