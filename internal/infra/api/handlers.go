package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"conversation-store/internal/domain"
	"conversation-store/internal/domain/model"
	"conversation-store/internal/infra/logging"
)

type messageView struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type conversationView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Timestamp int64         `json:"timestamp"`
	Messages  []messageView `json:"messages"`
}

type listResponse struct {
	Items     []conversationView `json:"items"`
	CurrentID string             `json:"current_id,omitempty"`
}

type appendRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	ConversationID string      `json:"conversation_id"`
	Created        bool        `json:"created"`
	Message        messageView `json:"message"`
}

func toMessageView(m model.Message) messageView {
	return messageView{ID: m.ID, Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp.UnixMilli()}
}

func toConversationView(c *model.Conversation) conversationView {
	msgs := make([]messageView, 0, len(c.Messages))
	for _, m := range c.Messages {
		msgs = append(msgs, toMessageView(m))
	}
	return conversationView{ID: c.ID, Title: c.Title, Timestamp: c.Timestamp.UnixMilli(), Messages: msgs}
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	list := s.conv.List(r.Context())
	items := make([]conversationView, 0, len(list))
	for _, c := range list {
		items = append(items, toConversationView(c))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, CurrentID: s.conv.CurrentID()})
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	c := s.conv.Create(r.Context())
	writeJSON(w, http.StatusCreated, toConversationView(c))
}

func (s *Server) currentConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conv.Current(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toConversationView(c))
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conv.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, toConversationView(c))
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if !s.conv.Delete(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectConversation(w http.ResponseWriter, r *http.Request) {
	if !s.conv.Select(r.Context(), chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	msg, ok := s.conv.Append(r.Context(), id, model.MessageInput{Role: role, Content: req.Content})
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toMessageView(msg))
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.chat.SendMessage(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "text must not be empty")
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("send message failed")
		writeError(w, http.StatusInternalServerError, "send failed")
		return
	}
	writeJSON(w, http.StatusAccepted, chatResponse{
		ConversationID: res.ConversationID,
		Created:        res.Created,
		Message:        toMessageView(res.Message),
	})
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}

	name := hdr.Filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if err := s.chat.UploadFile(r.Context(), name, data); err != nil {
		if errors.Is(err, domain.ErrUploadFailed) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded", "file": name})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
