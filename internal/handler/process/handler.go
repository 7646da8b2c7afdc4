package process

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/model/chat"
	"github.com/astrachat/astra/internal/model/responder"
	"github.com/astrachat/astra/internal/service/speech"
	"github.com/astrachat/astra/pkg/utils"
)

const (
	msgPromptEmpty   = "Prompt is empty."
	msgInvalidMode   = "Invalid mode selected."
	msgInternalError = "Internal server error"
	msgVideoFailed   = "Video generation failed."
)

// Replier produces reply text and never fails.
type Replier interface {
	Reply(ctx context.Context, prompt string) string
}

// Synthesizer writes speech for text and returns the file name.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// VideoGenerator returns a playable video URL for text.
type VideoGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Handler 处理 /process 请求
type Handler struct {
	replier Replier
	speech  Synthesizer
	video   VideoGenerator
	log     *zap.Logger
}

// New 创建处理器
func New(replier Replier, speech Synthesizer, video VideoGenerator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{replier: replier, speech: speech, video: video, log: log}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/process", h.handleProcess)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req responder.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("error in /process: undecodable body", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		if responder.PromptMissing(err) {
			utils.RespondError(w, http.StatusBadRequest, msgPromptEmpty)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, msgInvalidMode)
		return
	}

	ctx := r.Context()
	text := h.replier.Reply(ctx, req.Prompt)

	switch req.Mode {
	case chat.ModeText:
		utils.RespondJSON(w, http.StatusOK, responder.Reply(text))
	case chat.ModeAudio:
		name, err := h.speech.Synthesize(ctx, text)
		if err != nil {
			h.log.Error("error in /process: speech synthesis", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, msgInternalError)
			return
		}
		utils.RespondJSON(w, http.StatusOK, responder.Reply(text).WithAudio(speech.AudioURL(name)))
	case chat.ModeVideo:
		url, err := h.video.Generate(ctx, text)
		if err != nil {
			h.log.Warn("video generation failed", zap.Error(err))
			utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
				"response":  text,
				"video_url": nil,
				"error":     msgVideoFailed,
			})
			return
		}
		utils.RespondJSON(w, http.StatusOK, responder.Reply(text).WithVideo(url))
	}
}
