package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/config"
)

var (
	// ErrNotConfigured is returned when no D-ID key is set.
	ErrNotConfigured = errors.New("d-id api key not configured")
	// ErrTalkFailed is returned when D-ID reports the talk as failed.
	ErrTalkFailed = errors.New("d-id talk failed")
	// ErrNotReady is returned when polling ran out before a result appeared.
	ErrNotReady = errors.New("d-id talk not ready")
)

// Service creates talking-avatar clips through the D-ID talks API.
type Service struct {
	cfg        config.VideoConfig
	httpClient *http.Client
	log        *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewService 创建 D-ID 视频服务
func NewService(cfg config.VideoConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		sleep:      sleepContext,
	}
}

type talkScript struct {
	Type     string        `json:"type"`
	Input    string        `json:"input"`
	Provider voiceProvider `json:"provider"`
	SSML     bool          `json:"ssml"`
}

type voiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

type createTalkRequest struct {
	Script   talkScript `json:"script"`
	AvatarID string     `json:"avatar_id"`
}

type talkStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
}

// Generate renders text as an avatar video and returns the hosted URL.
func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	if !s.cfg.Enabled() {
		return "", ErrNotConfigured
	}

	payload := createTalkRequest{
		Script: talkScript{
			Type:     "text",
			Input:    text,
			Provider: voiceProvider{Type: s.cfg.VoiceProvider, VoiceID: s.cfg.VoiceID},
		},
		AvatarID: s.cfg.AvatarID,
	}

	var created talkStatus
	if err := s.do(ctx, http.MethodPost, "/talks", payload, &created); err != nil {
		return "", fmt.Errorf("create talk: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create talk: %w: missing id", ErrTalkFailed)
	}
	s.log.Info("d-id talk created", zap.String("talk", created.ID))

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		var status talkStatus
		if err := s.do(ctx, http.MethodGet, "/talks/"+created.ID, nil, &status); err != nil {
			return "", fmt.Errorf("poll talk: %w", err)
		}
		if status.ResultURL != "" {
			s.log.Info("d-id talk ready", zap.String("talk", created.ID), zap.Int("attempts", attempt+1))
			return status.ResultURL, nil
		}
		if status.Status == "error" || status.Status == "failed" {
			return "", fmt.Errorf("%w: status=%s", ErrTalkFailed, status.Status)
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrNotReady, s.cfg.PollAttempts)
}

func (s *Service) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+strings.TrimSpace(s.cfg.APIKey))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
