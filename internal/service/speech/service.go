package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/astrachat/astra/internal/config"
)

// AudioSubdir is the directory under the media root holding synthesized clips.
const AudioSubdir = "audio"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Service 文字转语音，将合成的 mp3 写入媒体目录
type Service struct {
	endpoint   string
	language   string
	dir        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewService 创建语音服务实例
func NewService(cfg config.SpeechConfig, mediaDir string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		endpoint:   cfg.Endpoint,
		language:   cfg.Language,
		dir:        filepath.Join(mediaDir, AudioSubdir),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Synthesize renders text to a new mp3 file and returns its base name.
func (s *Service) Synthesize(ctx context.Context, text string) (string, error) {
	chunks := SplitChunks(text, maxChunkLength)
	if len(chunks) == 0 {
		return "", fmt.Errorf("tts text is empty")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	name := uuid.NewString() + ".mp3"
	tmp, err := os.CreateTemp(s.dir, ".tts-*")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for i, chunk := range chunks {
		if err := s.fetchChunk(ctx, tmp, chunk, i, len(chunks)); err != nil {
			tmp.Close()
			return "", err
		}
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("finalize audio file: %w", err)
	}

	s.log.Info("speech synthesized", zap.String("file", name), zap.Int("chunks", len(chunks)))
	return name, nil
}

func (s *Service) fetchChunk(ctx context.Context, w io.Writer, chunk string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", s.language)
	q.Set("client", "tw-ob")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	started := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts chunk %d: %w", idx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts chunk %d: status %d", idx, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("tts chunk %d: %w", idx, err)
	}
	s.log.Debug("tts chunk", zap.Int("idx", idx), zap.Duration("elapsed", time.Since(started)))
	return nil
}

// AudioURL maps a synthesized file name onto its public static path.
func AudioURL(name string) string {
	return "/static/" + AudioSubdir + "/" + strings.TrimPrefix(name, "/")
}
