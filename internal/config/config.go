package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/hashicorp/go-multierror"
)

// Config 聚合客户端与应答服务的全部配置项。
type Config struct {
	Server  ServerConfig
	Client  ClientConfig
	Storage StorageConfig
	Log     LogConfig
	Media   MediaConfig
	AI      AIConfig
	Speech  SpeechConfig
	Video   VideoConfig
}

// Load 从环境变量加载配置并校验。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Server: server}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := loadAIOptionals(&cfg.AI); err != nil {
		return nil, err
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 汇总所有配置错误，而不是遇到第一个就返回。
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Storage.Backend {
	case "file", "redis", "memory":
	default:
		result = multierror.Append(result, fmt.Errorf("ASTRA_STORAGE must be file, redis or memory, got %q", c.Storage.Backend))
	}
	if c.Storage.Backend == "file" && c.Storage.Path == "" {
		result = multierror.Append(result, fmt.Errorf("ASTRA_STORAGE_PATH is required for the file backend"))
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		result = multierror.Append(result, fmt.Errorf("ASTRA_REDIS_ADDR is required for the redis backend"))
	}
	if c.Storage.Key == "" {
		result = multierror.Append(result, fmt.Errorf("ASTRA_STORAGE_KEY must not be empty"))
	}

	if u, err := url.Parse(c.Client.ResponderURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("invalid ASTRA_RESPONDER_URL %q", c.Client.ResponderURL))
	}
	if c.Client.ResponderTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("ASTRA_RESPONDER_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.Client.TimeLayout) == "" {
		result = multierror.Append(result, fmt.Errorf("ASTRA_TIME_LAYOUT must not be empty"))
	}
	if strings.TrimSpace(c.Client.SessionMetaLayout) == "" {
		result = multierror.Append(result, fmt.Errorf("ASTRA_SESSION_META_LAYOUT must not be empty"))
	}

	if c.Video.PollAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("DID_POLL_ATTEMPTS must be at least 1"))
	}

	return result.ErrorOrNil()
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":5000" 或 "127.0.0.1:5000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ClientConfig 描述终端客户端配置。
type ClientConfig struct {
	ResponderURL      string        `env:"ASTRA_RESPONDER_URL" envDefault:"http://localhost:5000"`
	ResponderTimeout  time.Duration `env:"ASTRA_RESPONDER_TIMEOUT" envDefault:"180s"`
	TimeLayout        string        `env:"ASTRA_TIME_LAYOUT" envDefault:"15:04"`
	SessionMetaLayout string        `env:"ASTRA_SESSION_META_LAYOUT" envDefault:"Jan 2, 15:04"`
	WebAddr           string        `env:"ASTRA_WEB_ADDR"`
	InitialMode       string        `env:"ASTRA_MODE" envDefault:"text"`
}

// StorageConfig 描述会话持久化后端。
type StorageConfig struct {
	Backend       string `env:"ASTRA_STORAGE" envDefault:"file"`
	Path          string `env:"ASTRA_STORAGE_PATH" envDefault:"~/.astra"`
	Key           string `env:"ASTRA_STORAGE_KEY" envDefault:"astraChats"`
	RedisAddr     string `env:"ASTRA_REDIS_ADDR"`
	RedisPassword string `env:"ASTRA_REDIS_PASSWORD"`
	RedisDB       int    `env:"ASTRA_REDIS_DB" envDefault:"0"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	File  string `env:"ASTRA_LOG_FILE" envDefault:"~/.astra/astra.log"`
	Level string `env:"ASTRA_LOG_LEVEL" envDefault:"info"`
}

// MediaConfig 描述应答服务生成的媒体文件目录。
type MediaConfig struct {
	Dir string `env:"ASTRA_MEDIA_DIR" envDefault:"static"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string        `env:"ARK_API_KEY"`
	AccessKey   string        `env:"ARK_ACCESS_KEY"`
	SecretKey   string        `env:"ARK_SECRET_KEY"`
	Model       string        `env:"Model"`
	BaseURL     string        `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string        `env:"ARK_REGION" envDefault:"cn-beijing"`
	OllamaURL   string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel string        `env:"OLLAMA_MODEL" envDefault:"llama3"`
	Timeout     time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIOptionals(cfg *AIConfig) error {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return err
	}

	cfg.Temperature = temperature
	cfg.TopP = topP
	cfg.MaxTokens = maxTokens
	return nil
}

// SpeechConfig 描述语音合成配置。
type SpeechConfig struct {
	Endpoint string        `env:"TTS_ENDPOINT" envDefault:"https://translate.google.com/translate_tts"`
	Language string        `env:"TTS_LANGUAGE" envDefault:"en"`
	Timeout  time.Duration `env:"TTS_TIMEOUT" envDefault:"30s"`
}

// VideoConfig 描述 D-ID 数字人视频配置。
type VideoConfig struct {
	APIKey        string        `env:"DID_API_KEY"`
	BaseURL       string        `env:"DID_BASE_URL" envDefault:"https://api.d-id.com"`
	AvatarID      string        `env:"DID_AVATAR_ID" envDefault:"amy"`
	VoiceProvider string        `env:"DID_VOICE_PROVIDER" envDefault:"microsoft"`
	VoiceID       string        `env:"DID_VOICE_ID" envDefault:"en-US-JennyMultilingualNeural"`
	PollAttempts  int           `env:"DID_POLL_ATTEMPTS" envDefault:"30"`
	PollInterval  time.Duration `env:"DID_POLL_INTERVAL" envDefault:"2s"`
	Timeout       time.Duration `env:"DID_TIMEOUT" envDefault:"30s"`
}

// Enabled 表示是否配置了可用的 D-ID 凭证。
func (c VideoConfig) Enabled() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != "YOUR_DID_API_KEY" && key != "REPLACE_ME_WITH_BASE64_BASIC_KEY"
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
