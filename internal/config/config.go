package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/voxlate/internal/model/session"
	speechmodel "github.com/zhouzirui/voxlate/internal/model/speech"
)

// Config aggregates the settings of both binaries. Each binary reads only the
// sections it needs.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	AI        AIConfig
	Speech    SpeechConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	app, err := loadAppConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		App:       app,
		AI:        ai,
		Speech:    speech,
		Log:       logCfg,
		Telemetry: telemetry,
	}, nil
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// ":8000" and "127.0.0.1:8000" are taken as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AppConfig drives the recording companion (cmd/app).
type AppConfig struct {
	Addr           string
	BackendURL     string
	CaptureCommand string // empty selects the platform default
	CaptureDir     string
	DBPath         string
	Ephemeral      bool
	HealthInterval time.Duration
	UploadTimeout  time.Duration
	HealthTimeout  time.Duration
	DefaultTarget  session.TargetLanguage
}

func loadAppConfig() (AppConfig, error) {
	healthInterval, err := parseDurationEnv("HEALTH_INTERVAL", 30*time.Second)
	if err != nil {
		return AppConfig{}, err
	}

	uploadTimeout, err := parseDurationEnv("UPLOAD_TIMEOUT", 60*time.Second)
	if err != nil {
		return AppConfig{}, err
	}

	healthTimeout, err := parseDurationEnv("HEALTH_TIMEOUT", 5*time.Second)
	if err != nil {
		return AppConfig{}, err
	}

	ephemeral, err := parseBoolEnv("APP_EPHEMERAL", false)
	if err != nil {
		return AppConfig{}, err
	}

	target, err := loadDefaultTarget()
	if err != nil {
		return AppConfig{}, err
	}

	return AppConfig{
		Addr:           getEnvOrDefault("APP_ADDR", "127.0.0.1:8787"),
		BackendURL:     strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://localhost:8000"), "/"),
		CaptureCommand: getEnvOrDefault("CAPTURE_COMMAND", ""),
		CaptureDir:     getEnvOrDefault("CAPTURE_DIR", os.TempDir()),
		DBPath:         getEnvOrDefault("APP_DB_PATH", ""),
		Ephemeral:      ephemeral,
		HealthInterval: healthInterval,
		UploadTimeout:  uploadTimeout,
		HealthTimeout:  healthTimeout,
		DefaultTarget:  target,
	}, nil
}

func loadDefaultTarget() (session.TargetLanguage, error) {
	raw := getEnvOrDefault("DEFAULT_TARGET_LANG", string(session.English))
	target, err := session.ParseTargetLanguage(raw)
	if err != nil {
		return "", fmt.Errorf("invalid DEFAULT_TARGET_LANG: %w", err)
	}
	return target, nil
}

// AIConfig describes the Ark chat model behind the translator.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the model and a credential pair are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY) and ARK_MODEL")
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

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		zero := 0.0
		temperature = &zero
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	modelName := strings.TrimSpace(os.Getenv("ARK_MODEL"))
	if modelName == "" {
		// legacy variable name
		modelName = strings.TrimSpace(os.Getenv("Model"))
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       modelName,
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig holds the Volcengine ASR credentials.
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	Region         string
	BaseURL        string
	ConcurrentMode bool
	ASRModel       string
	ASRLanguage    string
	Timeout        int
	Enabled        bool
}

// Model converts the section into the service-level configuration.
func (c SpeechConfig) Model() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		Region:         c.Region,
		BaseURL:        c.BaseURL,
		ConcurrentMode: c.ConcurrentMode,
		ASRModel:       c.ASRModel,
		ASRLanguage:    c.ASRLanguage,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		AppID:          appID,
		AccessToken:    accessToken,
		Region:         getEnvOrDefault("SPEECH_REGION", "cn-beijing"),
		BaseURL:        getEnvOrDefault("SPEECH_BASE_URL", ""),
		ConcurrentMode: concurrent,
		ASRModel:       getEnvOrDefault("SPEECH_ASR_MODEL", ""),
		ASRLanguage:    getEnvOrDefault("SPEECH_ASR_LANGUAGE", ""),
		Timeout:        timeoutSeconds,
		Enabled:        appID != "" && accessToken != "",
	}, nil
}

// LogConfig selects the log level and an optional rotating file.
type LogConfig struct {
	Level zerolog.Level
	File  string
}

func loadLogConfig() (LogConfig, error) {
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{Level: level, File: getEnvOrDefault("LOG_FILE", "")}, nil
}

// TelemetryConfig enables the file-backed OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled bool
	Dir     string
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	dir := getEnvOrDefault("TELEMETRY_DIR", "")
	enabled, err := parseBoolEnv("TELEMETRY_ENABLED", dir != "")
	if err != nil {
		return TelemetryConfig{}, err
	}
	if enabled && dir == "" {
		dir = "logs"
	}
	return TelemetryConfig{Enabled: enabled, Dir: dir}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv accepts Go durations ("30s") or a bare number of seconds.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
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
