package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	TelegramBotToken string
	WebhookURL       string

	OCREngine      string
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	TesseractLangs []string

	YandexOAuthToken string
	YandexFolderID   string
	YandexModel      string
	YandexLangs      []string

	DatabaseURL  string
	ResultMaxAge time.Duration

	SessionTTL    time.Duration
	AnswerSlots   int
	NumberChoices bool
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(k string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		OCREngine:      strings.ToLower(getEnv("OCR_ENGINE", "gemini")),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		TesseractLangs: splitList(getEnv("TESSERACT_LANGS", "eng"), "+"),

		YandexOAuthToken: getEnv("YC_OAUTH_TOKEN", ""),
		YandexFolderID:   getEnv("YC_FOLDER_ID", ""),
		YandexModel:      getEnv("YANDEX_OCR_MODEL", "page"),
		YandexLangs:      splitList(getEnv("YANDEX_LANGS", "en"), ","),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		ResultMaxAge: getDuration("RESULT_MAX_AGE", 30*24*time.Hour),

		SessionTTL:    getDuration("SESSION_TTL", 12*time.Hour),
		AnswerSlots:   getInt("ANSWER_SLOTS", 10),
		NumberChoices: getBool("NUMBER_CHOICES", false),
	}
}

// Validate checks that the default engine has its credentials.
func (c *Config) Validate() error {
	var errs []error
	switch c.OCREngine {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("OCR_ENGINE=gemini requires GEMINI_API_KEY"))
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OCR_ENGINE=gpt requires OPENAI_API_KEY"))
		}
	case "yandex":
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			errs = append(errs, errors.New("OCR_ENGINE=yandex requires YC_OAUTH_TOKEN and YC_FOLDER_ID"))
		}
	case "tesseract":
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_ENGINE %q; use gemini | gpt | tesseract | yandex", c.OCREngine))
	}
	if c.AnswerSlots < 1 {
		errs = append(errs, fmt.Errorf("ANSWER_SLOTS must be >= 1, got %d", c.AnswerSlots))
	}
	return errors.Join(errs...)
}
