package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ocrweb/pkg/backends"
	"ocrweb/pkg/env"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port          string
	MaxUploadMB   int64
	ResultDir     string
	DBDSN         string
	DBAutoMigrate bool
	JWTSecret     string
	LogLevel      string

	TesseractLangs  []string
	TessdataPrefix  string
	TesseractPSM    int
	TesseractWarmup bool

	OCRSpaceKey      string
	OCRSpaceEndpoint string
	OCRSpaceLanguage string
	OCRSpaceEngine   string

	AzureEndpoint string
	AzureKey      string
	AzureLanguage string

	// Pipeline is shared with the command-line tools.
	Pipeline backends.Pipeline
}

// LoadConfig reads ./.env when present; variables already set in the
// environment win over the file.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("ignoring unreadable .env")
	}
	return Config{
		Port:          env.String("PORT", "5000"),
		MaxUploadMB:   int64(env.Int("MAX_UPLOAD_MB", 16)),
		ResultDir:     env.String("RESULT_DIR", "results"),
		DBDSN:         os.Getenv("DB_DSN"),
		DBAutoMigrate: env.Bool("DB_AUTO_MIGRATE", true),
		JWTSecret:     os.Getenv("API_JWT_SECRET"),
		LogLevel:      env.String("LOG_LEVEL", "info"),

		TesseractLangs:  env.List("TESSERACT_LANGS", "chi_sim+eng", "+"),
		TessdataPrefix:  os.Getenv("TESSDATA_PREFIX"),
		TesseractPSM:    env.Int("TESSERACT_PSM", 0),
		TesseractWarmup: env.Bool("TESSERACT_WARMUP", false),

		OCRSpaceKey:      os.Getenv("OCRSPACE_API_KEY"),
		OCRSpaceEndpoint: os.Getenv("OCRSPACE_ENDPOINT"),
		OCRSpaceLanguage: os.Getenv("OCRSPACE_LANGUAGE"),
		OCRSpaceEngine:   os.Getenv("OCRSPACE_ENGINE"),

		AzureEndpoint: os.Getenv("AZURE_CV_ENDPOINT"),
		AzureKey:      os.Getenv("AZURE_CV_KEY"),
		AzureLanguage: os.Getenv("AZURE_CV_LANGUAGE"),

		Pipeline: backends.LoadPipeline(),
	}
}
