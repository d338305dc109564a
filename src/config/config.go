package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Language is the only OCR language; it is not configurable.
	Language = "eng"

	EnvPathEnvVar            = "SCREEN_OCR"
	TessdataDirEnvVar        = "TESSDATA_DIR"
	TempDirEnvVar            = "OCR_TEMP_DIR"
	FileLoggingEnvVar        = "ENABLE_FILE_LOGGING"
	OverlayOpacityEnvVar     = "OVERLAY_OPACITY"
	SingleInstancePortEnvVar = "SINGLEINSTANCE_PORT"

	DefaultTessdataDirName    = "tessdata"
	DefaultOverlayOpacity     = 0.3
	DefaultSingleInstancePort = 49600
)

type LoadOptions struct {
	TessdataDirOverride string
}

type Config struct {
	// EnvPath is the .env file that was loaded, if any.
	EnvPath            string
	TessdataDir        string
	TempDir            string
	Language           string
	EnableFileLogging  bool
	OverlayOpacity     float64
	SingleInstancePort int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_OCR env var as a path to a config file
	// Variables already set in the process environment win over the file.
	envPath := resolveEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("config: failed to load %s: %v", envPath, err)
		}
	}

	cfg := &Config{
		EnvPath:            envPath,
		TessdataDir:        resolveTessdataDir(opts),
		TempDir:            strings.TrimSpace(os.Getenv(TempDirEnvVar)),
		Language:           Language,
		EnableFileLogging:  strings.ToLower(strings.TrimSpace(os.Getenv(FileLoggingEnvVar))) == "true",
		OverlayOpacity:     resolveOpacity(os.Getenv(OverlayOpacityEnvVar)),
		SingleInstancePort: resolvePort(os.Getenv(SingleInstancePortEnvVar)),
	}
	return cfg, nil
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func resolveEnvPath() string {
	if dir := executableDir(); dir != "" {
		exeEnv := filepath.Join(dir, ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveTessdataDir(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.TessdataDirOverride); override != "" {
		return override
	}
	if dir := strings.TrimSpace(os.Getenv(TessdataDirEnvVar)); dir != "" {
		return dir
	}
	return filepath.Join(executableDir(), DefaultTessdataDirName)
}

func resolveOpacity(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < 0 || v > 1 {
		return DefaultOverlayOpacity
	}
	return v
}

func resolvePort(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1024 || n > 65535 {
		return DefaultSingleInstancePort
	}
	return n
}
