// Package logger provides the process-wide zap logger: a colored console
// encoder on stdout teed with a JSON encoder into daily rotating files.
// Init is called once at startup; before that (and in tests) the package
// falls back to a plain console logger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the logging section of the agent configuration.
type Config struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error" default:"info"`
	Path   string `yaml:"path" mapstructure:"path" default:"./logs"`
	MaxAge int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" default:"7"`
}

var (
	mu         sync.RWMutex
	baseLogger = zap.Must(zap.NewDevelopment())
	initOnce   sync.Once
)

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init builds the real logger from config. Subsequent calls are no-ops.
func Init(cfg Config) error {
	var err error
	initOnce.Do(func() {
		err = initLogger(cfg)
	})
	return err
}

func initLogger(cfg Config) error {
	level := parseLevel(cfg.Level)

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7
	}
	writer, err := rotatelogs.New(
		filepath.Join(cfg.Path, "agent-%Y%m%d.log"),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("open rotating log: %w", err)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(writer), level),
	)

	mu.Lock()
	baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	mu.Unlock()
	return nil
}

// L returns the current logger for callers that want to attach fields once.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

func Debug(msg string, fields ...zapcore.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { L().Fatal(msg, fields...) }

// Sync flushes buffered log entries. Stdout sync errors are expected on some
// platforms and ignored by callers.
func Sync() error {
	return L().Sync()
}
