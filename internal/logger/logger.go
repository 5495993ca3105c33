package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions is a single structured field attached to a log line.
type LoggerOptions struct {
	Key  string
	Data interface{}
}

var (
	mu     sync.RWMutex
	Logger = zap.NewNop()
)

// Init replaces the package logger. Output always goes to stderr because stdout
// carries the one machine-readable result line.
func Init(level, format string) error {
	return InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination, mainly for tests.
func InitWriter(w io.Writer, level, format string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)

	mu.Lock()
	Logger = zap.New(core)
	mu.Unlock()
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = get().Sync()
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

func fields(payload []LoggerOptions) []zapcore.Field {
	zapFields := make([]zapcore.Field, 0, len(payload))
	for _, data := range payload {
		zapFields = append(zapFields, zap.Any(data.Key, data.Data))
	}
	return zapFields
}

// Debug logs verbose diagnostics.
func Debug(msg string, payload ...LoggerOptions) {
	get().Debug(msg, fields(payload)...)
}

// Info logs informational events such as vector repairs.
func Info(msg string, payload ...LoggerOptions) {
	get().Info(msg, fields(payload)...)
}

// Warning logs recoverable problems.
func Warning(msg string, payload ...LoggerOptions) {
	get().Warn(msg, fields(payload)...)
}

// Error logs failures. Pass the error itself with key "error".
func Error(msg string, payload ...LoggerOptions) {
	get().Error(msg, fields(payload)...)
}
