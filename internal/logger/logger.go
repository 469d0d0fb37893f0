package logger

import (
	"os"

	"github.com/samvad-hq/tokens-api-suite/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package-level logger to be used across packages after Init.
var S *zap.SugaredLogger

// objLog backs the *Obj helpers. It skips the helper and logObj frames so
// the reported caller is the code that logged.
var objLog *zap.Logger

const objCallerSkip = 2

// Logger is the structured logging surface components accept for injection.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// Init initializes a zap SugaredLogger using settings from config.
func Init(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := ParseLevel(cfg.LogLevel)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return install(core, cfg), nil
}

func install(core zapcore.Core, cfg *config.Config) *zap.SugaredLogger {
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("app", cfg.AppName), zap.String("env", cfg.Env))
	S = logger.Sugar()
	objLog = logger.WithOptions(zap.AddCallerSkip(objCallerSkip))
	return S
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(raw string) zapcore.Level {
	switch raw {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes any buffered loggers.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

// Minimal object logging helpers -------------------------------------------------
// These log the given object as a single structured field named `key`. Every
// exported helper and Global method calls logObj directly so they all sit at
// the same stack depth.
func InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

func logObj(level zapcore.Level, msg, key string, obj interface{}) {
	if objLog == nil {
		return
	}
	if ce := objLog.Check(level, msg); ce != nil {
		ce.Write(zap.Any(key, obj))
	}
}

// Global adapts the package-level logger to the Logger interface.
type Global struct{}

func (Global) InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func (Global) DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func (Global) WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func (Global) ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

// NopLogger discards everything.
type NopLogger struct{}

func (*NopLogger) InfoObj(string, string, interface{})  {}
func (*NopLogger) DebugObj(string, string, interface{}) {}
func (*NopLogger) WarnObj(string, string, interface{})  {}
func (*NopLogger) ErrorObj(string, string, interface{}) {}
