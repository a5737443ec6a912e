package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/econfetch/econfetch/internal/config"
)

// InitLogger 按全局配置创建 JSON logger，并同步到 logrus 的全局实例。
// 日志文件不可用时回落到 stdout，只记录告警而不返回错误。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	out, fallbackErr := openOutput(cfg)
	if fallbackErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", fallbackErr)
	}

	logger := newLogger(level, out)
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(level)

	if fallbackErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(fallbackErr.Error())
	}
	return logger, nil
}

// NewDiscardLogger 返回丢弃所有输出的 logger，供测试与未注入 logger 的调用方使用。
func NewDiscardLogger() *logrus.Logger {
	return newLogger(logrus.InfoLevel, io.Discard)
}

// Component 为子系统附加固定的 component 字段，logger 为 nil 时使用丢弃型 logger。
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return logger.WithField("component", name)
}

func newLogger(level logrus.Level, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return logger
}

// openOutput 在配置了 LogFilePath 时返回滚动文件，否则返回 stdout。
func openOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
