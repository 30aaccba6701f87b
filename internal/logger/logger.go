package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	config LogConfig
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level       string
	Format      string // "json", "text" or "custom"
	LogToFile   bool
	LogFilePath string
}

// NewLogger creates a new logger instance
func NewLogger(config LogConfig) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	switch strings.ToLower(config.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			ForceColors:     true,
			DisableQuote:    true,
		})
	default:
		log.SetFormatter(&CustomFormatter{})
	}

	if config.LogToFile && config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	return &Logger{
		Logger: log,
		config: config,
	}, nil
}

// CustomFormatter provides a clean, timestamped format for console output
type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	level := strings.ToUpper(entry.Level.String())

	var levelColor string
	switch entry.Level {
	case logrus.DebugLevel:
		levelColor = "\033[36m" // Cyan
	case logrus.InfoLevel:
		levelColor = "\033[32m" // Green
	case logrus.WarnLevel:
		levelColor = "\033[33m" // Yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = "\033[31m" // Red
	default:
		levelColor = "\033[0m"
	}

	resetColor := "\033[0m"

	msg := fmt.Sprintf("%s [%s%s%s] %s",
		timestamp,
		levelColor,
		level,
		resetColor,
		entry.Message)

	if len(entry.Data) > 0 {
		msg += " |"
		for key, value := range entry.Data {
			msg += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	msg += "\n"
	return []byte(msg), nil
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// Settlement-specific logging helpers

// LogScanStarted logs the start of a wallet scan
func (l *Logger) LogScanStarted(wallets int, checkActivity bool) {
	l.WithFields(logrus.Fields{
		"event":          "scan_started",
		"wallets":        wallets,
		"check_activity": checkActivity,
	}).Info("🔍 Scanning for token accounts")
}

// LogScanCompleted logs scan results
func (l *Logger) LogScanCompleted(empty, withBalance, inactive int) {
	l.WithFields(logrus.Fields{
		"event":        "scan_completed",
		"empty":        empty,
		"with_balance": withBalance,
		"inactive":     inactive,
	}).Info("📋 Scan completed")
}

// LogBatchSubmitted logs a submitted batch transaction
func (l *Logger) LogBatchSubmitted(kind string, batch, total, instructions int, signature string) {
	l.WithFields(logrus.Fields{
		"event":        "batch_submitted",
		"kind":         kind,
		"batch":        batch,
		"total":        total,
		"instructions": instructions,
		"signature":    signature,
	}).Info("📤 Batch transaction sent")
}

// LogSettlement logs the outcome of a settlement operation
func (l *Logger) LogSettlement(userID int64, closed, burned int, grossLamports, feeLamports, netLamports uint64) {
	l.WithFields(logrus.Fields{
		"event":          "settlement",
		"user_id":        userID,
		"closed":         closed,
		"burned":         burned,
		"gross_lamports": grossLamports,
		"fee_lamports":   feeLamports,
		"net_lamports":   netLamports,
	}).Info("✅ Settlement completed")
}

// LogFeeCollectionFailed logs a swallowed fee-collection failure
func (l *Logger) LogFeeCollectionFailed(userID int64, feeLamports uint64, reason string, err error) {
	l.WithFields(logrus.Fields{
		"event":        "fee_collection_failed",
		"user_id":      userID,
		"fee_lamports": feeLamports,
		"reason":       reason,
	}).WithError(err).Warn("⚠️ Fee collection failed, continuing with operation")
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version, network, rpcURL string) {
	l.WithFields(logrus.Fields{
		"event":   "startup",
		"version": version,
		"network": network,
		"rpc_url": rpcURL,
	}).Info("🚀 Bot starting up")
}

// LogShutdown logs application shutdown information
func (l *Logger) LogShutdown(reason string) {
	l.WithFields(logrus.Fields{
		"event":  "shutdown",
		"reason": reason,
	}).Info("🛑 Bot shutting down")
}
