package logger

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// FormatTimestamp formats t at the millisecond precision used across the
// codebase, independent of whichever formatter the active logger is using.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// NowFormatted is FormatTimestamp(time.Now()).
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType tags a structured log entry's domain so downstream log shipping
// can filter on it without parsing the message text.
type LogType string

const (
	SystemLog LogType = "system"
	ScanLog   LogType = "scan"
)

// LogSystemEvent records engine-lifecycle events (startup, shutdown,
// scanner-variant fallback, config reload) that aren't tied to any one scan
// run.
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	entry := LoggerInstance.logger.WithFields(fields)
	msg := fmt.Sprintf("%s: %s - %s", component, event, message)

	switch toLogrusLevel(level) {
	case logrus.DebugLevel:
		entry.Debug(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	case logrus.ErrorLevel:
		entry.Error(msg)
	case logrus.FatalLevel:
		entry.Fatal(msg)
	default:
		entry.Info(msg)
	}
}

// LogScanStarted records the start of one Engine.Scan run.
func LogScanStarted(runID string, addressCount, portCount int, technique string) {
	if LoggerInstance == nil {
		return
	}
	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":          ScanLog,
		"run_id":        runID,
		"address_count": addressCount,
		"port_count":    portCount,
		"technique":     technique,
	}).Infof("scan started: %d address(es) x %d port(s) via %s", addressCount, portCount, technique)
}

// LogHostCompleted records one host's terminal outcome.
func LogHostCompleted(runID string, address net.IP, state string, openCount int, elapsed time.Duration) {
	if LoggerInstance == nil {
		return
	}
	fields := logrus.Fields{
		"type":       ScanLog,
		"run_id":     runID,
		"address":    address.String(),
		"state":      state,
		"open_count": openCount,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if state == "partial" {
		LoggerInstance.logger.WithFields(fields).Warnf("host %s drained incomplete, %d open", address, openCount)
		return
	}
	LoggerInstance.logger.WithFields(fields).Infof("host %s completed, %d open", address, openCount)
}

// LogScanFinished records the outcome of a full Engine.Scan run.
func LogScanFinished(runID string, hostsScanned int, totalOpen int64, elapsed time.Duration, err error) {
	if LoggerInstance == nil {
		return
	}
	fields := logrus.Fields{
		"type":          ScanLog,
		"run_id":        runID,
		"hosts_scanned": hostsScanned,
		"total_open":    totalOpen,
		"elapsed_ms":    elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		LoggerInstance.logger.WithFields(fields).Warnf("scan finished with error: %v", err)
		return
	}
	LoggerInstance.logger.WithFields(fields).Infof("scan finished: %d host(s), %d open port(s)", hostsScanned, totalOpen)
}

// LogLevel wraps logrus.Level so callers outside this package never import
// logrus just to pick a severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
