package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEntry is one JSON line in an issuer log file.
type LogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	Issuer    string                 `json:"issuer"`
	Code      string                 `json:"code,omitempty"`
	BatchID   string                 `json:"batch_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  float64                `json:"duration_ms,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// IssuerLogger writes entries for one issuer from its own goroutine.
type IssuerLogger struct {
	issuer   string
	logger   *log.Logger
	logFile  *os.File
	logChan  chan LogEntry
	stopChan chan bool
	wg       sync.WaitGroup
}

type LoggerManager struct {
	loggers map[string]*IssuerLogger
	mu      sync.RWMutex
}

var (
	LogManager *LoggerManager
)

const (
	ISSUER_MERCURY = "mercury"
	ISSUER_HOLY    = "holy"
	ISSUER_LCARD   = "lcard"
	ISSUER_VOCARD  = "vocard"
	LOG_BATCH      = "batch"
)

// InitIssuerLoggers opens one log file per issuer plus the batch log.
func InitIssuerLoggers() error {
	LogManager = &LoggerManager{
		loggers: make(map[string]*IssuerLogger),
	}

	names := []string{ISSUER_MERCURY, ISSUER_HOLY, ISSUER_LCARD, ISSUER_VOCARD, LOG_BATCH}

	for _, name := range names {
		if err := LogManager.CreateLogger(name); err != nil {
			return fmt.Errorf("failed to create logger for %s: %w", name, err)
		}
	}

	return nil
}

func (lm *LoggerManager) CreateLogger(issuer string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	logDir := filepath.Join(LogsBaseDir(), "issuers")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	currentTime := time.Now()
	year, month, _ := currentTime.Date()
	_, week := currentTime.ISOWeek()

	logFileName := fmt.Sprintf("cardhub-%d-%02d-week%d-%s.log", year, month, week, issuer)
	logFilePath := filepath.Join(logDir, logFileName)

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	issuerLogger := &IssuerLogger{
		issuer:   issuer,
		logger:   log.New(logFile, "", 0),
		logFile:  logFile,
		logChan:  make(chan LogEntry, 1000),
		stopChan: make(chan bool),
	}

	issuerLogger.wg.Add(1)
	go issuerLogger.worker()

	lm.loggers[issuer] = issuerLogger
	return nil
}

func (il *IssuerLogger) worker() {
	defer il.wg.Done()

	for {
		select {
		case entry := <-il.logChan:
			il.writeLog(entry)
		case <-il.stopChan:
			// drain before exit
			for len(il.logChan) > 0 {
				entry := <-il.logChan
				il.writeLog(entry)
			}
			return
		}
	}
}

func (il *IssuerLogger) writeLog(entry LogEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error marshaling log entry for %s: %v", il.issuer, err)
		return
	}

	il.logger.Println(string(jsonData))
	il.logFile.Sync()
}

// Log queues an entry without blocking. Calls before InitIssuerLoggers are dropped.
func (lm *LoggerManager) Log(issuer, level, message string, entry LogEntry) {
	if lm == nil {
		return
	}
	if level != "ERROR" && level != "WARN" && level != "INFO" {
		return
	}

	lm.mu.RLock()
	logger, exists := lm.loggers[issuer]
	lm.mu.RUnlock()

	if !exists {
		log.Printf("WARN: issuer logger for %s not found", issuer)
		return
	}
	entry.Level = level
	entry.Message = message
	entry.Issuer = issuer
	entry.Timestamp = time.Now().Format(time.RFC3339)

	select {
	case logger.logChan <- entry:
	default:
		LogWithLevel("ERROR", "Issuer logger channel full for %s", issuer)
	}
}

func LogError(issuer, message string, entry LogEntry) {
	LogManager.Log(issuer, "ERROR", message, entry)
}

func LogWarn(issuer, message string, entry LogEntry) {
	LogManager.Log(issuer, "WARN", message, entry)
}

func LogInfo(issuer, message string, entry LogEntry) {
	LogManager.Log(issuer, "INFO", message, entry)
}

func LogIssuerAPI(issuer, endpoint, method string, duration time.Duration, statusCode int, data map[string]interface{}) {
	entry := LogEntry{
		Duration: float64(duration.Nanoseconds()) / 1e6,
		Data: map[string]interface{}{
			"endpoint":    endpoint,
			"method":      method,
			"status_code": statusCode,
		},
	}

	for k, v := range data {
		entry.Data[k] = v
	}

	switch {
	case statusCode == 0 || statusCode >= 400:
		LogManager.Log(issuer, "ERROR", "", entry)
	case duration > 5*time.Second:
		LogManager.Log(issuer, "WARN", "slow issuer response", entry)
	default:
		LogManager.Log(issuer, "INFO", "", entry)
	}
}

// ShutdownIssuerLoggers flushes and closes every issuer log file.
func ShutdownIssuerLoggers() {
	if LogManager == nil {
		return
	}

	LogManager.mu.Lock()
	defer LogManager.mu.Unlock()

	for _, logger := range LogManager.loggers {
		close(logger.stopChan)
		logger.wg.Wait()
		logger.logFile.Close()
	}
	LogManager.loggers = map[string]*IssuerLogger{}

	LogWithLevel("INFO", "Issuer loggers shutdown completed")
}
