package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// LogsBaseDir is where every log file of the service is written.
func LogsBaseDir() string {
	return Config("LOG_DIR", filepath.Join("..", "logs"))
}

func SetupLogfile() {
	logDir := LogsBaseDir()
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		fmt.Printf("Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	// One file per ISO week
	currentTime := time.Now()
	year, month, _ := currentTime.Date()
	_, week := currentTime.ISOWeek()

	logFilename := filepath.Join(logDir,
		fmt.Sprintf("cardhub-%d-%02d-week%d.log", year, month, week))

	logFile, err := os.OpenFile(logFilename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		os.Exit(1)
	}

	mw := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(mw)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Println("Logging initialized")
}

// LogWithLevel writes to the process log with a level tag.
func LogWithLevel(level, format string, args ...interface{}) {
	log.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}
