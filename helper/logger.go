package helper

import (
	"cardhub/config"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

// LogLevel orders console messages by severity.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const resetColor = "\033[0m"

// ParseLogLevel maps a LOG_LEVEL value to a level; unknown values mean INFO.
func ParseLogLevel(name string) LogLevel {
	for level, levelName := range levelNames {
		if strings.EqualFold(strings.TrimSpace(name), levelName) {
			return level
		}
	}
	return INFO
}

// Logger writes colored, leveled lines to the process log.
type Logger struct {
	prefix string
	min    LogLevel
}

func NewLogger(prefix string, min LogLevel) *Logger {
	return &Logger{prefix: prefix, min: min}
}

func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.min
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	color := levelColors[level]
	log.Printf("%s[%s] %s%s %s[%s]%s %s",
		color, time.Now().Format("2006-01-02 15:04:05"), levelNames[level], resetColor,
		color, l.prefix, resetColor, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}

// Table prints rows under a titled section, each column as wide as its
// widest cell.
func (l *Logger) Table(title string, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		b.WriteString("|")
		for i, width := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + strings.Repeat(" ", width-utf8.RuneCountInString(cell)) + " |")
		}
		return b.String()
	}

	separator := make([]string, len(widths))
	for i, width := range widths {
		separator[i] = strings.Repeat("-", width)
	}

	log.Printf("=== %s ===", title)
	log.Println(line(headers))
	log.Println(line(separator))
	for _, row := range rows {
		log.Println(line(row))
	}
	log.Println("=== END ===")
}

var AppLogger = NewLogger("CARDHUB", ParseLogLevel(config.Config("LOG_LEVEL", "INFO")))

func Debug(format string, args ...interface{}) {
	AppLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	AppLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	AppLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	AppLogger.Error(format, args...)
}

func Table(title string, headers []string, rows [][]string) {
	AppLogger.Table(title, headers, rows)
}
