package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled console logger for the check-in runner.
// Lines carry the operator markers used by the tool:
//   [-] debug, [*] info, [!] warn/error/fatal

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu         sync.RWMutex
	logger     *log.Logger = log.New(os.Stdout, "", 0)
	level      Level       = LevelInfo
	timestamps bool
	exit       = os.Exit
)

// ParseLevel maps a case-insensitive name to a Level. Unknown input is Info.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Init sets the global log level. Call early during startup.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// SetTimestamps toggles the RFC3339 prefix on every line.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput redirects all output and returns a func restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	logger = log.New(w, "", 0)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		logger = prev
	}
}

func marker(l Level) string {
	switch l {
	case LevelDebug:
		return "[-] "
	case LevelInfo:
		return "[*] "
	default:
		return "[!] "
	}
}

// render is called with mu held.
func render(l Level, msg string) string {
	prefix := marker(l)
	if timestamps {
		prefix = time.Now().Format(time.RFC3339) + " " + prefix
	}
	return prefix + msg
}

func emit(l Level, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	logger.Print(render(l, msg))
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(LevelError, fmt.Sprintf(format, v...)) }

// Fatalf always prints, then exits with status 1.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	logger.Print(render(LevelFatal, fmt.Sprintf(format, v...)))
	mu.RUnlock()
	exit(1)
}

func Info(v string)  { Infof("%s", v) }
func Error(v string) { Errorf("%s", v) }
