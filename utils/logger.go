/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type PathFormat int

const (
	PathFormatShortRelative PathFormat = iota
	PathFormatFilenameOnly
	PathFormatFullPath
)

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	settingsMu        sync.RWMutex
	consoleLevel      = logrus.InfoLevel
	fileLevel         = logrus.DebugLevel
	consoleLogFormat  = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogFormat     = EnvDefaultString("FILE_LOG_FORMAT", "text")
	fileLogEnabled    = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir        = "logs"
	fileLogMaxAgeDays = 7
	consoleOut        io.Writer = os.Stdout

	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

// ConfigureConsole sets the console level and format ("text" or "json").
func ConfigureConsole(level, format string) {
	settingsMu.Lock()
	consoleLevel = ParseLogLevel(level)
	consoleLogFormat = normalizeFormat(format)
	settingsMu.Unlock()
	applyBaseLevel()
}

// ConfigureFileLog turns daily rolling files on or off for loggers created
// afterwards. maxAgeDays < 0 keeps every day.
func ConfigureFileLog(enabled bool, dir, level, format string, maxAgeDays int) {
	settingsMu.Lock()
	fileLogEnabled = enabled
	if dir != "" {
		fileLogDir = dir
	}
	fileLevel = ParseLogLevel(level)
	fileLogFormat = normalizeFormat(format)
	fileLogMaxAgeDays = maxAgeDays
	settingsMu.Unlock()
	applyBaseLevel()
}

// SetConsoleOutput redirects console output, mainly for tests.
func SetConsoleOutput(w io.Writer) {
	settingsMu.Lock()
	consoleOut = w
	settingsMu.Unlock()
}

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns the logger registered under name, creating it on first
// use. Output goes through hooks so console and files can filter
// independently.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}

	settingsMu.RLock()
	defer settingsMu.RUnlock()

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetReportCaller(true)
	l.SetLevel(baseLevel())
	l.AddHook(&consoleHook{
		formatter: newFormatter(name, consoleLogFormat, PathFormatShortRelative, true),
	})
	if fileLogEnabled {
		if err := addDailyFileHook(l, name); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "logger %s: file output disabled: %v\n", name, err)
		}
	}
	loggerRegistry[name] = l
	return l
}

// SetLoggerLevel changes the level of one registered logger.
func SetLoggerLevel(name string, level string) bool {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(level))
	return true
}

// baseLevel is the most verbose of the console and file levels; hooks
// filter further. Callers hold settingsMu.
func baseLevel() logrus.Level {
	if fileLogEnabled && fileLevel > consoleLevel {
		return fileLevel
	}
	return consoleLevel
}

func applyBaseLevel() {
	settingsMu.RLock()
	lvl := baseLevel()
	settingsMu.RUnlock()
	loggerRegistryMu.RLock()
	for _, l := range loggerRegistry {
		l.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
}

func newFormatter(name, format string, pathFmt PathFormat, color bool) logrus.Formatter {
	if format == "json" {
		return &JSONLogFormatter{LoggerName: name, PathFmt: pathFmt}
	}
	return &Log4jColorFormatter{LoggerName: name, PathFmt: pathFmt, Color: color, NameWidth: 10}
}

type consoleHook struct {
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleHook) Fire(e *logrus.Entry) error {
	settingsMu.RLock()
	lvl, out := consoleLevel, consoleOut
	settingsMu.RUnlock()
	if e.Level > lvl {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

type fileHook struct {
	writers   map[logrus.Level]io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	settingsMu.RLock()
	lvl := fileLevel
	settingsMu.RUnlock()
	if e.Level > lvl {
		return nil
	}
	w, ok := h.writers[e.Level]
	if !ok {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// addDailyFileHook writes <dir>/<yyyy-mm-dd>/<level>.log. Callers hold settingsMu.
func addDailyFileHook(l *logrus.Logger, name string) error {
	if err := os.MkdirAll(fileLogDir, 0o755); err != nil {
		return err
	}
	mk := func(level string) io.Writer {
		return &dailyLevelWriter{baseDir: fileLogDir, level: level, maxAgeDays: fileLogMaxAgeDays}
	}
	errW := mk("error")
	l.AddHook(&fileHook{
		writers: map[logrus.Level]io.Writer{
			logrus.TraceLevel: mk("trace"),
			logrus.DebugLevel: mk("debug"),
			logrus.InfoLevel:  mk("info"),
			logrus.WarnLevel:  mk("warn"),
			logrus.ErrorLevel: errW,
			logrus.FatalLevel: errW,
			logrus.PanicLevel: errW,
		},
		formatter: newFormatter(name, fileLogFormat, PathFormatFullPath, false),
	})
	return nil
}

type dailyLevelWriter struct {
	baseDir    string
	level      string
	maxAgeDays int
	mu         sync.Mutex
	curDate    string
	file       *os.File
}

func (w *dailyLevelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	date := time.Now().Format("2006-01-02")
	if w.file == nil || w.curDate != date {
		if w.file != nil {
			_ = w.file.Close()
		}
		dir := filepath.Join(w.baseDir, date)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(dir, w.level+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file, w.curDate = f, date
		w.cleanup()
	}
	return w.file.Write(p)
}

// cleanup removes date directories older than maxAgeDays.
func (w *dailyLevelWriter) cleanup() {
	if w.maxAgeDays < 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.maxAgeDays).Format("2006-01-02")
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse("2006-01-02", e.Name()); err != nil {
			continue
		}
		if e.Name() < cutoff {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

// Log4jColorFormatter renders "ts LEVEL pid --- [name] caller : msg k=v".
type Log4jColorFormatter struct {
	LoggerName string
	PathFmt    PathFormat
	Color      bool
	NameWidth  int
}

func (f *Log4jColorFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(e.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(f.paint(fmt.Sprintf("%5s", strings.ToUpper(e.Level.String())), levelColor(e.Level)))
	b.WriteByte(' ')
	b.WriteString(f.paint(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" --- ")
	b.WriteString(f.paint(fmt.Sprintf("[%*s]", f.NameWidth, f.LoggerName), ansiCyan))
	if e.HasCaller() {
		b.WriteString(f.paint(" "+callerString(e, f.PathFmt), ansiFaint))
	}
	b.WriteString(" : ")
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *Log4jColorFormatter) paint(s, code string) string {
	if !f.Color {
		return s
	}
	return code + s + ansiReset
}

// JSONLogFormatter emits one object per line and lifts the HTTP request
// fields to the top level.
type JSONLogFormatter struct {
	LoggerName string
	PathFmt    PathFormat
}

type jsonLogRecord struct {
	Time        string                 `json:"time"`
	Level       string                 `json:"level"`
	Logger      string                 `json:"logger"`
	Caller      string                 `json:"caller,omitempty"`
	Message     string                 `json:"message"`
	ClientIP    string                 `json:"client_ip,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Path        string                 `json:"path,omitempty"`
	StatusCode  int                    `json:"status_code,omitempty"`
	LatencyTime string                 `json:"latency_time,omitempty"`
	RequestID   string                 `json:"request_id,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

func (f *JSONLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	rec := jsonLogRecord{
		Time:    e.Time.Format(timestampFormat),
		Level:   e.Level.String(),
		Logger:  f.LoggerName,
		Message: e.Message,
	}
	if e.HasCaller() {
		rec.Caller = callerString(e, f.PathFmt)
	}
	extra := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		s, isString := v.(string)
		switch {
		case k == "req_uri" && isString:
			rec.Path = s
		case k == "req_method" && isString:
			rec.Method = s
		case k == "client_ip" && isString:
			rec.ClientIP = s
		case k == "latency_time" && isString:
			rec.LatencyTime = s
		case k == "request_id" && isString:
			rec.RequestID = s
		case k == "status_code":
			if n, ok := v.(int); ok {
				rec.StatusCode = n
			} else {
				extra[k] = v
			}
		default:
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		rec.Fields = extra
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func callerString(e *logrus.Entry, pathFmt PathFormat) string {
	file := filepath.ToSlash(e.Caller.File)
	switch pathFmt {
	case PathFormatFilenameOnly:
		file = filepath.Base(file)
	case PathFormatShortRelative:
		parts := strings.Split(file, "/")
		if len(parts) >= 2 {
			file = parts[len(parts)-2] + "/" + parts[len(parts)-1]
		}
	}
	return fmt.Sprintf("%s:%d", file, e.Caller.Line)
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ansiRed
	case logrus.WarnLevel:
		return ansiYellow
	case logrus.InfoLevel:
		return ansiGreen
	case logrus.DebugLevel:
		return ansiBlue
	default:
		return ansiMagenta
	}
}
