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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetConsoleOutput(&buf)
	t.Cleanup(func() {
		SetConsoleOutput(os.Stdout)
		ConfigureConsole("info", "text")
	})
	return &buf
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("chatty"))
}

func TestNewLogger_RegistryAndLevels(t *testing.T) {
	buf := captureConsole(t)
	ConfigureConsole("info", "text")

	l := NewLogger("TEST_REGISTRY")
	assert.Same(t, l, NewLogger("TEST_REGISTRY"))

	l.Debug("hidden")
	l.WithField("team", "teamA").Info("visible")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible team=teamA")
	assert.Contains(t, out, "[TEST_REGISTRY]")

	assert.True(t, SetLoggerLevel("TEST_REGISTRY", "error"))
	assert.False(t, SetLoggerLevel("NO_SUCH_LOGGER", "error"))
	buf.Reset()
	l.Warn("dropped")
	assert.Empty(t, buf.String())
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "SERVICE", NameWidth: 8}
	e := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow search",
		Data:    logrus.Fields{"b": 2, "a": "x"},
	}
	b, err := f.Format(e)
	require.NoError(t, err)
	line := string(b)
	assert.True(t, strings.HasPrefix(line, "2025-01-02 03:04:05.000 WARNING "), line)
	assert.Contains(t, line, "[ SERVICE] : slow search a=x b=2\n")
	assert.NotContains(t, line, "\x1b[")
}

func TestJSONLogFormatter_LiftsRequestFields(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "HTTP"}
	e := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "request served",
		Data: logrus.Fields{
			"req_uri":      "/api/v1/members?ageGoe=35",
			"req_method":   "GET",
			"client_ip":    "10.0.0.1",
			"status_code":  200,
			"latency_time": "1.2ms",
			"request_id":   "abc",
			"error":        errors.New("boom"),
		},
	}
	b, err := f.Format(e)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "HTTP", rec["logger"])
	assert.Equal(t, "/api/v1/members?ageGoe=35", rec["path"])
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "10.0.0.1", rec["client_ip"])
	assert.EqualValues(t, 200, rec["status_code"])
	assert.Equal(t, "abc", rec["request_id"])
	assert.Equal(t, map[string]any{"error": "boom"}, rec["fields"])
}

func TestDailyLevelWriter(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "2000-01-01")
	require.NoError(t, os.MkdirAll(old, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "keep-me"), 0o755))

	w := &dailyLevelWriter{baseDir: dir, level: "info", maxAgeDays: 7}
	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.file.Close() })

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02"), "info.log"))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
	assert.NoDirExists(t, old)
	assert.DirExists(t, filepath.Join(dir, "keep-me"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("MEMBERQUERY_TEST_STR", "value")
	t.Setenv("MEMBERQUERY_TEST_BOOL", "true")
	t.Setenv("MEMBERQUERY_TEST_BAD_BOOL", "maybe")

	assert.Equal(t, "value", EnvDefaultString("MEMBERQUERY_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("MEMBERQUERY_TEST_UNSET", "def"))
	assert.True(t, EnvDefaultBool("MEMBERQUERY_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("MEMBERQUERY_TEST_BAD_BOOL", true))
	assert.False(t, EnvDefaultBool("MEMBERQUERY_TEST_UNSET", false))
}
