/**
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

// Package echogod - this library handles the logging during runtime.
package echogod

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// LogTimeFormat is the timestamp layout used by every log level.
const LogTimeFormat = "2006/01/02 15:04:05"

// Logger is a container for our log levels.
type Logger struct {
	// Trace log level.
	Trace *LevelLogger
	// Info log level.
	Info *LevelLogger
	// Warning log level.
	Warning *LevelLogger
	// Error log level.
	Error *LevelLogger
}

// LevelLogger writes messages at a single fixed level.
type LevelLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// CreateLogger is a factory to instantiate a Logger struct.
func CreateLogger(
	traceHandle io.Writer,
	infoHandle io.Writer,
	warningHandle io.Writer,
	errorHandle io.Writer) *Logger {

	var logger = new(Logger)

	logger.Trace = createLevelLogger(traceHandle, zerolog.DebugLevel)
	logger.Info = createLevelLogger(infoHandle, zerolog.InfoLevel)
	logger.Warning = createLevelLogger(warningHandle, zerolog.WarnLevel)
	logger.Error = createLevelLogger(errorHandle, zerolog.ErrorLevel)

	return logger
}

func createLevelLogger(handle io.Writer, level zerolog.Level) *LevelLogger {
	if handle == io.Discard {
		return &LevelLogger{logger: zerolog.Nop(), level: level}
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        handle,
		NoColor:    true,
		TimeFormat: LogTimeFormat,
	}

	return &LevelLogger{
		logger: zerolog.New(consoleWriter).With().Timestamp().Logger(),
		level:  level,
	}
}

// With returns a copy of the Logger where every level carries the field.
func (l Logger) With(key string, value interface{}) Logger {
	return Logger{
		Trace:   l.Trace.With(key, value),
		Info:    l.Info.With(key, value),
		Warning: l.Warning.With(key, value),
		Error:   l.Error.With(key, value),
	}
}

// With returns a copy of the LevelLogger carrying the field.
func (l *LevelLogger) With(key string, value interface{}) *LevelLogger {
	return &LevelLogger{
		logger: l.logger.With().Interface(key, value).Logger(),
		level:  l.level,
	}
}

// Println logs the operands separated by spaces.
func (l *LevelLogger) Println(v ...interface{}) {
	l.logger.WithLevel(l.level).Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs a formatted message.
func (l *LevelLogger) Printf(format string, v ...interface{}) {
	l.logger.WithLevel(l.level).Msgf(format, v...)
}
