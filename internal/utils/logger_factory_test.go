package utils_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/mdk/internal/utils"
)

const testLogMessageConstant = "Fetching github in stable_23"

// captureStandardError builds a logger while stderr is redirected and returns what it printed.
func captureStandardError(testInstance *testing.T, build func() (*zap.Logger, error), emit func(*zap.Logger)) (string, error) {
	testInstance.Helper()

	pipeReader, pipeWriter, pipeError := os.Pipe()
	require.NoError(testInstance, pipeError)
	originalStandardError := os.Stderr
	os.Stderr = pipeWriter
	logger, buildError := build()
	os.Stderr = originalStandardError

	if buildError == nil {
		emit(logger)
		requireSynced(testInstance, logger)
	}
	require.NoError(testInstance, pipeWriter.Close())
	captured, readError := io.ReadAll(pipeReader)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, pipeReader.Close())
	return string(bytes.TrimSpace(captured)), buildError
}

func requireSynced(testInstance *testing.T, logger *zap.Logger) {
	testInstance.Helper()
	if syncError := logger.Sync(); syncError != nil {
		require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) || errors.Is(syncError, syscall.ENOTTY))
	}
}

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name           string
		level          utils.LogLevel
		format         utils.LogFormat
		expectError    bool
		expectJSON     bool
		expectDebugOut bool
	}{
		{name: "structured_debug", level: utils.LogLevelDebug, format: utils.LogFormatStructured, expectJSON: true, expectDebugOut: true},
		{name: "structured_info", level: utils.LogLevelInfo, format: utils.LogFormatStructured, expectJSON: true},
		{name: "console_warn_upper_case", level: "WARN", format: "Console"},
		{name: "console_info", level: utils.LogLevelInfo, format: utils.LogFormatConsole},
		{name: "unsupported_level", level: "verbose", format: utils.LogFormatConsole, expectError: true},
		{name: "unsupported_format", level: utils.LogLevelInfo, format: "xml", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			output, buildError := captureStandardError(testInstance,
				func() (*zap.Logger, error) {
					return utils.NewLoggerFactory().CreateLogger(testCase.level, testCase.format)
				},
				func(logger *zap.Logger) {
					logger.Debug("debug details")
					logger.Warn(testLogMessageConstant, zap.String("instance", "stable_23"))
				},
			)
			if testCase.expectError {
				require.Error(testInstance, buildError)
				return
			}

			require.NoError(testInstance, buildError)
			require.Contains(testInstance, output, testLogMessageConstant)
			require.Equal(testInstance, testCase.expectDebugOut, bytes.Contains([]byte(output), []byte("debug details")))
			lines := bytes.Split([]byte(output), []byte("\n"))
			require.Equal(testInstance, testCase.expectJSON, json.Valid(lines[len(lines)-1]))
		})
	}
}

func TestLoggerFactoryWritesRotatingLogFile(testInstance *testing.T) {
	logFilePath := filepath.Join(testInstance.TempDir(), "logs", "mdk.log")

	_, buildError := captureStandardError(testInstance,
		func() (*zap.Logger, error) {
			return utils.NewLoggerFactory().CreateLoggerWithFile(utils.LogLevelInfo, utils.LogFormatConsole, utils.LogFileConfiguration{Path: logFilePath, MaxSizeMegabytes: 1})
		},
		func(logger *zap.Logger) {
			logger.Debug("filtered")
			logger.Info(testLogMessageConstant)
		},
	)
	require.NoError(testInstance, buildError)

	fileContent, readError := os.ReadFile(logFilePath)
	require.NoError(testInstance, readError)
	trimmedContent := bytes.TrimSpace(fileContent)
	require.True(testInstance, json.Valid(trimmedContent))
	require.Contains(testInstance, string(trimmedContent), testLogMessageConstant)
	require.NotContains(testInstance, string(trimmedContent), "filtered")
}

func TestLogFileConfigurationEnabled(testInstance *testing.T) {
	require.False(testInstance, utils.LogFileConfiguration{}.Enabled())
	require.False(testInstance, utils.LogFileConfiguration{Path: "  "}.Enabled())
	require.True(testInstance, utils.LogFileConfiguration{Path: "/tmp/mdk.log"}.Enabled())
}
