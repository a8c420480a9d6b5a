// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{"with underlying error", &UserError{Message: "cannot write output", Err: fmt.Errorf("disk full")}, "cannot write output: disk full"},
		{"without underlying error", &UserError{Message: "invalid flag"}, "invalid flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUserError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("boom")
	wrapped := &UserError{Message: "m", Err: underlying}
	assert.Equal(t, underlying, wrapped.Unwrap())

	bare := &UserError{Message: "m"}
	assert.Nil(t, bare.Unwrap())
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitGeneral)
	assert.Equal(t, 2, ExitArgs)
	assert.Equal(t, 3, ExitAccess)
	assert.Equal(t, 4, ExitConfig)
}

func TestConstructors(t *testing.T) {
	underlying := fmt.Errorf("underlying")

	tests := []struct {
		name string
		err  *UserError
		code int
	}{
		{"args", NewArgsError("m", "c", "f"), ExitArgs},
		{"access", NewAccessError("m", "c", "f", underlying), ExitAccess},
		{"config", NewConfigError("m", "c", "f", underlying), ExitConfig},
		{"general", NewGeneralError("m", "c", "f", underlying), ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, "m", tt.err.Message)
			require.Equal(t, "c", tt.err.Cause)
			require.Equal(t, "f", tt.err.Fix)
			require.Equal(t, tt.code, tt.err.ExitCode)
		})
	}
}

func TestErrorChain(t *testing.T) {
	sentinel := fmt.Errorf("sentinel")
	wrapped := fmt.Errorf("wrapped: %w", sentinel)
	userErr := NewGeneralError("writer failed", "cause", "fix", wrapped)

	assert.True(t, errors.Is(userErr, sentinel))

	var target *UserError
	require.True(t, errors.As(userErr, &target))
	assert.Equal(t, ExitGeneral, target.ExitCode)
}

func TestUserError_Format(t *testing.T) {
	err := &UserError{
		Message:  "cannot write findings file",
		Cause:    "output directory is not writable",
		Fix:      "check permissions on --output-dir",
		ExitCode: ExitGeneral,
	}
	out := err.Format(true)
	assert.Contains(t, out, "Error: cannot write findings file")
	assert.Contains(t, out, "Cause: output directory is not writable")
	assert.Contains(t, out, "Fix:   check permissions on --output-dir")
}

func TestUserError_Format_NoColor(t *testing.T) {
	oldNoColor := os.Getenv("NO_COLOR")
	defer func() {
		if oldNoColor != "" {
			os.Setenv("NO_COLOR", oldNoColor)
		} else {
			os.Unsetenv("NO_COLOR")
		}
	}()
	os.Setenv("NO_COLOR", "1")

	err := &UserError{Message: "m", Cause: "c", Fix: "f", ExitCode: ExitConfig}
	output := err.Format(false)
	assert.NotContains(t, output, "\x1b[")
}

func TestUserError_ToJSON(t *testing.T) {
	err := &UserError{Message: "bad pattern file", Cause: "malformed JSON", Fix: "validate the file", ExitCode: ExitConfig}
	got := err.ToJSON()
	assert.Equal(t, "bad pattern file", got.Error)
	assert.Equal(t, "malformed JSON", got.Cause)
	assert.Equal(t, "validate the file", got.Fix)
	assert.Equal(t, ExitConfig, got.ExitCode)
}

func TestFatalError_NilDoesNothing(t *testing.T) {
	FatalError(nil, false)
}

func TestErrorKind_String(t *testing.T) {
	tests := map[ErrorKind]string{
		KindPathTraversal:      "PathTraversal",
		KindPermissionDenied:   "PermissionDenied",
		KindFileTooLarge:       "FileTooLarge",
		KindUnsupportedFormat:  "UnsupportedFormat",
		KindExtractionError:    "ExtractionError",
		KindEngineError:        "EngineError",
		KindEngineUnavailable:  "EngineUnavailable",
		KindWriterError:        "WriterError",
		KindConfigurationError: "ConfigurationError",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}

func TestErrorKind_Fatal(t *testing.T) {
	assert.True(t, KindWriterError.Fatal())
	assert.True(t, KindConfigurationError.Fatal())
	assert.False(t, KindPathTraversal.Fatal())
	assert.False(t, KindEngineError.Fatal())
}

func TestScanError_Error(t *testing.T) {
	e := &ScanError{Kind: KindFileTooLarge, Path: "/a/b.pdf", Err: fmt.Errorf("12MB > 10MB")}
	assert.Equal(t, "FileTooLarge: /a/b.pdf: 12MB > 10MB", e.Error())

	eng := &ScanError{Kind: KindEngineError, Engine: "gliner", Err: fmt.Errorf("timeout")}
	assert.Equal(t, "EngineError(gliner): timeout", eng.Error())
	assert.Equal(t, eng.Err, eng.Unwrap())
}
