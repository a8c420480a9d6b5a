// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the piiscan CLI.
//
// It defines UserError, a type that carries structured error information
// (what went wrong, why, how to fix it) plus one of the run's four
// fatal exit codes, and ErrorKind, the tagged enum of per-file/per-chunk
// error kinds that are recoverable and only ever counted on Statistics.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes. These are the scan command's complete exit-code surface;
// unlike a typical multi-command CLI there is no per-subsystem code space.
const (
	ExitSuccess = 0 // run completed, output finalized
	ExitGeneral = 1 // general/fatal error (writer failure, panic recovery)
	ExitArgs    = 2 // invalid CLI arguments
	ExitAccess  = 3 // fatal file-access error (root path unreadable)
	ExitConfig  = 4 // configuration error (pattern file malformed, model missing)
)

// ErrorKind tags the per-file or per-chunk error conditions from the
// error-handling design. Most kinds are recoverable: the scanner or
// processor counts them on Statistics and continues. A kind's
// disposition (recoverable vs. fatal) is fixed, not per-instance.
type ErrorKind int

const (
	KindPathTraversal ErrorKind = iota
	KindPermissionDenied
	KindFileTooLarge
	KindUnsupportedFormat
	KindExtractionError
	KindEngineError
	KindEngineUnavailable
	KindWriterError
	KindConfigurationError
)

func (k ErrorKind) String() string {
	switch k {
	case KindPathTraversal:
		return "PathTraversal"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindFileTooLarge:
		return "FileTooLarge"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindExtractionError:
		return "ExtractionError"
	case KindEngineError:
		return "EngineError"
	case KindEngineUnavailable:
		return "EngineUnavailable"
	case KindWriterError:
		return "WriterError"
	case KindConfigurationError:
		return "ConfigurationError"
	default:
		return "Unknown"
	}
}

// Fatal reports whether this kind, on its own, invalidates the whole run.
// Only WriterError and ConfigurationError are unconditionally fatal;
// EngineUnavailable is fatal only when it leaves zero engines enabled,
// a decision the engine registry makes at startup, not this method.
func (k ErrorKind) Fatal() bool {
	return k == KindWriterError || k == KindConfigurationError
}

// ScanError records a single recoverable failure attached to a path (or,
// for engine errors, to an engine name carried in Engine). It is the
// value Statistics accumulates per spec's error-kind histogram; it is
// never attached to an individual Finding.
type ScanError struct {
	Kind   ErrorKind
	Path   string
	Engine string
	Err    error
}

func (e *ScanError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Engine, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// UserError represents a fatal, user-facing error with structured context.
//
// It provides three levels of information: Message (what went wrong),
// Cause (why), and Fix (an actionable suggestion), plus the exit code the
// process should use.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// NewArgsError creates a fatal invalid-argument error (exit 2).
func NewArgsError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitArgs}
}

// NewAccessError creates a fatal file-access error (exit 3), used only
// when the root path itself cannot be opened/listed.
func NewAccessError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitAccess, Err: err}
}

// NewConfigError creates a fatal configuration error (exit 4): a
// malformed pattern file, an invalid threshold, or a requested engine
// whose model/endpoint never became available.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewGeneralError creates a fatal general error (exit 1): a writer that
// could not be opened or flushed, or an unrecovered panic.
func NewGeneralError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitGeneral, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display, with
// colored Error/Cause/Fix lines. Color is disabled when noColor is set
// or NO_COLOR is present in the environment.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// ErrorJSON is the machine-readable rendering of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err (colored text or JSON per jsonOutput) and exits
// with its exit code. Never returns. Non-UserError values exit 1.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitGeneral)
}
