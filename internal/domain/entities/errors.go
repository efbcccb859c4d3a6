package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies failures so callers can react without string matching.
type ErrorKind string

const (
	KindExternalToolFailure ErrorKind = "ExternalToolFailure"
	KindInvalidState        ErrorKind = "InvalidState"
	KindNotFound            ErrorKind = "NotFound"
	KindPolicyViolation     ErrorKind = "PolicyViolation"
	KindNavigationFailure   ErrorKind = "NavigationFailure"
	KindUnknown             ErrorKind = "Unknown"
)

// maxStderrLen caps the captured tool output carried by CommandFailedError.
const maxStderrLen = 4096

// kindedError is a sentinel that knows its own kind.
type kindedError struct {
	kind ErrorKind
	msg  string
}

func (e *kindedError) Error() string   { return e.msg }
func (e *kindedError) Kind() ErrorKind { return e.kind }

func newKinded(kind ErrorKind, msg string) error {
	return &kindedError{kind: kind, msg: msg}
}

var (
	ErrNoOpenBatch            = newKinded(KindInvalidState, "no open batch")
	ErrBatchAlreadyOpen       = newKinded(KindInvalidState, "a batch is already open for this site")
	ErrBatchExists            = newKinded(KindInvalidState, "batch already exists")
	ErrBatchNotOpen           = newKinded(KindInvalidState, "batch is not open")
	ErrBatchAlreadyRolledBack = newKinded(KindInvalidState, "batch has already been rolled back")
	ErrOriginalNotFound       = newKinded(KindInvalidState, "original content not found in file")
	ErrBatchNotFound          = newKinded(KindNotFound, "batch not found")
	ErrBatchNotCompleted      = newKinded(KindNotFound, "batch has no completion tag")
	ErrTagNotFound            = newKinded(KindNotFound, "tag not found")
	ErrSiteNotFound           = newKinded(KindNotFound, "site not found")
	ErrUnsupportedChangeType  = newKinded(KindPolicyViolation, "unsupported change type")
	ErrCrawlDisallowed        = newKinded(KindPolicyViolation, "robots.txt disallows crawling this origin")
	ErrPathOutsideSite        = newKinded(KindPolicyViolation, "path escapes the site directory")
	ErrNavigation             = newKinded(KindNavigationFailure, "navigation failed")
)

// CommandFailedError is returned when an external tool exits with a non-zero code.
type CommandFailedError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
}

// NewCommandFailedError builds a CommandFailedError, truncating stderr.
func NewCommandFailedError(command string, args []string, exitCode int, stderr string) *CommandFailedError {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrLen {
		stderr = stderr[:maxStderrLen] + "...(truncated)"
	}
	return &CommandFailedError{Command: command, Args: args, ExitCode: exitCode, Stderr: stderr}
}

func (e *CommandFailedError) Error() string {
	name := e.Command
	if len(e.Args) > 0 {
		name += " " + e.Args[0]
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed (exit=%d)", name, e.ExitCode)
	}
	return fmt.Sprintf("%s failed (exit=%d): %s", name, e.ExitCode, e.Stderr)
}

func (e *CommandFailedError) Kind() ErrorKind { return KindExternalToolFailure }

// TimeoutError is returned when an external invocation exceeds its deadline.
type TimeoutError struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	name := e.Command
	if len(e.Args) > 0 {
		name += " " + e.Args[0]
	}
	return fmt.Sprintf("%s timed out after %s", name, e.Timeout)
}

func (e *TimeoutError) Kind() ErrorKind { return KindExternalToolFailure }

// TrackingError annotates a change-tracking failure with the site and batch it concerns.
type TrackingError struct {
	Op      string
	SiteID  string
	BatchID string
	Err     error
}

func (e *TrackingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.SiteID != "" {
		fmt.Fprintf(&b, " (site=%s", e.SiteID)
		if e.BatchID != "" {
			fmt.Fprintf(&b, ", batch=%s", e.BatchID)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TrackingError) Unwrap() error { return e.Err }

func (e *TrackingError) Kind() ErrorKind { return KindOf(e.Err) }

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		if _, isTracking := current.(*TrackingError); isTracking {
			continue
		}
		if k, ok := current.(interface{ Kind() ErrorKind }); ok {
			return k.Kind()
		}
		if joined, ok := current.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				if kind := KindOf(inner); kind != KindUnknown {
					return kind
				}
			}
		}
	}
	return KindUnknown
}
