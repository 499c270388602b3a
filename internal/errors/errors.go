// Package errors provides standardized error types for the tlsdeploy CLI.
//
// Every failure in the provisioning workflow falls into one of a small
// set of categories, and the category decides both how the workflow
// reacts and which exit code the process ends with:
//
//   - Precondition: a check failed before any mutation (DNS mismatch,
//     missing privilege, unreachable port). Safe to retry after fixing
//     the precondition. Exit code 1.
//   - Generation: certificate issuance failed (crypto toolchain, ACME
//     authority). No live configuration was touched. Exit code 1.
//   - Render: a template placeholder had no value. Nothing written.
//     Exit code 1.
//   - Validation: the rendered configuration failed the nginx syntax
//     check and the previous configuration was restored. Exit code 2.
//   - Restore: rolling back the snapshot itself failed. The live
//     configuration is in an undefined state and the operator must
//     intervene manually. Exit code 3.
//
// # Usage
//
// Creating errors:
//
//	return errors.Precondition("DNS for %s resolves to %s, expected %s", ...)
//	return errors.Wrap(errors.CodeGeneration, "obtain certificate", err)
//
// Checking:
//
//	if errors.Is(err, errors.ErrRootRequired) { ... }
//
//	var de *errors.DeployError
//	if errors.As(err, &de) && de.Code == errors.CodeValidation { ... }
//
// Mapping to an exit code:
//
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
)

// Code categorizes errors for programmatic handling.
type Code string

// Error categories. The first five mirror the workflow taxonomy; the
// rest cover ambient CLI failures.
const (
	CodePrecondition Code = "PRECONDITION" // check failed before any mutation
	CodeGeneration   Code = "GENERATION"   // certificate issuance failed
	CodeRender       Code = "RENDER"       // template substitution failed
	CodeValidation   Code = "VALIDATION"   // config syntax check failed, rolled back
	CodeRestore      Code = "RESTORE"      // snapshot restore failed, state undefined
	CodeConfig       Code = "CONFIG"       // tool configuration error
	CodePermission   Code = "PERMISSION"   // insufficient privileges
	CodeNotFound     Code = "NOT_FOUND"    // site, snapshot, or file not found
	CodeInternal     Code = "INTERNAL"     // unexpected internal error
)

// Process exit codes, one per operator-distinguishable outcome.
const (
	ExitOK           = 0
	ExitFailed       = 1 // precondition, generation, render, or other error
	ExitRolledBack   = 2 // validation failed, previous config restored
	ExitRestoreFatal = 3 // rollback itself failed, manual intervention required
)

// DeployError is a structured error carrying the workflow category and,
// where applicable, the domain being provisioned and a diagnostic from
// an external tool (verbatim nginx -t output, ACME error body).
type DeployError struct {
	Code       Code
	Message    string
	Domain     string
	Diagnostic string // verbatim output of an external checker, if any
	Err        error
}

// Error implements the error interface.
func (e *DeployError) Error() string {
	msg := e.Message
	if e.Domain != "" {
		msg = fmt.Sprintf("%s: %s", e.Domain, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Diagnostic != "" {
		msg = fmt.Sprintf("%s\n%s", msg, e.Diagnostic)
	}
	return msg
}

// Unwrap returns the underlying error for error chain traversal.
func (e *DeployError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error. Comparison is based on
// the error code so sentinel errors match any error of their category.
func (e *DeployError) Is(target error) bool {
	t, ok := target.(*DeployError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for common scenarios. Use with errors.Is.
var (
	// ErrRootRequired indicates the command must run with root privileges.
	ErrRootRequired = &DeployError{Code: CodePermission, Message: "root privileges required"}

	// ErrDNSMismatch indicates the domain resolves to an address other
	// than the configured server IP.
	ErrDNSMismatch = &DeployError{Code: CodePrecondition, Message: "DNS mismatch"}

	// ErrSnapshotNotFound indicates the requested snapshot does not exist.
	ErrSnapshotNotFound = &DeployError{Code: CodeNotFound, Message: "snapshot not found"}

	// ErrSiteNotFound indicates the requested site is not managed.
	ErrSiteNotFound = &DeployError{Code: CodeNotFound, Message: "site not found"}

	// ErrLockHeld indicates another provisioning run holds the config lock.
	ErrLockHeld = &DeployError{Code: CodePrecondition, Message: "configuration lock held by another process"}
)

// Precondition creates a precondition error with a formatted message.
func Precondition(format string, args ...interface{}) error {
	return &DeployError{Code: CodePrecondition, Message: fmt.Sprintf(format, args...)}
}

// Render creates a render error with a formatted message.
func Render(format string, args ...interface{}) error {
	return &DeployError{Code: CodeRender, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error carrying the checker's verbatim
// diagnostic output.
func Validation(domain, diagnostic string) error {
	return &DeployError{
		Code:       CodeValidation,
		Message:    "configuration failed validation, previous configuration restored",
		Domain:     domain,
		Diagnostic: diagnostic,
	}
}

// Restore creates a fatal restore error. diagnostic carries the
// validation output that triggered the rollback attempt.
func Restore(domain, diagnostic string, err error) error {
	return &DeployError{
		Code:       CodeRestore,
		Message:    "snapshot restore failed, live configuration is in an undefined state",
		Domain:     domain,
		Diagnostic: diagnostic,
		Err:        err,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code Code, msg string, err error) error {
	return &DeployError{Code: code, Message: msg, Err: err}
}

// WrapDomain creates an error with domain context and underlying error.
func WrapDomain(code Code, domain, msg string, err error) error {
	return &DeployError{Code: code, Domain: domain, Message: msg, Err: err}
}

// ExitCode maps an error to the process exit code the operator sees.
// A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *DeployError
	if errors.As(err, &de) {
		switch de.Code {
		case CodeValidation:
			return ExitRolledBack
		case CodeRestore:
			return ExitRestoreFatal
		}
	}
	return ExitFailed
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As
