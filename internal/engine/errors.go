package engine

import (
	"errors"
	"fmt"

	"github.com/bianoble/pinit/internal/ignore"
)

// ErrorKind classifies an ApplyError.
type ErrorKind int

const (
	TemplateDirNotFound ErrorKind = iota + 1
	TemplateDirNotDir
	DestDirNotDir
	SymlinkNotSupported
	IgnoreOracleFailed
	Io
)

func (k ErrorKind) String() string {
	switch k {
	case TemplateDirNotFound:
		return "template directory not found"
	case TemplateDirNotDir:
		return "template path is not a directory"
	case DestDirNotDir:
		return "destination path is not a directory"
	case SymlinkNotSupported:
		return "symlinks are not supported"
	case IgnoreOracleFailed:
		return "git ignore check failed"
	case Io:
		return "io error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ApplyError aborts an apply call. Cmd, Status and Stderr are only set for
// IgnoreOracleFailed.
type ApplyError struct {
	Kind   ErrorKind
	Path   string
	Cmd    string
	Stderr string
	Status int
	Err    error
}

func (e *ApplyError) Error() string {
	switch e.Kind {
	case IgnoreOracleFailed:
		return fmt.Sprintf("git ignore check failed (%d) running %s: %s", e.Status, e.Cmd, e.Stderr)
	case Io:
		return fmt.Sprintf("io error at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an ApplyError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ae *ApplyError
	return errors.As(err, &ae) && ae.Kind == k
}

func ioError(path string, err error) error {
	return &ApplyError{Kind: Io, Path: path, Err: err}
}

func oracleError(err error) error {
	var oe *ignore.OracleError
	if errors.As(err, &oe) {
		return &ApplyError{Kind: IgnoreOracleFailed, Cmd: oe.Cmd, Status: oe.Status, Stderr: oe.Stderr, Err: err}
	}
	return &ApplyError{Kind: IgnoreOracleFailed, Cmd: ignore.CheckIgnoreCmd, Status: -1, Stderr: err.Error(), Err: err}
}
