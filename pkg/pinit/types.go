package pinit

import "github.com/bianoble/pinit/internal/engine"

// Type aliases re-export engine types as the public API.

type Action = engine.Action
type Decider = engine.Decider
type DecisionContext = engine.DecisionContext
type Report = engine.Report
type Layer = engine.Layer
type ApplyError = engine.ApplyError
type ErrorKind = engine.ErrorKind

// Conflict actions.
const (
	ActionOverwrite = engine.Overwrite
	ActionMerge     = engine.Merge
	ActionSkip      = engine.Skip
)

// Apply error kinds.
const (
	TemplateDirNotFound = engine.TemplateDirNotFound
	TemplateDirNotDir   = engine.TemplateDirNotDir
	DestDirNotDir       = engine.DestDirNotDir
	SymlinkNotSupported = engine.SymlinkNotSupported
	IgnoreOracleFailed  = engine.IgnoreOracleFailed
	IoError             = engine.Io
)

// IsKind reports whether err is an ApplyError of kind k.
func IsKind(err error, k ErrorKind) bool {
	return engine.IsKind(err, k)
}

// SkipExisting is a Decider that never touches existing files.
type SkipExisting = engine.SkipExisting

// Always is a Decider that gives the same answer to every conflict.
type Always = engine.Always
