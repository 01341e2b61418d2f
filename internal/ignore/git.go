package ignore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CheckIgnoreCmd is the command reported in OracleError.
const CheckIgnoreCmd = "git check-ignore --stdin --verbose --non-matching"

// OracleError is returned when the ignore oracle fails with anything other
// than its "nothing ignored" status.
type OracleError struct {
	Cmd    string
	Stderr string
	Status int
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("git ignore check failed (%d) running %s: %s", e.Status, e.Cmd, e.Stderr)
}

// GitOracle answers ignore queries with git check-ignore run inside Dir.
type GitOracle struct {
	Dir string
}

// Detect returns a GitOracle for dir when dir is inside a git work tree.
// A missing directory, a missing git binary or any git failure yields nil.
func Detect(ctx context.Context, dir string) Oracle {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	cmd.Env = gitEnv()
	out, err := cmd.Output()
	if err != nil || strings.TrimSpace(string(out)) != "true" {
		return nil
	}
	return &GitOracle{Dir: dir}
}

// Ignored runs one check-ignore process for the whole batch.
func (g *GitOracle) Ignored(ctx context.Context, paths []string) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(paths) == 0 {
		return ignored, nil
	}

	var stdin bytes.Buffer
	for _, p := range paths {
		stdin.WriteString(p)
		stdin.WriteByte('\n')
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "--stdin", "--verbose", "--non-matching")
	cmd.Dir = g.Dir
	cmd.Env = gitEnv()
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit status 1 means none of the paths are ignored.
			if exitErr.ExitCode() == 1 {
				return ignored, nil
			}
			return nil, &OracleError{Cmd: CheckIgnoreCmd, Status: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &OracleError{Cmd: CheckIgnoreCmd, Status: -1, Stderr: msg}
	}

	parseVerbose(stdout.String(), ignored)
	return ignored, nil
}

// parseVerbose reads "<source>:<line>:<pattern>\t<path>" records. Records
// whose source part is empty ("::") are non-matching paths.
func parseVerbose(out string, ignored map[string]bool) {
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		meta, p, ok := strings.Cut(line, "\t")
		if !ok || strings.HasPrefix(meta, "::") {
			continue
		}
		ignored[p] = true
	}
}

func gitEnv() []string {
	return append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
}
