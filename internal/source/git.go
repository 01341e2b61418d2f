package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	"github.com/bianoble/pinit/internal/cache"
	"github.com/bianoble/pinit/internal/config"
)

// GitResolver serves sources backed by a git repository. Checkouts live in
// the cache and are refreshed on every use.
type GitResolver struct {
	Cache *cache.Cache
	Log   logr.Logger
}

// GitError is a failed git invocation.
type GitError struct {
	Cmd    string
	Status int
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("git failed (%d) running %s: %s", e.Status, e.Cmd, e.Stderr)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

func (g *GitResolver) Root(ctx context.Context, src config.Source) (string, error) {
	if src.Repo == "" {
		return "", fmt.Errorf("source '%s' is missing 'repo'", src.Name)
	}
	protocol := strings.ToLower(src.GitProtocol)
	if protocol == "" {
		protocol = config.ProtocolSSH
	}
	repo := NormalizeRepo(src.Repo, protocol)
	ref := src.Ref
	if ref == "" {
		ref = "HEAD"
	}

	dir, exists, err := g.Cache.Prepare(repo, ref)
	if err != nil {
		return "", err
	}
	log := g.Log.WithValues("repo", repo, "ref", ref, "dir", dir)

	if !exists {
		log.V(1).Info("git clone")
		if err := runGit(ctx, "clone", repo, dir); err != nil {
			return "", err
		}
	} else {
		log.V(1).Info("git fetch")
		if err := runGit(ctx, "-C", dir, "fetch", "--tags", "--prune", "origin"); err != nil {
			log.V(1).Info("git fetch failed; using cached checkout", "error", err.Error())
		}
	}

	if err := checkoutDetached(ctx, dir, ref); err != nil {
		if strings.Contains(ref, "/") || looksLikeHex(ref) {
			return "", err
		}
		log.V(1).Info("ref not found locally; trying origin", "error", err.Error())
		if err := checkoutDetached(ctx, dir, "origin/"+ref); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// InitRepo runs git init in dir with branch as the initial branch. Older git
// versions without --initial-branch get a plain init followed by a checkout.
func InitRepo(ctx context.Context, log logr.Logger, dir, branch string) error {
	log.Info("git init", "dir", dir, "branch", branch)
	err := runGit(ctx, "-C", dir, "init", "--initial-branch", branch)
	if err == nil {
		return nil
	}
	var ge *GitError
	if !errors.As(err, &ge) || ge.Status < 0 {
		return err
	}
	log.V(1).Info("git init --initial-branch failed; falling back", "error", err.Error())
	if err := runGit(ctx, "-C", dir, "init"); err != nil {
		return err
	}
	return runGit(ctx, "-C", dir, "checkout", "-B", branch)
}

func checkoutDetached(ctx context.Context, dir, ref string) error {
	return runGit(ctx, "-C", dir, "checkout", "--detach", "--force", ref)
}

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		status := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			status = ee.ExitCode()
		}
		return &GitError{
			Cmd:    "git " + strings.Join(args, " "),
			Status: status,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// NormalizeRepo expands a GitHub owner/name shorthand into a clone URL for
// the given protocol. Anything else is returned unchanged.
func NormalizeRepo(repo, protocol string) string {
	if !isGitHubShorthand(repo) {
		return repo
	}
	if protocol == config.ProtocolHTTPS {
		return "https://github.com/" + repo + ".git"
	}
	return "git@github.com:" + repo + ".git"
}

func isGitHubShorthand(repo string) bool {
	if repo == "" || strings.ContainsAny(repo, ":\\") || strings.HasPrefix(repo, "git@") {
		return false
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") || strings.HasSuffix(name, ".git") {
		return false
	}
	return isRepoComponent(owner) && isRepoComponent(name)
}

func isRepoComponent(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// looksLikeHex reports whether ref could be an abbreviated commit hash.
func looksLikeHex(ref string) bool {
	if len(ref) < 7 {
		return false
	}
	for _, c := range ref {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
