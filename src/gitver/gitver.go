// Package gitver stamps build artifacts with git metadata. The stamp is
// informational only: it never participates in cache keys, which are pure
// functions of content and toolchain identity.
package gitver

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Stamp holds artifact provenance resolved from git.
type Stamp struct {
	Version string // nearest semver tag, or "0.0.0-dev+<sha>"
	SHA     string
	Branch  string
	Dirty   bool
}

// semverRe captures major.minor.patch and optional -prerelease suffix.
var semverRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-(.+))?$`)

// Detect resolves the stamp for a repository. Returns nil (no stamp) if the
// directory is not a git repository or git is unavailable.
func Detect(rootDir string) *Stamp {
	sha, err := gitCmd(rootDir, "rev-parse", "--short=7", "HEAD")
	if err != nil {
		return nil
	}

	s := &Stamp{SHA: sha}

	if branch, err := gitCmd(rootDir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		s.Branch = branch
	}

	if status, err := gitCmd(rootDir, "status", "--porcelain"); err == nil {
		s.Dirty = status != ""
	}

	tag, err := gitCmd(rootDir, "describe", "--tags", "--abbrev=0")
	if err != nil {
		s.Version = fmt.Sprintf("0.0.0-dev+%s", s.SHA)
		return s
	}

	if m := semverRe.FindStringSubmatch(strings.TrimSpace(tag)); m != nil {
		s.Version = strings.TrimPrefix(strings.TrimSpace(tag), "v")
	} else {
		s.Version = strings.TrimSpace(tag)
	}

	// HEAD past the tag gets a dev suffix.
	if _, err := gitCmd(rootDir, "describe", "--tags", "--exact-match"); err != nil {
		s.Version = fmt.Sprintf("%s-dev+%s", s.Version, s.SHA)
	}

	return s
}

// Labels renders the stamp as artifact metadata labels.
func (s *Stamp) Labels() map[string]string {
	if s == nil {
		return nil
	}
	labels := map[string]string{
		"git_sha":     s.SHA,
		"git_version": s.Version,
	}
	if s.Branch != "" {
		labels["git_branch"] = s.Branch
	}
	if s.Dirty {
		labels["git_dirty"] = "true"
	}
	return labels
}

// gitCmd runs a git command and returns trimmed stdout.
func gitCmd(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
