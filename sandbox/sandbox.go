// Package sandbox declares per-hook resource restrictions: allowed
// filesystem roots, network/subprocess permission, and memory/time/file
// handle limits. Roots, network and subprocess permission have Check
// methods and the time limit has WithTimeout; MemoryLimitBytes and
// MaxOpenFiles are carried in the profile but not checked by this
// package. No example repo carries a sandboxing library (security/
// covers auth tokens and certs, not resource confinement), so this is a
// declarative profile checked with the standard library, in the same
// deny-by-default shape the auth packages use for permission checks.
package sandbox

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/kgcengine/kgc/errs"
)

// Profile declares what a single hook invocation is permitted to touch.
type Profile struct {
	AllowedRoots      []string
	NetworkAllowed    bool
	SubprocessAllowed bool
	MemoryLimitBytes  int64
	TimeLimit         time.Duration
	MaxOpenFiles      int
}

// DefaultProfile denies everything but a generous time budget; hooks opt
// into wider access explicitly.
func DefaultProfile() Profile {
	return Profile{
		AllowedRoots:      nil,
		NetworkAllowed:    false,
		SubprocessAllowed: false,
		MemoryLimitBytes:  64 * 1024 * 1024,
		TimeLimit:         100 * time.Millisecond,
		MaxOpenFiles:      8,
	}
}

// CheckFileRead verifies path falls under one of the profile's allowed
// roots, returning a SandboxViolation otherwise.
func (p Profile) CheckFileRead(path string) error {
	if len(p.AllowedRoots) == 0 {
		return errs.SandboxViolation("file access denied: no allowed roots configured")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errs.SandboxViolation("cannot resolve path " + path)
	}
	for _, root := range p.AllowedRoots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return nil
		}
	}
	return errs.SandboxViolation("path outside allowed roots: " + path)
}

// CheckNetwork verifies the profile permits outbound network access.
func (p Profile) CheckNetwork() error {
	if !p.NetworkAllowed {
		return errs.SandboxViolation("network access denied by sandbox profile")
	}
	return nil
}

// CheckSubprocess verifies the profile permits spawning subprocesses.
func (p Profile) CheckSubprocess() error {
	if !p.SubprocessAllowed {
		return errs.SandboxViolation("subprocess spawning denied by sandbox profile")
	}
	return nil
}

// WithTimeout returns a context bound by the profile's TimeLimit, or ctx
// unmodified if no limit is set.
func (p Profile) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.TimeLimit <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.TimeLimit)
}
