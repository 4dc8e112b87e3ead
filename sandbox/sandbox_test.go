package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/errs"
)

func TestCheckFileReadWithinRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.ttl")
	require.NoError(t, os.WriteFile(file, []byte("# x"), 0o644))

	p := Profile{AllowedRoots: []string{dir}}
	require.NoError(t, p.CheckFileRead(file))
}

func TestCheckFileReadOutsideRootDenied(t *testing.T) {
	p := Profile{AllowedRoots: []string{t.TempDir()}}
	err := p.CheckFileRead("/etc/passwd")
	require.Error(t, err)
	require.Equal(t, errs.CodeSandboxViolation, err.(errs.Coded).Code())
}

func TestCheckNetworkDeniedByDefault(t *testing.T) {
	require.Error(t, DefaultProfile().CheckNetwork())
}

func TestCheckSubprocessDeniedByDefault(t *testing.T) {
	require.Error(t, DefaultProfile().CheckSubprocess())
}
