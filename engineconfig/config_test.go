package engineconfig

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecInvariants(t *testing.T) {
	cfg := Default()
	require.Equal(t, 64, cfg.HermeticityLimit)
	require.Equal(t, 64, cfg.LockchainBlockSize)
	require.Equal(t, 100, cfg.HookTimeoutDefaultMs)
}

func TestLoadFallsBackToDefaultsWithoutConfigFile(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	BindFlags(cmd, v)

	cfg, err := Load(v, "/nonexistent/path/does-not-exist.yaml")
	require.NoError(t, err)
	require.Equal(t, 64, cfg.HermeticityLimit)
}

func TestBindFlagsOverridesDefault(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	BindFlags(cmd, v)
	require.NoError(t, cmd.PersistentFlags().Set("hermeticity-limit", "32"))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, 32, cfg.HermeticityLimit)
}
