package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagLiveOnly)})

	t.Run("run if enabled", func(t *testing.T) {
		var runLiveOnly bool
		f.IfSet(FlagLiveOnly, func() {
			runLiveOnly = true
		})
		require.True(t, runLiveOnly)

		var runProximity bool
		f.IfSet(FlagProximityMode, func() {
			runProximity = true
		})
		require.False(t, runProximity)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var runLiveOnly bool
		f.IfNotSet(FlagLiveOnly, func() {
			runLiveOnly = true
		})
		require.False(t, runLiveOnly)

		var runProximity bool
		f.IfNotSet(FlagProximityMode, func() {
			runProximity = true
		})
		require.True(t, runProximity)
	})
}

func TestFeatureFlagNormalization(t *testing.T) {
	f := New([]string{" proximity_mode", "", "DISABLE_SUBDIVIDE "})

	require.True(t, f.IsSet(FlagProximityMode))
	require.True(t, f.IsSet(FlagDisableSubdivide))
	require.False(t, f.IsSet(FlagLiveOnly))
	require.Equal(t, []string{"DISABLE_SUBDIVIDE", "PROXIMITY_MODE"}, f.List())
}
