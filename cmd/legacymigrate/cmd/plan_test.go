package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.NotEmpty(t, planCmd.Long)
	assert.NotNil(t, planCmd.RunE)

	estimate := planCmd.Flags().Lookup("estimate")
	require.NotNil(t, estimate)
	assert.Equal(t, "false", estimate.DefValue)
}

func TestRunPlan_FullOrder(t *testing.T) {
	out, err := executeCommand(t, "plan", "-c", writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Contains(t, out, "Execution Plan")
	assert.Contains(t, out, "Mode:   dry-run")
	assert.Contains(t, out, "Units:  15")
	assert.NotContains(t, out, "Read From Target")
	assert.NotContains(t, out, "ROWS")

	first := strings.Index(out, "default_context")
	last := strings.Index(out, "thg_theme_item")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, last)
	assert.Less(t, first, last)
}

func TestRunPlan_StartAtShowsTargetDependencies(t *testing.T) {
	out, err := executeCommand(t, "plan", "-c", writeConfig(t, testConfig), "--start-at", "thg_gallery")
	require.NoError(t, err)

	assert.Contains(t, out, "Units:  4")
	section := out[strings.Index(out, "Read From Target"):]
	assert.Contains(t, section, "thg_root_collections")
	assert.Contains(t, section, "object")
	assert.NotContains(t, section, "thg_theme")
}

func TestRunPlan_UnknownUnit(t *testing.T) {
	_, err := executeCommand(t, "plan", "-c", writeConfig(t, testConfig), "--stop-at", "objects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown unit "objects"`)
}

func TestRunList(t *testing.T) {
	out, err := executeCommand(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "PHASE")
	assert.Contains(t, out, "mwnf3.objects_pictures")
	assert.Contains(t, out, "mwnf3_thematic_gallery.theme_item (optional)")
	assert.Contains(t, out, "Total: 15 unit(s)")
}
