package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/legacymigrate/internal/importer"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

func TestTableRender_WideCharacters(t *testing.T) {
	tbl := &table{header: []string{"A", "NAME"}}
	tbl.add("1", "展覧会")
	tbl.add("22", "x")

	var buf bytes.Buffer
	tbl.render(&buf, "")

	assert.Equal(t, "A   NAME\n--  ------\n1   展覧会\n22  x\n", buf.String())
}

func TestPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	printHeader("Plan: %s", "Découverte")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, strings.Repeat("=", 20), lines[0], "width counts cells, not bytes")
	assert.Equal(t, "  Plan: Découverte", lines[1])
}

func TestPrintRunResult(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	ok := importer.NewResult(importer.UnitProject)
	ok.Imported = 3
	ok.Finalize()

	failed := importer.NewResult(importer.UnitObject)
	failed.Imported = 10
	failed.Skipped = 2
	for i := 0; i < 4; i++ {
		failed.AddError(errors.New("mwnf3:objects:ISL:jo:M1:" + string(rune('1'+i)) + ": status 422"))
	}
	failed.Finalize()

	rr := &importer.RunResult{
		Results:  []*importer.Result{ok, failed},
		Duration: 1500 * time.Millisecond,
		Aborted:  importer.UnitObject,
	}
	printRunResult(rr, 2)

	out := buf.String()
	assert.Contains(t, out, "Migration Summary")
	assert.Contains(t, out, "project")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "object errors:")
	assert.Contains(t, out, "mwnf3:objects:ISL:jo:M1:2: status 422")
	assert.NotContains(t, out, "mwnf3:objects:ISL:jo:M1:3")
	assert.Contains(t, out, "... and 2 more")
	assert.Contains(t, out, "Imported: 13  Skipped: 2  Errors: 4  Warnings: 0")
	assert.Contains(t, out, "Stopped at unit object")
	assert.Contains(t, out, "Duration: 1.5s")
}

func TestPrintTracked(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	tr := tracker.New(nil, 0)
	printTracked(tr)
	assert.Empty(t, buf.String())

	require.NoError(t, tr.Register(tracker.Entity{Token: "mwnf3:objects:ISL:jo:M1:1", TargetID: "i1", Category: tracker.CategoryItem}))
	require.NoError(t, tr.Register(tracker.Entity{Token: "mwnf3:objects:ISL:jo:M1:1:eng", TargetID: "t1", Category: tracker.CategoryTranslation}))
	require.NoError(t, tr.Register(tracker.Entity{Token: "mwnf3:museums:M1:jo", TargetID: "p1", Category: tracker.CategoryPartner}))
	printTracked(tr)
	assert.Equal(t, "  Tracked:  partner=1 item=1 translation=1\n", buf.String())
}

func TestUnitFiltersRegister(t *testing.T) {
	for _, c := range []string{"run", "plan", "validate"} {
		sub, _, err := rootCmd.Find([]string{c})
		assert.NoError(t, err)
		for _, name := range []string{"only", "start-at", "stop-at"} {
			assert.NotNil(t, sub.Flags().Lookup(name), "%s --%s", c, name)
		}
	}
}
