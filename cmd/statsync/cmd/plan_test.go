package cmd

import (
	"bytes"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/statsync/internal/downloader"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.Disable()

	var buf bytes.Buffer
	previous := outputWriter
	outputWriter = &buf
	t.Cleanup(func() { outputWriter = previous })
	return &buf
}

func TestRenderPlan(t *testing.T) {
	buf := captureOutput(t)

	meta := &pxweb.TableMeta{
		Title: "Population by region and month",
		Variables: []pxweb.Variable{
			{Code: "Region", Text: "region", ValueTexts: make([]string, 290)},
			{Code: "Tid", Text: "månad", ValueTexts: make([]string, 12)},
		},
	}
	plan, err := downloader.PlanChunks(meta, 70000)
	require.NoError(t, err)

	renderPlan("BE.BefolkningNy", meta.Title, plan, 70000)

	output := buf.String()
	assert.Contains(t, output, "Download Plan: BE.BefolkningNy")
	assert.Contains(t, output, "Population by region and month")
	assert.Contains(t, output, "region")
	assert.Contains(t, output, "290 values")
	assert.Contains(t, output, "Queries Needed:  1")
	assert.NotContains(t, output, "Warning")
}

func TestRenderPlanClamped(t *testing.T) {
	buf := captureOutput(t)

	meta := &pxweb.TableMeta{
		Variables: []pxweb.Variable{
			{Code: "A", Text: "a", ValueTexts: make([]string, 10)},
			{Code: "B", Text: "b", ValueTexts: make([]string, 9)},
		},
	}
	plan, err := downloader.PlanChunks(meta, 5)
	require.NoError(t, err)
	require.True(t, plan.Clamped)

	renderPlan("X.Y", "", plan, 5)

	assert.Contains(t, buf.String(), "Warning")
	assert.Contains(t, buf.String(), "Queries Needed:  10")
}
