// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Tests for filter completion parsing

package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters_SingleObject(t *testing.T) {
	filters, category, err := parseFilters(`{"q": "suit", "category": "men", "maxPrice": 3000}`)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "men", category)
	assert.Equal(t, "suit", filters[0]["q"])
	assert.Equal(t, float64(3000), filters[0]["maxPrice"])
}

func TestParseFilters_ArrayOfObjects(t *testing.T) {
	filters, _, err := parseFilters(`[{"q": "kurta"}, {"q": "dress", "on_sale": true}]`)
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, true, filters[1]["on_sale"])
}

func TestParseFilters_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"q\": \"shirt\", \"category\": \"women\"}\n```"
	filters, category, err := parseFilters(raw)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "women", category)
}

func TestParseFilters_StripsBareFence(t *testing.T) {
	raw := "```\n{\"q\": \"shirt\"}\n```"
	filters, _, err := parseFilters(raw)
	require.NoError(t, err)
	require.Len(t, filters, 1)
}

func TestParseFilters_DropsEmptyValues(t *testing.T) {
	filters, category, err := parseFilters(
		`{"q": "suit", "category": null, "fabric": "", "sizes": "null"}`)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Empty(t, category)
	assert.Equal(t, map[string]any{"q": "suit"}, map[string]any(filters[0]))
}

func TestParseFilters_ObjectEmptyAfterCleaningIsDiscarded(t *testing.T) {
	filters, _, err := parseFilters(`[{"q": null}, {"q": "dress"}]`)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "dress", filters[0]["q"])
}

func TestParseFilters_CategorySurvivesDroppedFilters(t *testing.T) {
	// Category is captured from the raw object even when cleaning leaves
	// nothing behind, so the response stage can still fall back to it.
	filters, category, err := parseFilters(`{"category": "kids", "q": null}`)
	require.NoError(t, err)
	require.Len(t, filters, 1) // category itself survives cleaning
	assert.Equal(t, "kids", category)
}

func TestParseFilters_InvalidJSON(t *testing.T) {
	_, _, err := parseFilters("sure! here are your filters: q=suit")
	assert.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.True(t, truthy(true))
	assert.True(t, truthy("true"))
	assert.True(t, truthy("TRUE"))
	assert.False(t, truthy(false))
	assert.False(t, truthy("yes"))
	assert.False(t, truthy(nil))
	assert.False(t, truthy(float64(1)))
}
