// internal/evaluation/history_test.go
package evaluation

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsoriano-dev/webknow/api/schemas"
)

func action(t *testing.T, name string, params map[string]any) schemas.Action {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return schemas.Action{name: json.RawMessage(raw)}
}

func TestDescribeAction(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"click_element_by_index", map[string]any{"index": 4}, "The user clicked on element 4."},
		{"select_dropdown_option", map[string]any{"text": "Economy"}, "The user clicked on dropdown option Economy."},
		{"select_dropdown_option", map[string]any{"index": 2}, "The user clicked on dropdown option 2."},
		{"input_text", map[string]any{"index": 7, "text": "Paris"}, "The user typed: 'Paris' in element 7."},
		{"scroll_down", map[string]any{"amount": 500}, "The user scrolled down for 500 pixels."},
		{"scroll_up", map[string]any{}, "The user scrolled up for unknown pixels."},
		{"switch_tab", map[string]any{"page_id": 1}, "The user switched to tab 1."},
		{"go_to_url", map[string]any{"url": "https://example.com"}, "The user navigated to: https://example.com"},
		{"search_google", map[string]any{"query": "cheap flights"}, "The user searched Google for: 'cheap flights'"},
		{"wait", map[string]any{"seconds": 3}, "The user waited for 3 seconds."},
		{"done", map[string]any{"success": true, "text": "finished"}, "The user stopped the tasks"},
		{"hover_element", map[string]any{}, "The user performed action: hover_element"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DescribeAction(action(t, tc.name, tc.params)))
		})
	}
}

func TestTraceToMessages(t *testing.T) {
	longURL := "https://example.com/" + strings.Repeat("x", 150)
	trace := &schemas.Trace{Steps: []schemas.Step{
		{
			State: schemas.StepState{URL: "https://example.com/", Screenshot: "aW1n"},
			Model: &schemas.StepModel{Action: []schemas.Action{
				action(t, "click_element_by_index", map[string]any{"index": 3}),
			}},
		},
		{
			State: schemas.StepState{URL: longURL},
			Actions: []schemas.Action{
				action(t, "input_text", map[string]any{"index": 1, "text": "hotel"}),
				action(t, "click_element_by_index", map[string]any{"index": 9}),
			},
		},
		{
			State: schemas.StepState{URL: ""},
		},
	}}

	messages := TraceToMessages(trace)
	require.Len(t, messages, 3)

	assert.Equal(t, "This is step 0, the screenshot has been taken at this url https://example.com/. The user clicked on element 3.", messages[0].Text)
	assert.Equal(t, "aW1n", messages[0].ImageB64)

	// Long URLs are truncated with an ellipsis marker.
	assert.Contains(t, messages[1].Text, longURL[:120]+"...")
	assert.Contains(t, messages[1].Text, "The 0th action taken for step 1 is The user typed: 'hotel' in element 1.")
	assert.Contains(t, messages[1].Text, "The 1th action taken for step 1 is The user clicked on element 9.")

	assert.Equal(t, "This is step 2, No actions found for this step", messages[2].Text)
	assert.Empty(t, messages[2].ImageB64)
}

func TestLoadTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	payload := `{"history": [{"state": {"url": "https://a.com/", "screenshot": ""}, "model_output": {"action": [{"done": {"success": true}}]}}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	trace, err := LoadTrace(path)
	require.NoError(t, err)
	require.Len(t, trace.Steps, 1)
	assert.Equal(t, "https://a.com/", trace.Steps[0].State.URL)
	require.Len(t, trace.Steps[0].StepActions(), 1)

	_, err = LoadTrace(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSaveScreenshots(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	trace := &schemas.Trace{Steps: []schemas.Step{
		{State: schemas.StepState{Screenshot: img}},
		{State: schemas.StepState{}}, // no screenshot, skipped
		{State: schemas.StepState{Screenshot: img}},
	}}

	dir := t.TempDir()
	paths, err := SaveScreenshots(trace, dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, filepath.Join(dir, "step_0.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "step_2.png"), paths[1])
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestSaveScreenshotsInvalidBase64(t *testing.T) {
	trace := &schemas.Trace{Steps: []schemas.Step{
		{State: schemas.StepState{Screenshot: "%%% not base64 %%%"}},
	}}
	_, err := SaveScreenshots(trace, t.TempDir())
	assert.Error(t, err)
}
