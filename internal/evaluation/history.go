// internal/evaluation/history.go
package evaluation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dsoriano-dev/webknow/api/schemas"
	"github.com/dsoriano-dev/webknow/internal/llmutil"
)

const maxURLLen = 120

// LoadTrace reads a browser-agent history JSON file.
func LoadTrace(path string) (*schemas.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file %s: %w", path, err)
	}
	var trace schemas.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to decode history file %s: %w", path, err)
	}
	return &trace, nil
}

// TraceToMessages converts a trace into the ordered multimodal message
// sequence the evaluator model receives: one text message per step describing
// its actions, paired with the step screenshot when present.
func TraceToMessages(trace *schemas.Trace) []schemas.Message {
	messages := make([]schemas.Message, 0, len(trace.Steps))
	for i, step := range trace.Steps {
		var sb strings.Builder
		fmt.Fprintf(&sb, "This is step %d, ", i)

		if url := step.State.URL; url != "" {
			fmt.Fprintf(&sb, "the screenshot has been taken at this url %s. ", llmutil.TruncateString(url, maxURLLen))
		}

		actions := step.StepActions()
		switch {
		case len(actions) == 1:
			sb.WriteString(DescribeAction(actions[0]))
		case len(actions) > 1:
			for j, action := range actions {
				fmt.Fprintf(&sb, "The %dth action taken for step %d is %s", j, i, DescribeAction(action))
			}
		default:
			sb.WriteString("No actions found for this step")
		}

		messages = append(messages, schemas.Message{
			Text:     sb.String(),
			ImageB64: step.State.Screenshot,
		})
	}
	return messages
}

// DescribeAction renders a single agent action as a natural-language
// sentence. Unrecognized action names fall through to a generic phrasing.
func DescribeAction(action schemas.Action) string {
	name, params := actionNameAndParams(action)

	switch name {
	case "click_element_by_index":
		return fmt.Sprintf("The user clicked on element %s.", stringParam(params, "index"))
	case "get_dropdown_options":
		return fmt.Sprintf("The user clicked on dropdown option %s.", stringParam(params, "index"))
	case "select_dropdown_option":
		if text := stringParamOrEmpty(params, "text"); text != "" {
			return fmt.Sprintf("The user clicked on dropdown option %s.", text)
		}
		return fmt.Sprintf("The user clicked on dropdown option %s.", stringParam(params, "index"))
	case "input_text":
		text := stringParamOrEmpty(params, "text")
		if text == "" {
			text = "unknown text"
		}
		return fmt.Sprintf("The user typed: '%s' in element %s.", text, stringParam(params, "index"))
	case "scroll_down":
		return fmt.Sprintf("The user scrolled down for %s pixels.", stringParam(params, "amount"))
	case "scroll_up":
		return fmt.Sprintf("The user scrolled up for %s pixels.", stringParam(params, "amount"))
	case "switch_tab":
		return fmt.Sprintf("The user switched to tab %s.", stringParam(params, "page_id"))
	case "go_to_url":
		url := stringParamOrEmpty(params, "url")
		if url == "" {
			url = "unknown url"
		}
		return fmt.Sprintf("The user navigated to: %s", url)
	case "write_file":
		file := stringParamOrEmpty(params, "file_name")
		if file == "" {
			file = "unknown file"
		}
		return fmt.Sprintf("The user wrote to file: %s", file)
	case "search_google":
		query := stringParamOrEmpty(params, "query")
		if query == "" {
			query = "unknown query"
		}
		return fmt.Sprintf("The user searched Google for: '%s'", query)
	case "wait":
		return fmt.Sprintf("The user waited for %s seconds.", stringParam(params, "seconds"))
	case "done":
		return "The user stopped the tasks"
	case "":
		return "The user performed an unnamed action"
	default:
		return fmt.Sprintf("The user performed action: %s", name)
	}
}

// SaveScreenshots decodes every step screenshot and writes them concurrently
// as step_<i>.png under outputDir. Steps without a screenshot are skipped.
// Returns the written paths in step order.
func SaveScreenshots(trace *schemas.Trace, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory %s: %w", outputDir, err)
	}

	type shot struct {
		index int
		path  string
	}

	var g errgroup.Group
	g.SetLimit(8)

	shots := make([]shot, 0, len(trace.Steps))
	for i, step := range trace.Steps {
		if step.State.Screenshot == "" {
			continue
		}
		i := i
		b64 := step.State.Screenshot
		path := filepath.Join(outputDir, fmt.Sprintf("step_%d.png", i))
		shots = append(shots, shot{index: i, path: path})
		g.Go(func() error {
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return fmt.Errorf("failed to decode screenshot for step %d: %w", i, err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write screenshot for step %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(shots))
	for _, s := range shots {
		paths = append(paths, s.path)
	}
	return paths, nil
}

func actionNameAndParams(action schemas.Action) (string, map[string]json.RawMessage) {
	for name, raw := range action {
		params := map[string]json.RawMessage{}
		_ = json.Unmarshal(raw, &params)
		return name, params
	}
	return "", nil
}

// stringParam renders a parameter of any JSON type as text, "unknown" when
// absent.
func stringParam(params map[string]json.RawMessage, key string) string {
	if v := stringParamOrEmpty(params, key); v != "" {
		return v
	}
	return "unknown"
}

func stringParamOrEmpty(params map[string]json.RawMessage, key string) string {
	raw, ok := params[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
