package executor

import (
	"context"
	"fmt"
	"sync"

	"steward/internal/types"
)

// NopEffector acknowledges every action without performing it, recording
// what it would have done. Used for dry runs.
type NopEffector struct {
	mu    sync.Mutex
	calls []string
}

// Execute implements types.Effector.
func (n *NopEffector) Execute(_ context.Context, kind types.ActionKind, params map[string]string) types.Outcome {
	desc := describe(kind, params)
	n.mu.Lock()
	n.calls = append(n.calls, desc)
	n.mu.Unlock()
	return types.Outcome{Success: true, Message: "dry run: " + desc}
}

// Calls returns the recorded action descriptions in invocation order.
func (n *NopEffector) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func describe(kind types.ActionKind, params map[string]string) string {
	switch kind {
	case types.ActionLaunchApp:
		if file := params["file"]; file != "" {
			return fmt.Sprintf("launch %s with %s", params["app"], file)
		}
		return "launch " + params["app"]
	case types.ActionCloseApp:
		return "close " + params["app"]
	case types.ActionFindFile:
		return "find " + params["file"]
	case types.ActionSystemControl:
		if level := params["level"]; level != "" {
			return fmt.Sprintf("system %s %s", params["op"], level)
		}
		return "system " + params["op"]
	case types.ActionWindowControl:
		return fmt.Sprintf("window %s %s", params["op"], params["app"])
	case types.ActionMediaControl:
		if q := params["query"]; q != "" {
			return fmt.Sprintf("media %s %s", params["op"], q)
		}
		return "media " + params["op"]
	case types.ActionClipboard:
		return "clipboard " + params["op"]
	case types.ActionWebSearch:
		if url := params["url"]; url != "" {
			return "open " + url
		}
		return "search " + params["query"]
	}
	return string(kind)
}
