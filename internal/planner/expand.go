package planner

import (
	"fmt"
	"strconv"

	"steward/internal/types"
)

// expand maps one classified intent to its executable steps. Multi-step
// expansions are ordered: the planner chains them with step_completed
// preconditions and dependency edges.
func expand(res types.ClassificationResult) ([]types.ActionStep, error) {
	e := func(slot string) string {
		if res.Entities == nil {
			return ""
		}
		if ent, ok := res.Entities.Get(slot); ok {
			return ent.Text
		}
		return ""
	}

	switch res.Intent {
	case "launch_app":
		return []types.ActionStep{{
			Kind:   types.ActionLaunchApp,
			Params: map[string]string{"app": e("app")},
		}}, nil

	case "close_app":
		app := e("app")
		params := map[string]string{"app": app}
		switch app {
		case "all", "all apps", "everything":
			params["op"] = "all"
		}
		return []types.ActionStep{{
			Kind:   types.ActionCloseApp,
			Params: params,
		}}, nil

	case "open_app_with_file":
		// Locate the file first; launching depends on it resolving.
		return []types.ActionStep{
			{
				Kind:   types.ActionFindFile,
				Params: map[string]string{"file": e("file")},
				Post:   []types.Postcondition{{StateKey: "file.resolved", StateValue: "true"}},
			},
			{
				Kind:   types.ActionLaunchApp,
				Params: map[string]string{"app": e("app"), "file": e("file")},
			},
		}, nil

	case "find_file":
		return []types.ActionStep{{
			Kind:   types.ActionFindFile,
			Params: map[string]string{"file": e("file")},
		}}, nil

	case "shutdown":
		return []types.ActionStep{{
			Kind:   types.ActionSystemControl,
			Params: map[string]string{"op": "shutdown"},
		}}, nil

	case "restart":
		return []types.ActionStep{{
			Kind:   types.ActionSystemControl,
			Params: map[string]string{"op": "restart"},
		}}, nil

	case "mute":
		return []types.ActionStep{{
			Kind:   types.ActionSystemControl,
			Params: map[string]string{"op": "mute"},
		}}, nil

	case "unmute":
		return []types.ActionStep{{
			Kind:   types.ActionSystemControl,
			Params: map[string]string{"op": "unmute"},
		}}, nil

	case "set_volume":
		level := e("level")
		if res.Entities != nil {
			if ent, ok := res.Entities.Get("level"); ok && ent.Kind == types.EntityPercentage {
				level = strconv.Itoa(int(ent.Number))
			}
		}
		return []types.ActionStep{{
			Kind:   types.ActionSystemControl,
			Params: map[string]string{"op": "set_volume", "level": level},
		}}, nil

	case "maximize_window":
		return []types.ActionStep{{
			Kind:   types.ActionWindowControl,
			Params: map[string]string{"op": "maximize", "app": e("app")},
		}}, nil

	case "minimize_window":
		return []types.ActionStep{{
			Kind:   types.ActionWindowControl,
			Params: map[string]string{"op": "minimize", "app": e("app")},
		}}, nil

	case "play_music":
		return []types.ActionStep{{
			Kind:   types.ActionMediaControl,
			Params: map[string]string{"op": "play", "target": "music"},
		}}, nil

	case "play_media":
		return []types.ActionStep{{
			Kind:   types.ActionMediaControl,
			Params: map[string]string{"op": "play", "query": e("query")},
		}}, nil

	case "media_pause":
		return []types.ActionStep{{
			Kind:   types.ActionMediaControl,
			Params: map[string]string{"op": "pause"},
		}}, nil

	case "media_next":
		return []types.ActionStep{{
			Kind:   types.ActionMediaControl,
			Params: map[string]string{"op": "next"},
		}}, nil

	case "copy_clipboard":
		return []types.ActionStep{{
			Kind:   types.ActionClipboard,
			Params: map[string]string{"op": "copy", "text": e("text")},
		}}, nil

	case "paste_clipboard":
		return []types.ActionStep{{
			Kind:   types.ActionClipboard,
			Params: map[string]string{"op": "paste"},
		}}, nil

	case "open_url":
		return []types.ActionStep{{
			Kind:   types.ActionWebSearch,
			Params: map[string]string{"op": "open_url", "url": e("url")},
		}}, nil

	case "web_search":
		return []types.ActionStep{{
			Kind:   types.ActionWebSearch,
			Params: map[string]string{"op": "search", "query": e("query")},
		}}, nil
	}

	return nil, fmt.Errorf("no step expansion for intent %q", res.Intent)
}
