package main

import (
	"context"
	"fmt"
	"strings"

	"steward/internal/types"
)

// consoleEffector announces each action on stdout. It stands in for a
// platform automation backend; wire a real one behind the same interface.
type consoleEffector struct{}

func (consoleEffector) Execute(_ context.Context, kind types.ActionKind, params map[string]string) types.Outcome {
	var parts []string
	for _, key := range []string{"op", "app", "file", "url", "query", "level", "text", "target"} {
		if v := params[key]; v != "" {
			parts = append(parts, v)
		}
	}
	fmt.Printf("* %s %s\n", kind, strings.Join(parts, " "))
	return types.Outcome{Success: true, Message: "done"}
}
