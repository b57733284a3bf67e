package agent

import (
	"encoding/json"
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/srtux/sre-agent-sub000/internal/agent/tools"
	"github.com/srtux/sre-agent-sub000/internal/dashboard"
)

// registryToolWrapper bridges a diagnostic registry tool into an ADK tool.
// Besides returning the result to the model, a successful execution pushes
// the result onto the request's dashboard queue so the client receives a
// widget alongside the conversation.
type registryToolWrapper struct {
	registry *tools.Registry
	name     string
}

// WrapRegistryTool creates an ADK tool from a diagnostic registry tool.
func WrapRegistryTool(registry *tools.Registry, t tools.Tool) (tool.Tool, error) {
	wrapper := &registryToolWrapper{registry: registry, name: t.Name()}
	return functiontool.New(functiontool.Config{
		Name:        t.Name(),
		Description: t.Description(),
	}, wrapper.execute)
}

func (w *registryToolWrapper) execute(ctx tool.Context, args map[string]any) (map[string]any, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("failed to marshal args: %v", err)}, nil
	}

	result, err := w.registry.Execute(ctx, w.name, argsJSON)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("tool execution failed: %v", err)}, nil
	}

	if !result.Success {
		return map[string]any{
			"success": false,
			"error":   result.Error,
		}, nil
	}

	dashboard.Push(ctx, w.name, result.Data)

	// Serialize and deserialize to hand the model a plain map.
	dataJSON, err := json.Marshal(result.Data)
	if err != nil {
		return map[string]any{
			"success": true,
			"summary": result.Summary,
			"data":    fmt.Sprintf("%v", result.Data),
		}, nil
	}

	var dataMap map[string]any
	if err := json.Unmarshal(dataJSON, &dataMap); err != nil {
		return map[string]any{
			"success": true,
			"summary": result.Summary,
			"data":    string(dataJSON),
		}, nil
	}

	return map[string]any{
		"success": true,
		"summary": result.Summary,
		"data":    dataMap,
	}, nil
}
