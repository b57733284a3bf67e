// Package agent assembles the SRE investigation agent: an LLM agent wired
// with investigation state tools and the diagnostic tool registry.
package agent

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"

	"github.com/srtux/sre-agent-sub000/internal/agent/tools"
)

// AgentName is the name of the SRE investigation agent.
const AgentName = "sre_investigation_agent"

// AgentDescription describes the agent's purpose.
const AgentDescription = "Investigates production incidents by querying cloud telemetry, tracking investigation state across phases, and recommending remediations."

// New creates the SRE investigation agent.
//
// The agent carries two tool sets:
//   - investigation state tools that persist phase, findings, hypotheses,
//     root cause and suggested fix into session state
//   - diagnostic telemetry tools from the registry, each wrapped so results
//     also feed the dashboard queue
func New(llm model.LLM, registry *tools.Registry) (agent.Agent, error) {
	stateTools, err := investigationTools()
	if err != nil {
		return nil, err
	}

	agentTools := make([]tool.Tool, 0, len(stateTools)+len(registry.List()))
	agentTools = append(agentTools, stateTools...)

	for _, t := range registry.List() {
		wrapped, err := WrapRegistryTool(registry, t)
		if err != nil {
			return nil, err
		}
		agentTools = append(agentTools, wrapped)
	}

	return llmagent.New(llmagent.Config{
		Name:            AgentName,
		Description:     AgentDescription,
		Model:           llm,
		Instruction:     GetSystemPrompt(),
		Tools:           agentTools,
		IncludeContents: llmagent.IncludeContentsDefault,
	})
}
