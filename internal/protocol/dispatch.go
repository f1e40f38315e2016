package protocol

import (
	"context"
	"encoding/json"

	"github.com/jwwelbor/marcus/internal/core"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/progress"
)

// Dispatcher binds the operation table to a single Core instance. One
// Dispatcher per running server; transports (cmd/marcusd's HTTP handler,
// or a direct in-process caller) hold a Dispatcher rather than a Core so
// Core's Go API and the wire protocol can evolve independently.
type Dispatcher struct {
	core *core.Core
}

// New builds a Dispatcher over an already-wired Core.
func New(c *core.Core) *Dispatcher {
	return &Dispatcher{core: c}
}

var operations map[string]operation

func init() {
	operations = map[string]operation{
		"register_agent":          {handler: handleRegisterAgent, write: true},
		"request_next_task":       {handler: handleRequestNextTask, write: true},
		"report_task_progress":    {handler: handleReportTaskProgress, write: true},
		"report_blocker":          {handler: handleReportBlocker, write: true},
		"log_decision":            {handler: handleLogDecision, write: true},
		"log_artifact":            {handler: handleLogArtifact, write: true},
		"get_task_context":        {handler: handleGetTaskContext},
		"check_task_dependencies": {handler: handleCheckTaskDependencies},
		"list_agents":             {handler: handleListAgents},
		"get_agent_status":        {handler: handleGetAgentStatus},
		"project_status":          {handler: handleProjectStatus},
		"board_health":            {handler: handleBoardHealth},
		"diagnose":                {handler: handleDiagnose},
	}
}

type registerAgentParams struct {
	AgentID      string   `json:"agent_id"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

type registerAgentResult struct {
	Agent             *models.Agent `json:"agent"`
	AlreadyRegistered bool          `json:"already_registered"`
}

func handleRegisterAgent(_ context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p registerAgentParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	agent, already, err := d.core.RegisterAgent(p.AgentID, models.AgentRole(p.Role), p.Capabilities)
	if err != nil {
		return nil, err
	}
	return registerAgentResult{Agent: agent, AlreadyRegistered: already}, nil
}

type agentIDParams struct {
	AgentID string `json:"agent_id"`
}

func handleRequestNextTask(ctx context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p agentIDParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return d.core.RequestNextTask(ctx, p.AgentID)
}

type reportTaskProgressParams struct {
	AgentID  string `json:"agent_id"`
	TaskID   int64  `json:"task_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

func handleReportTaskProgress(ctx context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p reportTaskProgressParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	err := d.core.ReportTaskProgress(ctx, p.AgentID, p.TaskID, progress.ReportStatus(p.Status), p.Progress, p.Message)
	if err != nil {
		return nil, err
	}
	return ackResult{}, nil
}

type ackResult struct {
	Ack bool `json:"ack"`
}

type reportBlockerParams struct {
	AgentID     string `json:"agent_id"`
	TaskID      int64  `json:"task_id"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func handleReportBlocker(ctx context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p reportBlockerParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	suggestions, err := d.core.ReportBlocker(ctx, p.AgentID, p.TaskID, p.Description, p.Severity)
	if err != nil {
		return nil, err
	}
	return struct {
		Suggestions []string `json:"suggestions"`
	}{suggestions}, nil
}

type logDecisionParams struct {
	AgentID string `json:"agent_id"`
	TaskID  int64  `json:"task_id"`
	Text    string `json:"text"`
}

func handleLogDecision(_ context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p logDecisionParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	decision, err := d.core.LogDecision(p.AgentID, p.TaskID, p.Text)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

type logArtifactParams struct {
	AgentID    string `json:"agent_id"`
	TaskID     int64  `json:"task_id"`
	Filename   string `json:"filename"`
	ContentRef string `json:"content_ref"`
	Type       string `json:"type"`
	Location   string `json:"location"`
}

func handleLogArtifact(_ context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p logArtifactParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	location, err := d.core.LogArtifact(p.AgentID, p.TaskID, p.Filename, models.ArtifactType(p.Type), p.Location)
	if err != nil {
		return nil, err
	}
	return struct {
		CanonicalLocation string `json:"canonical_location"`
	}{location}, nil
}

type taskIDParams struct {
	TaskID int64 `json:"task_id"`
}

func handleGetTaskContext(ctx context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p taskIDParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return d.core.GetTaskContext(ctx, p.TaskID)
}

func handleCheckTaskDependencies(_ context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p taskIDParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return d.core.CheckTaskDependencies(p.TaskID)
}

func handleListAgents(_ context.Context, d *Dispatcher, _ json.RawMessage) (interface{}, error) {
	return d.core.ListAgents(), nil
}

func handleGetAgentStatus(_ context.Context, d *Dispatcher, raw json.RawMessage) (interface{}, error) {
	var p agentIDParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	return d.core.GetAgentStatus(p.AgentID)
}

func handleProjectStatus(_ context.Context, d *Dispatcher, _ json.RawMessage) (interface{}, error) {
	return d.core.ProjectStatus(), nil
}

func handleBoardHealth(_ context.Context, d *Dispatcher, _ json.RawMessage) (interface{}, error) {
	return d.core.BoardHealth(), nil
}

func handleDiagnose(_ context.Context, d *Dispatcher, _ json.RawMessage) (interface{}, error) {
	return d.core.Diagnose(), nil
}
