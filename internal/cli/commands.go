package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwwelbor/marcus/internal/diagnostics"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(listAgentsCmd, agentStatusCmd, projectStatusCmd, boardHealthCmd, diagnoseCmd)
}

var listAgentsCmd = &cobra.Command{
	Use:   "list-agents",
	Short: "List every registered agent and its current assignment",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore(context.Background())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		agents := c.ListAgents()
		if Global.JSON {
			return printJSON(agents)
		}

		if len(agents) == 0 {
			pterm.Info.Println("No agents registered")
			return nil
		}

		rows := pterm.TableData{{"AGENT", "ROLE", "CURRENT TASK", "LAST HEARTBEAT"}}
		for _, a := range agents {
			task := "idle"
			if a.CurrentTaskID != nil {
				task = fmt.Sprintf("%d", *a.CurrentTaskID)
			}
			rows = append(rows, []string{a.ID, string(a.Role), task, a.LastHeartbeat.Format("2006-01-02 15:04:05")})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var agentStatusCmd = &cobra.Command{
	Use:   "agent-status [agent-id]",
	Short: "Show one agent's registration, assignment, and performance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore(context.Background())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		agent, err := c.GetAgentStatus(args[0])
		if err != nil {
			return err
		}
		if Global.JSON {
			return printJSON(agent)
		}

		pterm.DefaultSection.Printf("Agent: %s", agent.ID)
		task := "idle"
		if agent.CurrentTaskID != nil {
			task = fmt.Sprintf("%d", *agent.CurrentTaskID)
		}
		info := pterm.TableData{
			{"Role", string(agent.Role)},
			{"Current task", task},
			{"Registered at", agent.RegisteredAt.Format("2006-01-02 15:04:05")},
			{"Last heartbeat", agent.LastHeartbeat.Format("2006-01-02 15:04:05")},
		}
		return pterm.DefaultTable.WithData(info).Render()
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "project-status",
	Short: "Show aggregate task counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore(context.Background())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		report := c.ProjectStatus()
		if Global.JSON {
			return printJSON(report)
		}

		pterm.DefaultSection.Println("Project status")
		rows := pterm.TableData{{"STATUS", "COUNT"}}
		for status, count := range report.ByStatus {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		pterm.Info.Printf("Total tasks: %d, agents registered: %d\n", report.Total, report.AgentCount)
		return nil
	},
}

var boardHealthCmd = &cobra.Command{
	Use:   "board-health",
	Short: "Show project status plus a diagnostics pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore(context.Background())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		report := c.BoardHealth()
		if Global.JSON {
			return printJSON(report)
		}

		pterm.DefaultSection.Println("Board health")
		pterm.Info.Printf("Total tasks: %d, agents registered: %d\n", report.Total, report.AgentCount)
		return renderIssues(report.Issues)
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the full diagnostics pass on demand",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCore(context.Background())
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		report := c.Diagnose()
		if Global.JSON {
			return printJSON(report)
		}
		return renderIssues(report.Issues)
	},
}

func renderIssues(issues []diagnostics.Issue) error {
	if len(issues) == 0 {
		pterm.Success.Println("No issues found")
		return nil
	}
	rows := pterm.TableData{{"SEVERITY", "KIND", "AFFECTED TASKS", "RECOMMENDATION"}}
	for _, issue := range issues {
		rows = append(rows, []string{
			string(issue.Severity),
			issue.Kind,
			fmt.Sprintf("%v", issue.AffectedTasks),
			issue.Recommendation,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
