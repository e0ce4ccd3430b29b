package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// Get command flags.
var (
	flagStatus   string
	flagSeverity string
	flagBlocking bool
	flagSearch   string
	flagPage     int
	flagPerPage  int
	flagTopN     int
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Display one or many resources",
}

func init() {
	getCmd.AddCommand(getRecommendationsCmd)
	getCmd.AddCommand(getRecommendationCmd)
	getCmd.AddCommand(getGateCmd)
	getCmd.AddCommand(getAuditTrailCmd)
	getCmd.AddCommand(getAnalysisStatusCmd)

	getRecommendationsCmd.Flags().StringVar(&flagStatus, "status", "", "Filter by status (comma-separated)")
	getRecommendationsCmd.Flags().StringVar(&flagSeverity, "source", "", "Filter by source type (comma-separated)")
	getRecommendationsCmd.Flags().BoolVar(&flagBlocking, "blocking", false, "Show only gate-blocking recommendations")
	getRecommendationsCmd.Flags().StringVar(&flagSearch, "search", "", "Case-insensitive title/description search")
	getRecommendationsCmd.Flags().IntVar(&flagPage, "page", 1, "Page number")
	getRecommendationsCmd.Flags().IntVar(&flagPerPage, "per-page", 20, "Results per page")

	getGateCmd.Flags().IntVar(&flagTopN, "top-n", 0, "Limit blocking items shown (0 = all)")
}

type recommendationItem struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflow_id"`
	SourceType   string    `json:"source_type"`
	Severity     string    `json:"severity"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	FixNotes     string    `json:"fix_notes"`
	FixMethod    string    `json:"fix_method"`
	GateBlocking bool      `json:"gate_blocking"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type recommendationList struct {
	Data       []recommendationItem `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
}

var getRecommendationsCmd = &cobra.Command{
	Use:   "recommendations <workflow-id>",
	Short: "List recommendations for a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if flagStatus != "" {
			q.Set("status", flagStatus)
		}
		if flagSeverity != "" {
			q.Set("source", flagSeverity)
		}
		if flagBlocking {
			q.Set("blocking", "true")
		}
		if flagSearch != "" {
			q.Set("q", flagSearch)
		}
		q.Set("page", fmt.Sprintf("%d", flagPage))
		q.Set("per_page", fmt.Sprintf("%d", flagPerPage))

		data, err := mustClient().Get("/api/v1/workflows/" + args[0] + "/recommendations?" + q.Encode())
		if err != nil {
			return err
		}

		var list recommendationList
		if err := unmarshal(data, &list); err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(list)
		case outputYAML:
			printYAML(list)
		default:
			t := newTable("ID", "SEVERITY", "CATEGORY", "STATUS", "BLOCKING", "TITLE")
			for _, rec := range list.Data {
				t.AddRow(rec.ID, rec.Severity, rec.Category, rec.Status, boolToStr(rec.GateBlocking), truncate(rec.Title, 60))
			}
			t.Flush()
			printPagination(list.Total, list.Page, list.PerPage, list.TotalPages)
		}
		return nil
	},
}

var getRecommendationCmd = &cobra.Command{
	Use:   "recommendation <id>",
	Short: "Show a single recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Get("/api/v1/recommendations/" + args[0])
		if err != nil {
			return err
		}

		var rec recommendationItem
		if err := unmarshal(data, &rec); err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(rec)
		case outputYAML:
			printYAML(rec)
		default:
			fmt.Printf("ID:          %s\n", rec.ID)
			fmt.Printf("Workflow:    %s\n", rec.WorkflowID)
			fmt.Printf("Source:      %s\n", rec.SourceType)
			fmt.Printf("Severity:    %s\n", rec.Severity)
			fmt.Printf("Category:    %s\n", rec.Category)
			fmt.Printf("Status:      %s\n", rec.Status)
			fmt.Printf("Blocking:    %s\n", boolToStr(rec.GateBlocking))
			fmt.Printf("Title:       %s\n", rec.Title)
			if rec.Description != "" {
				fmt.Printf("Description: %s\n", rec.Description)
			}
			if rec.FixNotes != "" {
				fmt.Printf("Fix notes:   %s\n", rec.FixNotes)
			}
			if rec.FixMethod != "" {
				fmt.Printf("Fix method:  %s\n", rec.FixMethod)
			}
			fmt.Printf("Created:     %s\n", rec.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated:     %s\n", rec.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

type gateStatus struct {
	WorkflowID    string `json:"workflow_id"`
	GateStatus    string `json:"gate_status"`
	BlockingCount int    `json:"blocking_count"`
	BlockingItems []struct {
		RecommendationID string `json:"recommendation_id"`
		Severity         string `json:"severity"`
		Title            string `json:"title"`
	} `json:"blocking_items"`
}

var getGateCmd = &cobra.Command{
	Use:   "gate <workflow-id>",
	Short: "Show the production-readiness gate for a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/workflows/" + args[0] + "/gate"
		if flagTopN > 0 {
			path += fmt.Sprintf("?top_n=%d", flagTopN)
		}

		data, err := mustClient().Get(path)
		if err != nil {
			return err
		}

		var gate gateStatus
		if err := unmarshal(data, &gate); err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(gate)
		case outputYAML:
			printYAML(gate)
		default:
			fmt.Printf("Workflow: %s\n", gate.WorkflowID)
			fmt.Printf("Gate:     %s\n", gate.GateStatus)
			fmt.Printf("Blocking: %d\n", gate.BlockingCount)
			if len(gate.BlockingItems) > 0 {
				fmt.Println()
				t := newTable("RECOMMENDATION", "SEVERITY", "TITLE")
				for _, item := range gate.BlockingItems {
					t.AddRow(item.RecommendationID, item.Severity, truncate(item.Title, 60))
				}
				t.Flush()
			}
		}
		return nil
	},
}

type auditTrail struct {
	RecommendationID string `json:"recommendation_id"`
	Entries          []struct {
		ID          string `json:"id"`
		Action      string `json:"action"`
		ActionType  string `json:"action_type"`
		Reason      string `json:"reason"`
		PerformedBy string `json:"performed_by"`
		PerformedAt string `json:"performed_at"`
	} `json:"entries"`
	Total int `json:"total"`
}

var getAuditTrailCmd = &cobra.Command{
	Use:   "audit-trail <recommendation-id>",
	Short: "Show the audit trail for a recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Get("/api/v1/recommendations/" + args[0] + "/audit-trail")
		if err != nil {
			return err
		}

		var trail auditTrail
		if err := unmarshal(data, &trail); err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(trail)
		case outputYAML:
			printYAML(trail)
		default:
			t := newTable("PERFORMED AT", "ACTION", "TYPE", "BY", "REASON")
			for _, e := range trail.Entries {
				t.AddRow(shortTime(e.PerformedAt), e.Action, e.ActionType, e.PerformedBy, quoteReason(e.Reason, 50))
			}
			t.Flush()
			fmt.Printf("\n%d entries\n", trail.Total)
		}
		return nil
	},
}

var getAnalysisStatusCmd = &cobra.Command{
	Use:   "analysis-status <agent-id>",
	Short: "Show the dynamic analysis status for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Get("/api/v1/agents/" + args[0] + "/analysis/status")
		if err != nil {
			return err
		}

		var status map[string]any
		if err := unmarshal(data, &status); err != nil {
			return err
		}

		switch flagOutput {
		case outputYAML:
			printYAML(status)
		default:
			printJSON(status)
		}
		return nil
	},
}
