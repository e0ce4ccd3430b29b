package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Operation command flags.
var (
	flagDismissType string
	flagReason      string
	flagFixNotes    string
	flagFixMethod   string
)

func init() {
	dismissCmd.Flags().StringVar(&flagDismissType, "type", "dismissed", "Dismissal kind: dismissed or ignored")
	dismissCmd.Flags().StringVar(&flagReason, "reason", "", "Reason for dismissal (required)")
	_ = dismissCmd.MarkFlagRequired("reason")

	completeFixCmd.Flags().StringVar(&flagFixNotes, "notes", "", "Notes describing the fix")
	completeFixCmd.Flags().StringVar(&flagFixMethod, "method", "", "How the fix was applied")
}

func runTransition(path string, body any) error {
	data, err := mustClient().Post(path, body)
	if err != nil {
		return err
	}

	var rec recommendationItem
	if err := unmarshal(data, &rec); err != nil {
		return err
	}

	fmt.Printf("%s  %s -> %s\n", rec.ID, rec.Severity, rec.Status)
	return nil
}

var startFixCmd = &cobra.Command{
	Use:   "start-fix <recommendation-id>",
	Short: "Mark a recommendation as being fixed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition("/api/v1/recommendations/"+args[0]+"/start-fix", nil)
	},
}

var completeFixCmd = &cobra.Command{
	Use:   "complete-fix <recommendation-id>",
	Short: "Mark a recommendation as fixed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"fix_notes":  flagFixNotes,
			"fix_method": flagFixMethod,
		}
		return runTransition("/api/v1/recommendations/"+args[0]+"/complete-fix", body)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <recommendation-id>",
	Short: "Verify a fixed recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition("/api/v1/recommendations/"+args[0]+"/verify", nil)
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <recommendation-id>",
	Short: "Dismiss or ignore a recommendation with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"dismiss_type": flagDismissType,
			"reason":       flagReason,
		}
		return runTransition("/api/v1/recommendations/"+args[0]+"/dismiss", body)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <recommendation-id>",
	Short: "Reopen a resolved recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition("/api/v1/recommendations/"+args[0]+"/reopen", nil)
	},
}

var triggerAnalysisCmd = &cobra.Command{
	Use:   "trigger-analysis <agent-id>",
	Short: "Trigger a dynamic analysis run for an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mustClient().Post("/api/v1/agents/"+args[0]+"/analysis/trigger", nil)
		if err != nil {
			return err
		}

		var resp struct {
			Outcome string         `json:"outcome"`
			Status  map[string]any `json:"status"`
		}
		if err := unmarshal(data, &resp); err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(resp)
		case outputYAML:
			printYAML(resp)
		default:
			fmt.Printf("Outcome: %s\n", resp.Outcome)
			if resp.Status != nil {
				printJSON(resp.Status)
			}
		}
		return nil
	},
}
