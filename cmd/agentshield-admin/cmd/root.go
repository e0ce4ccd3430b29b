// Package cmd implements the agentshield-admin CLI commands.
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version string

	// Global flags
	flagAPIURL  string
	flagActor   string
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agentshield-admin",
	Short: "AgentShield administration CLI",
	Long: `agentshield-admin is a kubectl-style CLI for operating the AgentShield API.

It provides commands to inspect recommendations and their audit trails,
check the production-readiness gate, and trigger dynamic analysis runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Override API URL (env: AGENTSHIELD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Actor recorded in the audit trail (env: AGENTSHIELD_ACTOR)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, wide, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(startFixCmd)
	rootCmd.AddCommand(completeFixCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(triggerAnalysisCmd)
}

func initConfig() {
	if flagAPIURL == "" {
		flagAPIURL = os.Getenv("AGENTSHIELD_API_URL")
	}
	if flagAPIURL == "" {
		flagAPIURL = "http://localhost:8080"
	}
	if flagActor == "" {
		flagActor = os.Getenv("AGENTSHIELD_ACTOR")
	}
}

func mustClient() *Client {
	return NewClient(flagAPIURL, flagActor, flagVerbose)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentshield-admin version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
