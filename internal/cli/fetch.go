package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qreviewer/qrev/internal/github"
)

var (
	flagFetchPR  string
	flagFetchOut string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a pull request diff as a reviewable document",
	Long:  "Fetch the changed files of a GitHub pull request and write them as a diff document JSON, suitable for qrev review --inp.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFetchPR == "" {
			fmt.Fprintln(os.Stderr, "Error: --pr is required")
			exitCode = ExitUsageError
			return nil
		}

		owner, repo, number, err := github.ParsePRURL(flagFetchPR)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		client, err := github.NewClient()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		fmt.Fprintf(os.Stderr, "Fetching PR #%d from %s/%s...\n", number, owner, repo)
		doc, err := client.FetchPRDiff(cmd.Context(), owner, repo, number)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if err := writeJSON(doc, flagFetchOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintf(os.Stderr, "Fetched %d changed files.\n", len(doc.Files))
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&flagFetchPR, "pr", "", "GitHub pull request URL")
	fetchCmd.Flags().StringVar(&flagFetchOut, "out", "", "Output file path (default: stdout)")
}
