package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qreviewer/qrev/internal/backend"
	"github.com/qreviewer/qrev/internal/config"
	"github.com/qreviewer/qrev/internal/hunks"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Backend chain management",
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured backends in fallback order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}
		for i, b := range cfg.Backends {
			name := b.Name
			if name == "" {
				name = b.Kind
			}
			fmt.Fprintf(os.Stdout, "%d. %s (%s)\n", i+1, name, b.Kind)
			switch b.Kind {
			case "process":
				if b.Host != "" {
					fmt.Fprintf(os.Stdout, "   host: %s@%s\n", b.User, b.Host)
				}
				if len(b.Command) > 0 {
					fmt.Fprintf(os.Stdout, "   command: %s\n", strings.Join(b.Command, " "))
				}
			default:
				if b.Endpoint != "" {
					fmt.Fprintf(os.Stdout, "   endpoint: %s\n", b.Endpoint)
				}
				if b.Model != "" {
					fmt.Fprintf(os.Stdout, "   model: %s\n", b.Model)
				}
			}
			fmt.Fprintf(os.Stdout, "   timeout: %s\n", b.Timeout())
		}
		return nil
	},
}

var flagDoctorBackend string

var backendsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a backend is configured and responding",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}

		bc := cfg.Backends[0]
		if flagDoctorBackend != "" {
			found := false
			for _, c := range cfg.Backends {
				if c.Name == flagDoctorBackend || c.Kind == flagDoctorBackend {
					bc = c
					found = true
					break
				}
			}
			if !found {
				fmt.Fprintf(os.Stderr, "Error: no backend named %q\n", flagDoctorBackend)
				exitCode = ExitUsageError
				return nil
			}
		}

		name := bc.Name
		if name == "" {
			name = bc.Kind
		}
		fmt.Fprintf(os.Stdout, "Checking %s...\n", name)

		b, err := backend.New(bc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		probe, err := hunks.Split("@@ -1,1 +1,1 @@\n-x = 1\n+x = 2", "probe.txt", "modified")
		if err != nil || len(probe) == 0 {
			fmt.Fprintf(os.Stderr, "FAIL: building probe hunk: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		_, err = b.Submit(ctx, backend.Request{Hunk: probe[0], MaxTokens: 64})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if backend.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(os.Stdout, "OK: %s is configured and responding\n", name)
		return nil
	},
}

func init() {
	backendsCmd.AddCommand(backendsListCmd)
	backendsCmd.AddCommand(backendsDoctorCmd)
	backendsDoctorCmd.Flags().StringVar(&flagDoctorBackend, "backend", "", "Backend to check (default: primary)")
}
