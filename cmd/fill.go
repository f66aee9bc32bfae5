// File: cmd/fill.go
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/autofill"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/gateway"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/profile"
	"github.com/formpilot/formpilot-cli/internal/requestqueue"
)

// newFillCmd creates and configures the `fill` command, a one-shot run of the
// pipeline against a scan snapshot file. Useful for debugging classifications
// and prompts without a browser attached.
func newFillCmd() *cobra.Command {
	fillCmd := &cobra.Command{
		Use:   "fill [snapshot.json]",
		Short: "Processes a scan snapshot file and prints the fill instructions",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			defer observability.Sync()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read snapshot file: %w", err)
			}
			var snapshot schemas.ScanSnapshot
			if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &snapshot); err != nil {
				return fmt.Errorf("failed to parse snapshot file: %w", err)
			}

			var userProfile schemas.UserProfile
			if path := viper.GetString("profile"); path != "" {
				userProfile, err = profile.Load(path)
				if err != nil {
					return fmt.Errorf("failed to load profile: %w", err)
				}
			}

			queue := requestqueue.New(cfg.Queue, logger)
			gw, err := gateway.NewFromConfig(cfg.LLM, queue, logger)
			if err != nil {
				return err
			}
			service := autofill.NewService(gw, cfg.Autofill, logger)

			fields, err := service.Process(cmd.Context(), autofill.Request{
				Fields:         snapshot.Fields,
				Profile:        userProfile,
				JobDescription: snapshot.JobDescription,
				ResumeText:     snapshot.ResumeText,
				KnowledgeBase:  snapshot.KnowledgeBase,
			})
			if err != nil {
				return err
			}

			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(autofill.FillInstructions(fields), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode instructions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	fillCmd.Flags().String("profile", "", "path to the user profile JSON file")
	return fillCmd
}
