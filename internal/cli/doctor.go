package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/doctor"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration",
	Long:  "Check the configuration and report every error and warning found.",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "output format: human or json")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()
	if configPath != "" {
		read, err := config.Read(configPath)
		if err != nil {
			return err
		}
		cfg = read
	}

	r := doctor.New(cfg).Validate()
	out := cmd.OutOrStdout()
	switch doctorFormat {
	case "json":
		s, err := doctor.FormatJSON(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
	case "human":
		fmt.Fprint(out, doctor.FormatHuman(r))
	default:
		return fmt.Errorf("unknown format %q (want human or json)", doctorFormat)
	}

	if !r.Valid {
		return errors.New("configuration invalid")
	}
	return nil
}
