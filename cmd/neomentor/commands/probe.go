package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"neomentor/internal/media"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Print the duration of media files in seconds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := cliLogger()
		tk := media.New(media.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Logger:      &logger,
		})

		durations := make(map[string]float64, len(args))
		for _, path := range args {
			durations[path] = tk.ProbeDuration(cmd.Context(), path)
		}
		if probeJSON {
			return printJSON(cmd.OutOrStdout(), durations)
		}
		for _, path := range args {
			if d := durations[path]; d > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.3f\n", path, d)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tunknown\n", path)
			}
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "output as JSON")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
