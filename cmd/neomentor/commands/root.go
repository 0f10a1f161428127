package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"neomentor/internal/config"
	"neomentor/internal/infra"
)

var (
	envFiles   []string
	historyDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "neomentor",
	Short: "Build narrated lesson videos from a topic, a face and a voice",
	Long: `neomentor turns a topic into a short lesson video. The script is split
into segments, each segment is narrated in the cloned voice and filmed with
the previous segment's last frame as its starting image, and the segments
are joined into one video.

Provider settings come from the same environment variables as the API and
worker services (.env.local and .env are read when present).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", config.DefaultFiles, "dotenv files to load")
	rootCmd.PersistentFlags().StringVar(&historyDir, "history", defaultHistoryDir(), "run history directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(probeCmd)
}

func loadConfig() (*infra.Config, error) {
	return config.Load(envFiles...)
}

// cliLogger writes human readable lines to stderr so stdout carries only
// command output.
func cliLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".neomentor/history"
	}
	return filepath.Join(home, ".neomentor", "history")
}
