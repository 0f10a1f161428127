package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"neomentor/internal/adapter/repo"
	"neomentor/internal/domain"
	"neomentor/internal/history"
	"neomentor/internal/pipeline"
	"neomentor/internal/storage"
	"neomentor/internal/worker"
)

var (
	jobFile string
	flagJob Job
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a lesson video locally",
	Long: `Generate a lesson video on this machine and print the completion report.

Flags override the values of the job file.

Example job file (job.yaml):
  topic: How rainbows form
  time: 15s
  image: ./presenter.png
  audio: ./voice.wav

Examples:
  neomentor run --topic "How rainbows form" --time 15s --audio voice.wav --image presenter.png
  neomentor run -f job.yaml --time 22s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		job := Job{WorkDir: "./generated_media"}
		if jobFile != "" {
			loaded, err := loadJob(jobFile)
			if err != nil {
				return err
			}
			job = job.merge(loaded)
		}
		job = job.merge(flagJob)
		if err := job.validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		report, entry, err := runJob(ctx, job)
		if err != nil {
			return err
		}
		saveHistory(historyDir, entry, cliLogger())
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	runCmd.Flags().StringVarP(&jobFile, "file", "f", "", "job file (YAML or JSON)")
	runCmd.Flags().StringVar(&flagJob.Topic, "topic", "", "lesson topic")
	runCmd.Flags().StringVar(&flagJob.Time, "time", "", "requested length, e.g. 15s")
	runCmd.Flags().StringVar(&flagJob.Image, "image", "", "reference face image")
	runCmd.Flags().StringVar(&flagJob.Audio, "audio", "", "reference voice recording")
	runCmd.Flags().StringVar(&flagJob.WorkDir, "workdir", "", "directory for intermediate and final files")
}

func runJob(ctx context.Context, job Job) (domain.Report, history.Entry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}
	logger := cliLogger()

	req, err := pipeline.FormatRequest(job.Topic, job.Time)
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}
	collab, err := worker.NewCollaborators(ctx, cfg, worker.Keys{Gemini: cfg.GeminiAPIKey, OpenAI: cfg.OpenAIAPIKey}, logger)
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}

	workspace, err := storage.NewWorkspaceStore(job.WorkDir)
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}
	output, err := storage.NewFileStore(filepath.Join(job.WorkDir, "output"))
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}

	runID := uuid.NewString()
	ws, err := pipeline.NewWorkspace(workspace.BasePath(), runID)
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}
	run := &domain.Run{
		ID:               runID,
		Topic:            req.Topic,
		RequestedSeconds: req.Seconds,
		SegmentCount:     req.SegmentCount,
		ClipSeconds:      req.ClipSeconds,
		WorkDir:          ws.Dir,
		AudioPath:        ws.ReferenceAudioPath(),
	}
	if err := collab.Media.NormalizeAudio(ctx, job.Audio, run.AudioPath); err != nil {
		return domain.Report{}, history.Entry{}, fmt.Errorf("voice recording could not be decoded: %w", err)
	}
	if job.Image != "" {
		run.ImagePath = ws.ReferenceImagePath()
		if err := collab.Media.NormalizeImage(ctx, job.Image, run.ImagePath); err != nil {
			return domain.Report{}, history.Entry{}, fmt.Errorf("reference image could not be decoded: %w", err)
		}
	}

	mem := repo.NewMemory()
	if err := mem.Create(ctx, run); err != nil {
		return domain.Report{}, history.Entry{}, err
	}
	claimed, err := mem.ClaimNext(ctx)
	if err != nil {
		return domain.Report{}, history.Entry{}, err
	}

	logger.Info().Str("run_id", runID).Int("segments", req.SegmentCount).Str("workdir", ws.Dir).Msg("run started")
	w := &worker.Worker{
		Runs:      mem,
		Logs:      mem,
		Artifacts: mem,
		Uploads:   output,
		Workspace: workspace,
		Publisher: progressPrinter{logger: logger},
		Pipeline:  collab.Pipeline,
		Logger:    logger,
		RunLogger: func(w io.Writer) zerolog.Logger {
			return logger.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, w))
		},
	}
	report := w.Process(ctx, claimed)

	finished, err := mem.Get(ctx, runID)
	if err != nil {
		return report, history.Entry{}, err
	}
	if finished.FinalKey != "" {
		if p, err := output.Path(finished.FinalKey); err == nil {
			report.FinalVideo = p
		}
	}
	return report, history.Entry{
		RunID:          runID,
		Topic:          req.Topic,
		Status:         report.Status,
		Message:        report.Message,
		FinalVideo:     report.FinalVideo,
		SegmentsMerged: report.SegmentsMerged,
		SegmentCount:   req.SegmentCount,
	}, nil
}

// saveHistory records e in the history at dir and logs a warning when the
// history cannot be written.
func saveHistory(dir string, e history.Entry, logger zerolog.Logger) bool {
	store, err := history.Open(dir)
	if err == nil {
		err = store.Record(e)
		if cerr := store.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		logger.Warn().Err(err).Str("history", dir).Msg("run not added to history")
		return false
	}
	return true
}

// progressPrinter logs progress events. Log events are skipped since the
// run logger already prints them.
type progressPrinter struct {
	logger zerolog.Logger
}

func (p progressPrinter) Publish(_ context.Context, ev domain.Event) error {
	if ev.Type != domain.EventProgress {
		return nil
	}
	p.logger.Info().Int("progress", ev.Progress).Str("stage", ev.Stage).Msg(ev.Message)
	return nil
}
