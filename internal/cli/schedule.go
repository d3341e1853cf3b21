package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/fixit3d/internal/logger"
	"github.com/ppiankov/fixit3d/internal/model"
)

var (
	scheduleSpec string
	scheduleNow  bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run incremental crawls on a schedule",
	Long: `Schedule keeps running and starts an incremental crawl on every tick of
a cron expression or descriptor (default: schedule.spec, "@every 12h").
Overlapping runs are skipped.

Example:
  fixit3d schedule --now
  fixit3d schedule --spec "0 */6 * * *"`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleSpec, "spec", "", "cron spec or descriptor (default from config)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately before waiting for the schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	cfg.Crawl.Strategy = "incremental"

	spec := cfg.Schedule.Spec
	if scheduleSpec != "" {
		spec = scheduleSpec
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := newScheduler(spec, func() { scheduledRun(ctx, cfg, log) })
	if err != nil {
		return err
	}

	if scheduleNow {
		scheduledRun(ctx, cfg, log)
	}

	scheduler.Start()
	log.Info("scheduler started", logger.String("spec", spec))
	fmt.Fprintf(os.Stderr, "Scheduled incremental crawl: %s (Ctrl+C to stop)\n", spec)

	<-ctx.Done()

	// Wait for a running crawl to observe cancellation
	<-scheduler.Stop().Done()
	log.Info("scheduler stopped")
	return nil
}

// newScheduler accepts standard 5-field specs and descriptors like @every 12h
func newScheduler(spec string, job func()) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}

// scheduledRun never returns an error: failures are logged and the next
// tick tries again
func scheduledRun(ctx context.Context, cfg *model.Config, log logger.Logger) {
	if ctx.Err() != nil {
		return
	}

	result, err := runOnce(ctx, cfg, log)
	if err != nil {
		log.Error("scheduled crawl failed", logger.Error(err))
		return
	}

	for _, srcErr := range result.SourceErrors {
		log.Warn("source skipped", logger.Error(srcErr))
	}
	log.Info("scheduled crawl finished",
		logger.String("run_id", result.RunID),
		logger.Int("inserted", result.Inserted),
		logger.Int("total", result.Catalog.Total))
}
