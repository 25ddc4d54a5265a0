package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/condor/internal/scheduler"
	"github.com/wonny/condor/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 스크리닝 스케줄러를 시작하거나 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  run     - 특정 작업 즉시 실행

등록되는 작업:
- screen_tickers: $SCREEN_SCHEDULE (기본 평일 16:30), $SCREEN_TICKERS 대상

Example:
  go run ./cmd/condor scheduler start
  go run ./cmd/condor scheduler run screen_tickers`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Condor Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, st := range sched.Stats() {
		fmt.Printf("  - %s (%s)\n", st.JobName, st.Schedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 9)
	PrintKeyValue("Duration", result.Duration.String(), 9)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess("Job completed")
	return nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)
	screen := jobs.NewScreenJob(a.runner, a.cfg.Screener.Tickers, a.cfg.Screener.Schedule, a.cfg.Screener.Concurrency, a.log)
	if err := sched.AddJob(screen); err != nil {
		a.Close()
		return nil, nil, err
	}

	return a, sched, nil
}
