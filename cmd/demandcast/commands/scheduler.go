package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/scheduler"
	"github.com/wonny/demandcast/internal/scheduler/jobs"
	"github.com/wonny/demandcast/pkg/config"
	"github.com/wonny/demandcast/pkg/database"
	"github.com/wonny/demandcast/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

이 명령어는:
- 스케줄러 데몬 시작
- 등록된 작업 조회
- 작업 실행 이력 조회

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/demandcast scheduler start
  go run ./cmd/demandcast scheduler run forecast_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- forecast_pipeline: 매일 새벽 3시 (백테스트 갱신 + 가중치 재학습 + 예측 생성)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast Scheduler ===")

	sched, db, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, db, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, db, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// 완료까지 이력을 폴링한다
	fmt.Println("Job started, waiting for completion...")
	for {
		time.Sleep(2 * time.Second)

		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return fmt.Errorf("get job history: %w", err)
		}
		latest := history.Latest()
		if latest == nil {
			continue
		}

		if latest.Success {
			fmt.Printf("\n✅ Job completed in %s\n", latest.Duration)
		} else {
			fmt.Printf("\n❌ Job failed: %s\n", latest.Error)
		}
		return nil
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, db, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			continue
		}

		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Total Runs: %d\n", len(history.Results))
		fmt.Printf("   Success Rate: %.1f%%\n", history.SuccessRate()*100)

		if latest := history.Latest(); latest != nil {
			fmt.Printf("   Last Run: %s\n", latest.StartTime.Format("2006-01-02 15:04:05"))
			fmt.Printf("   Last Duration: %s\n", latest.Duration)
			if !latest.Success {
				fmt.Printf("   Last Error: %s\n", latest.Error)
			}
		}

		fmt.Println()
	}

	return nil
}

func initScheduler() (*scheduler.Scheduler, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		projectRoot = "."
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewForecastJob(cfg, db.Pool, log, projectRoot)); err != nil {
		return nil, nil, fmt.Errorf("register forecast job: %w", err)
	}

	return sched, db, nil
}
