package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantsnap/internal/api"
	"github.com/wonny/quantsnap/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /api/universes           - 유니버스 목록
  GET  /api/rankings/{universe} - 최신 랭킹 (?limit=&factors=)
  POST /api/refresh/{universe}  - 랭킹 재계산 (비동기)
  GET  /api/stock/{ticker}      - 종목 점수/이력 (?universe=&days=)
  GET  /api/quality/{universe}  - 데이터 품질 스냅샷 (DB 필요)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiScheduler bool
)

const shutdownGrace = 30 * time.Second

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값 PORT)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "스케줄러를 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	h := api.Handlers{
		Rankings: handlers.NewRankingHandler(a.orchestrator, a.cfg.Ranking.RunTimeout, a.log),
		Stocks:   handlers.NewStockHandler(a.orchestrator, a.log),
	}
	if a.qualityRepo != nil {
		h.Data = handlers.NewDataHandler(a.qualityRepo, a.log)
	}

	if apiScheduler {
		sched, err := buildScheduler(a, schedulerCollectCron)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))

	a.log.WithFields(map[string]interface{}{
		"port":      a.cfg.Port,
		"env":       a.cfg.Env,
		"universes": len(a.orchestrator.Universes()),
		"scheduler": apiScheduler,
	}).Info("API server started")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	if err := server.Run(ctx, shutdownGrace); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
