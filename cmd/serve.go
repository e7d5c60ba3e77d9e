package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insajin/coworker-shell/internal/branding"
	"github.com/insajin/coworker-shell/internal/ipc"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/insajin/coworker-shell/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// shutdownTimeout은 종료 시 워커 정리에 허용하는 최대 시간입니다.
const shutdownTimeout = 15 * time.Second

var (
	serveStart          bool
	serveHealthInterval time.Duration
)

// serveCmd는 데스크톱 UI용 IPC 서버를 실행합니다.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "UI 레이어용 로컬 IPC 서버를 시작합니다",
	Long: `UI 레이어가 연결할 로컬 WebSocket IPC 서버를 시작합니다.

엔드포인트: ws://<ipc.listen_addr>/ipc

지원하는 요청(op):
  start_api_server     {"port": 8000}
  stop_api_server
  check_api_server
  get_api_server_port
  test_tool            {"name": "add", "args": {"a": 1, "b": 2}}
  get_status

연결된 클라이언트에는 주기적으로 "status" 이벤트가 전송됩니다.
종료 시그널을 받으면 실행 중인 워커를 중지하고 종료합니다.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveStart, "start", false, "시작 시 기본 포트로 워커를 실행합니다")
	serveCmd.Flags().DurationVar(&serveHealthInterval, "health-interval", 5*time.Second, "상태 이벤트 전송 간격")
}

// runServe는 IPC 서버를 실행하고 시그널을 받으면 워커를 정리합니다.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(branding.StartupBanner())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := shell.New(cfg, log.Logger)
	defer shutdownShell(sh)

	srv := ipc.NewServer(sh, cfg.IPC.ListenAddr, log.Logger)

	monitor := worker.NewHealthMonitor(sh.Supervisor(), serveHealthInterval)
	monitor.Start(ctx, func(report worker.HealthReport) {
		if srv.ClientCount() == 0 {
			return
		}
		srv.Broadcast(ipc.EventStatus, report)
	})
	defer monitor.Stop()

	if serveStart {
		msg, err := sh.Start(ctx, sh.DefaultPort())
		if err != nil {
			return err
		}
		log.Info().Msg("[serve] " + msg)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("IPC 서버 실행 실패: %w", err)
	}

	log.Info().Msg("[serve] 종료 시그널 수신, 정리 중")
	return nil
}

// shutdownShell은 실행 중인 워커를 제한 시간 안에 중지합니다.
func shutdownShell(sh *shell.Shell) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sh.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("[shell] 종료 중 워커 정리 실패")
	}
}
