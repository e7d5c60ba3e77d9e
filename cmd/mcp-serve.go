package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/insajin/coworker-shell/internal/logger"
	"github.com/insajin/coworker-shell/internal/mcpserver"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

// mcpServeCmd는 MCP 서버를 시작하는 Cobra 서브커맨드입니다.
var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Start Coworker MCP server (stdio transport)",
	Long: `Coworker MCP 서버를 stdio 트랜스포트로 시작합니다.
MCP 클라이언트가 워커 시작/중지/상태 조회와 도구 호출을 MCP 도구로 사용할 수 있습니다.

사용 예시 (MCP 클라이언트 설정):
  {
    "mcpServers": {
      "coworker": {
        "command": "coworker",
        "args": ["mcp-serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

// runMCPServe는 MCP 서버를 시작합니다. 종료 시 실행 중인 워커를 중지합니다.
func runMCPServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout은 MCP stdio에서 사용하므로 전역 로거도 stderr로 돌립니다.
	logger.SetupWithOutput(cfg.Logging, os.Stderr)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	mcpLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str("component", "mcp-serve").
		Logger()

	mcpLogger.Info().Msg("Coworker MCP 서버를 시작합니다...")

	sh := shell.New(cfg, log.Logger)
	srv := mcpserver.NewServer(sh, mcpLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdio 서버는 stdin이 닫힐 때까지 블로킹되므로 시그널 수신 시 여기서 정리 후 종료합니다.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mcpLogger.Info().Msg("종료 시그널 수신, MCP 서버를 종료합니다")
			shutdownShell(sh)
			os.Exit(0)
		case <-done:
		}
	}()

	mcpLogger.Info().
		Uint16("default_port", sh.DefaultPort()).
		Msg("MCP 서버 준비 완료, stdio 대기 중...")

	defer shutdownShell(sh)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("MCP 서버 실행 실패: %w", err)
	}
	return nil
}
