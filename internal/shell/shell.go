// Package shell은 워커 Supervisor와 Bridge를 묶어 UI 어댑터(IPC, MCP, TUI)에
// 노출하는 경계 연산을 제공합니다.
package shell

import (
	"context"
	"encoding/json"

	"github.com/insajin/coworker-shell/internal/bridge"
	"github.com/insajin/coworker-shell/internal/config"
	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/insajin/coworker-shell/internal/worker"
	"github.com/rs/zerolog"
)

// Operations는 UI 레이어가 호출하는 경계 연산입니다.
type Operations interface {
	// Start는 워커를 port로 시작합니다.
	Start(ctx context.Context, port uint16) (string, error)
	// Stop은 실행 중인 워커를 중지합니다.
	Stop(ctx context.Context) (string, error)
	// Status는 워커 실행 여부입니다.
	Status() bool
	// Port는 기록된 워커 포트입니다.
	Port() uint16
	// Invoke는 도구 호출을 워커에 전달합니다.
	Invoke(ctx context.Context, name string, args interface{}) (json.RawMessage, error)
	// Snapshot은 PID와 가동 시간을 포함한 상태입니다.
	Snapshot() worker.Snapshot
	// Stats는 라이프사이클/호출 카운터입니다.
	Stats() metrics.Snapshot
	// DefaultPort는 포트 미지정 시 사용할 포트입니다.
	DefaultPort() uint16
}

// Shell은 Operations의 기본 구현입니다.
type Shell struct {
	supervisor  *worker.Supervisor
	bridge      *bridge.Bridge
	metrics     *metrics.Metrics
	defaultPort uint16
	logger      zerolog.Logger
}

var _ Operations = (*Shell)(nil)

// New는 설정으로 ServerState, Supervisor, Bridge를 구성합니다.
// 애플리케이션 수명 동안 한 번만 호출해야 합니다.
func New(cfg *config.Config, logger zerolog.Logger) *Shell {
	m := metrics.NewMetrics()
	defaultPort := cfg.Worker.GetDefaultPort()

	sup := worker.NewSupervisor(worker.NewServerState(defaultPort), worker.Options{
		Launch: worker.LaunchSpec{
			Command: cfg.Worker.GetCommand(),
			Args:    cfg.Worker.GetArgs(),
			Dir:     cfg.Worker.Dir,
		},
		Host:         cfg.Worker.GetHost(),
		StopGrace:    cfg.Worker.GetStopGrace(),
		ReadyTimeout: cfg.Worker.GetReadyTimeout(),
		HealthPath:   cfg.Worker.GetHealthPath(),
		Metrics:      m,
	})

	br := bridge.New(sup, bridge.Options{
		Host:    cfg.Worker.GetHost(),
		Timeout: cfg.Bridge.GetTimeout(),
		Retries: cfg.Bridge.Retries,
		Metrics: m,
	}, logger)

	return &Shell{
		supervisor:  sup,
		bridge:      br,
		metrics:     m,
		defaultPort: defaultPort,
		logger:      logger.With().Str("component", "shell").Logger(),
	}
}

// Start는 워커를 시작합니다.
func (s *Shell) Start(ctx context.Context, port uint16) (string, error) {
	s.logger.Info().Uint16("port", port).Msg("워커 시작 요청")
	return s.supervisor.Start(ctx, port)
}

// Stop은 워커를 중지합니다.
func (s *Shell) Stop(ctx context.Context) (string, error) {
	s.logger.Info().Msg("워커 중지 요청")
	return s.supervisor.Stop(ctx)
}

// Status는 워커 실행 여부를 반환합니다.
func (s *Shell) Status() bool {
	return s.supervisor.Status()
}

// Port는 기록된 포트를 반환합니다.
func (s *Shell) Port() uint16 {
	return s.supervisor.Port()
}

// Invoke는 도구 호출을 Bridge로 전달합니다.
func (s *Shell) Invoke(ctx context.Context, name string, args interface{}) (json.RawMessage, error) {
	return s.bridge.Invoke(ctx, name, args)
}

// Snapshot은 워커 상태 스냅샷을 반환합니다.
func (s *Shell) Snapshot() worker.Snapshot {
	return s.supervisor.Snapshot()
}

// Stats는 메트릭 스냅샷을 반환합니다.
func (s *Shell) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// DefaultPort는 설정된 기본 포트를 반환합니다.
func (s *Shell) DefaultPort() uint16 {
	return s.defaultPort
}

// Supervisor는 헬스 모니터 구성을 위해 내부 Supervisor를 반환합니다.
func (s *Shell) Supervisor() *worker.Supervisor {
	return s.supervisor
}

// Shutdown은 호스트 종료 시 워커를 정리합니다.
func (s *Shell) Shutdown(ctx context.Context) error {
	if err := s.supervisor.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("종료 중 워커 정리 실패")
		return err
	}
	return nil
}
