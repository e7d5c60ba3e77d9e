package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/rs/zerolog/log"
)

// stopSettle은 종료 대기가 중단된 뒤 프로세스 종료를 한 번 더 기다리는 시간입니다.
const stopSettle = 200 * time.Millisecond

// Options는 Supervisor 동작 설정입니다.
type Options struct {
	// Launch는 워커 실행 명령입니다.
	Launch LaunchSpec
	// Host는 준비 상태 확인에 사용할 워커 호스트입니다.
	Host string
	// StopGrace는 종료 요청 후 강제 종료까지의 유예 시간입니다.
	StopGrace time.Duration
	// ReadyTimeout이 0보다 크면 Start가 헬스 엔드포인트 응답을 기다립니다.
	ReadyTimeout time.Duration
	// HealthPath는 준비 상태 확인 경로입니다.
	HealthPath string
	// HTTPClient는 준비 상태 확인에 사용합니다. nil이면 기본 클라이언트를 씁니다.
	HTTPClient *http.Client
	// Metrics가 nil이 아니면 라이프사이클 카운터를 기록합니다.
	Metrics *metrics.Metrics
}

// Supervisor는 워커 프로세스의 시작/중지/상태 조회를 담당합니다.
// 상태 락은 레코드를 읽고 쓸 때만 잡고, spawn/종료 대기/HTTP 동안에는 놓습니다.
type Supervisor struct {
	state *ServerState
	opts  Options
}

// NewSupervisor는 주입된 ServerState를 관리하는 Supervisor를 생성합니다.
func NewSupervisor(state *ServerState, opts Options) *Supervisor {
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.HealthPath == "" {
		opts.HealthPath = "/health"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Second}
	}
	return &Supervisor{state: state, opts: opts}
}

// Start는 워커를 실행하고 요청된 포트를 기록합니다.
// 이미 실행 중이거나 시작이 진행 중이면 AlreadyRunning을 반환합니다.
// 워커가 실제로 포트를 열었는지는 ReadyTimeout이 설정된 경우에만 확인합니다.
func (s *Supervisor) Start(ctx context.Context, requestedPort uint16) (string, error) {
	if requestedPort == 0 {
		return "", NewErrorf(KindLaunchFailed, "port must be non-zero")
	}

	s.state.mu.Lock()
	if s.state.running || s.state.starting {
		s.state.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	s.state.starting = true
	s.state.mu.Unlock()

	handle, err := spawn(s.opts.Launch)
	if err == nil && s.opts.ReadyTimeout > 0 {
		if readyErr := s.waitReady(ctx, handle, requestedPort); readyErr != nil {
			if termErr := handle.Terminate(context.Background(), s.opts.StopGrace); termErr != nil {
				log.Error().Err(termErr).Int("pid", handle.PID).Msg("[worker] 준비 실패한 프로세스 정리 실패")
			}
			err = readyErr
		}
	}

	s.state.mu.Lock()
	s.state.starting = false
	if err != nil {
		s.state.mu.Unlock()
		s.count(func(m *metrics.Metrics) { m.LaunchFailures.Add(1) })
		log.Error().Err(err).Str("command", s.opts.Launch.String()).Msg("[worker] 워커 시작 실패")
		return "", NewError(KindLaunchFailed, err)
	}
	s.state.running = true
	s.state.port = requestedPort
	s.state.handle = handle
	s.state.mu.Unlock()

	s.count(func(m *metrics.Metrics) { m.WorkerStarts.Add(1) })
	log.Info().
		Int("pid", handle.PID).
		Uint16("port", requestedPort).
		Msg("[worker] 워커 시작 완료")

	go s.watch(handle)

	return fmt.Sprintf("API server started on port %d", requestedPort), nil
}

// Stop은 기록된 프로세스에 종료 요청을 보내고 상태를 초기화합니다.
// 종료 요청이 실패하면 TerminationFailed를 반환하고 상태는 실행 중으로 남깁니다.
func (s *Supervisor) Stop(ctx context.Context) (string, error) {
	s.state.mu.Lock()
	if !s.state.running || s.state.stopping {
		s.state.mu.Unlock()
		return "", ErrNotRunning
	}
	s.state.stopping = true
	handle := s.state.handle
	s.state.mu.Unlock()

	termErr := handle.Terminate(ctx, s.opts.StopGrace)
	if termErr != nil && handle.waitExit(stopSettle) {
		// 대기가 중단되었어도 종료 신호를 받은 프로세스가 끝났으면 중지 완료입니다.
		log.Debug().Err(termErr).Int("pid", handle.PID).Msg("[worker] 종료 대기 중단 후 프로세스 종료 확인")
		termErr = nil
	}

	s.state.mu.Lock()
	s.state.stopping = false
	// 락을 놓은 뒤의 종료는 watch가 처리합니다.
	if termErr != nil && !handle.Exited() {
		s.state.mu.Unlock()
		s.count(func(m *metrics.Metrics) { m.TerminationFailures.Add(1) })
		log.Error().Err(termErr).Int("pid", handle.PID).Msg("[worker] 워커 종료 실패")
		return "", NewError(KindTerminationFailed, termErr)
	}
	s.state.running = false
	s.state.handle = nil
	s.state.mu.Unlock()

	s.count(func(m *metrics.Metrics) { m.WorkerStops.Add(1) })
	log.Info().Int("pid", handle.PID).Msg("[worker] 워커 중지 완료")

	return "API server stopped", nil
}

// Shutdown은 호스트 종료 시 워커가 실행 중이면 중지합니다.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if _, err := s.Stop(ctx); err != nil && KindOf(err) != KindNotRunning {
		return err
	}
	return nil
}

// Status는 워커 실행 여부를 반환합니다.
func (s *Supervisor) Status() bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.running
}

// Port는 기록된 포트를 반환합니다. 실행 중이 아닐 때의 값은 의미가 없습니다.
func (s *Supervisor) Port() uint16 {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.port
}

// Snapshot은 running/port/PID를 한 번의 락 구간에서 읽어 반환합니다.
func (s *Supervisor) Snapshot() Snapshot {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.snapshotLocked()
}

// watch는 프로세스 비정상 종료 시 상태를 초기화합니다.
// 이미 다른 핸들로 교체되었거나 Stop이 진행 중이면 아무것도 하지 않습니다.
func (s *Supervisor) watch(handle *ProcessHandle) {
	<-handle.Done()

	s.state.mu.Lock()
	if s.state.handle != handle || !s.state.running || s.state.stopping {
		s.state.mu.Unlock()
		return
	}
	s.state.running = false
	s.state.handle = nil
	s.state.mu.Unlock()

	s.count(func(m *metrics.Metrics) { m.AbnormalExits.Add(1) })
	log.Warn().
		Int("pid", handle.PID).
		AnErr("exit", handle.ExitErr()).
		Msg("[worker] 워커가 예기치 않게 종료됨")
}

// count는 Metrics가 설정된 경우에만 fn을 호출합니다.
func (s *Supervisor) count(fn func(m *metrics.Metrics)) {
	if s.opts.Metrics != nil {
		fn(s.opts.Metrics)
	}
}
