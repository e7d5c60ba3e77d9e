// Package worker는 백그라운드 워커 프로세스의 라이프사이클을 관리합니다.
// 단일 ServerState를 Supervisor가 소유하며, 모든 변경은 Supervisor를 거칩니다.
package worker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultStopGrace는 종료 요청 후 강제 종료까지의 기본 유예 시간입니다.
const DefaultStopGrace = 5 * time.Second

// killWait는 강제 종료 후 프로세스 회수를 기다리는 최대 시간입니다.
const killWait = 2 * time.Second

// LaunchSpec은 워커 실행 명령입니다.
type LaunchSpec struct {
	Command string
	Args    []string
	Dir     string
}

// String은 로그용 명령 문자열을 반환합니다.
func (s LaunchSpec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}

// ProcessHandle은 실행된 워커 프로세스 하나를 나타냅니다.
type ProcessHandle struct {
	Spec      LaunchSpec
	PID       int
	StartedAt time.Time

	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error

	// termMu는 동시 종료 요청을 직렬화합니다.
	termMu sync.Mutex
}

// spawn은 워커 프로세스를 시작하고 종료 감시 고루틴을 띄웁니다.
// 프로세스 수명은 호출 컨텍스트와 무관하며 Terminate로만 끝납니다.
func spawn(spec LaunchSpec) (*ProcessHandle, error) {
	cmdPath, err := exec.LookPath(spec.Command)
	if err != nil {
		return nil, fmt.Errorf("명령어 %q를 찾을 수 없음: %w", spec.Command, err)
	}

	cmd := exec.Command(cmdPath, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.SysProcAttr = setSysProcAttr()
	cmd.Stdout = &logWriter{stream: "stdout"}
	cmd.Stderr = &logWriter{stream: "stderr"}

	log.Info().
		Str("command", spec.Command).
		Strs("args", spec.Args).
		Msg("[worker] 프로세스 시작")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("프로세스 시작 실패: %w", err)
	}

	h := &ProcessHandle{
		Spec:      spec,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	return h, nil
}

// Done은 프로세스가 종료되면 닫히는 채널을 반환합니다.
func (h *ProcessHandle) Done() <-chan struct{} {
	return h.done
}

// Exited는 프로세스가 이미 종료되었는지 확인합니다.
func (h *ProcessHandle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitErr는 종료된 프로세스의 Wait 결과를 반환합니다. 실행 중이면 nil입니다.
func (h *ProcessHandle) ExitErr() error {
	if !h.Exited() {
		return nil
	}
	return h.waitErr
}

// IsRunning은 프로세스가 살아 있는지 확인합니다.
func (h *ProcessHandle) IsRunning() bool {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return false
	}
	if h.Exited() {
		return false
	}
	return checkProcessAlive(h.cmd.Process)
}

// Terminate는 종료 요청(SIGTERM)을 보내고 grace 안에 끝나지 않으면 강제 종료합니다.
// 이미 종료된 프로세스는 성공으로 처리합니다.
func (h *ProcessHandle) Terminate(ctx context.Context, grace time.Duration) error {
	h.termMu.Lock()
	defer h.termMu.Unlock()

	if h.cmd == nil || h.cmd.Process == nil || h.Exited() {
		return nil
	}
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	log.Info().
		Int("pid", h.PID).
		Msg("[worker] 프로세스 종료 시작")

	if err := sendTermSignal(h.cmd.Process); err != nil {
		if h.waitExit(killWait) {
			return nil
		}
		return fmt.Errorf("종료 신호 전송 실패 (pid %d): %w", h.PID, err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.done:
		log.Info().Int("pid", h.PID).Msg("[worker] 프로세스 정상 종료")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("프로세스 종료 대기 취소 (pid %d): %w", h.PID, ctx.Err())
	case <-timer.C:
	}

	log.Warn().Int("pid", h.PID).Dur("grace", grace).Msg("[worker] 유예 시간 초과, 강제 종료")
	if err := killProcess(h.cmd.Process); err != nil && !h.Exited() {
		return fmt.Errorf("강제 종료 실패 (pid %d): %w", h.PID, err)
	}
	if !h.waitExit(killWait) {
		return fmt.Errorf("강제 종료 후에도 프로세스가 남아 있음 (pid %d)", h.PID)
	}
	return nil
}

// waitExit는 최대 d 동안 프로세스 종료를 기다립니다.
func (h *ProcessHandle) waitExit(d time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(d):
		return false
	}
}

// logWriter는 워커의 stdout/stderr를 zerolog로 전달합니다.
type logWriter struct {
	stream string
}

func (w *logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg == "" {
		return len(p), nil
	}
	switch w.stream {
	case "stderr":
		// uvicorn 등은 정상 로그도 stderr로 내보내므로 warn으로 기록합니다.
		log.Warn().Str("stream", w.stream).Msg("[worker] " + msg)
	default:
		log.Debug().Str("stream", w.stream).Msg("[worker] " + msg)
	}
	return len(p), nil
}
