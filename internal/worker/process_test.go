package worker

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// sleepSpec은 seconds 동안 대기하는 테스트용 LaunchSpec을 반환합니다.
func sleepSpec(t *testing.T, seconds string) LaunchSpec {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("sleep 바이너리가 필요한 테스트입니다")
	}
	return LaunchSpec{Command: "sleep", Args: []string{seconds}}
}

func TestLaunchSpec_String(t *testing.T) {
	spec := LaunchSpec{Command: "python3", Args: []string{"../examples/api_server.py"}}
	if got := spec.String(); got != "python3 ../examples/api_server.py" {
		t.Errorf("String() = %q", got)
	}
	if got := (LaunchSpec{Command: "worker"}).String(); got != "worker" {
		t.Errorf("String() = %q, want worker", got)
	}
}

func TestSpawn_CommandNotFound(t *testing.T) {
	_, err := spawn(LaunchSpec{Command: "nonexistent-binary-xyz-12345"})
	if err == nil {
		t.Fatal("spawn() expected error for missing command, got nil")
	}
}

func TestSpawn_Success(t *testing.T) {
	h, err := spawn(sleepSpec(t, "5"))
	if err != nil {
		t.Fatalf("spawn() error: %v", err)
	}
	defer h.Terminate(context.Background(), time.Second) //nolint:errcheck

	if h.PID <= 0 {
		t.Errorf("PID = %d, want > 0", h.PID)
	}
	if h.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}
	if !h.IsRunning() {
		t.Error("IsRunning() = false for running process, want true")
	}
	if h.Exited() {
		t.Error("Exited() = true for running process")
	}
}

func TestProcessHandle_NilSafe(t *testing.T) {
	var nilHandle *ProcessHandle
	if nilHandle.IsRunning() {
		t.Error("IsRunning() = true for nil handle")
	}

	h := &ProcessHandle{done: make(chan struct{})}
	if h.IsRunning() {
		t.Error("IsRunning() = true for nil cmd")
	}
	if err := h.Terminate(context.Background(), time.Second); err != nil {
		t.Errorf("Terminate() error = %v for nil cmd, want nil", err)
	}
}

func TestProcessHandle_Terminate(t *testing.T) {
	h, err := spawn(sleepSpec(t, "60"))
	if err != nil {
		t.Fatalf("spawn() error: %v", err)
	}

	if err := h.Terminate(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}
	if !h.Exited() {
		t.Error("Exited() = false after Terminate()")
	}
	if h.IsRunning() {
		t.Error("IsRunning() = true after Terminate()")
	}

	// 이미 종료된 프로세스에 대한 두 번째 요청은 성공
	if err := h.Terminate(context.Background(), time.Second); err != nil {
		t.Errorf("second Terminate() error = %v, want nil", err)
	}
}

func TestProcessHandle_TerminateEscalatesToKill(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("SIGTERM 무시 시나리오는 Unix 전용입니다")
	}

	// SIGTERM을 무시하는 프로세스
	h, err := spawn(LaunchSpec{Command: "sh", Args: []string{"-c", `trap "" TERM; sleep 30`}})
	if err != nil {
		t.Fatalf("spawn() error: %v", err)
	}
	// trap 설정 대기
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := h.Terminate(context.Background(), 300*time.Millisecond); err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}
	if !h.Exited() {
		t.Error("Exited() = false after forced kill")
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Terminate() returned after %v, expected to wait for grace period", elapsed)
	}
}

func TestProcessHandle_ExitErr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh가 필요한 테스트입니다")
	}

	h, err := spawn(LaunchSpec{Command: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("spawn() error: %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("프로세스가 종료되지 않았습니다")
	}

	if h.ExitErr() == nil {
		t.Error("ExitErr() = nil for exit status 3")
	}
}

func TestLogWriter(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		input  string
	}{
		{"stdout", "stdout", "INFO: Started server process\n"},
		{"stderr", "stderr", "INFO: Uvicorn running on http://0.0.0.0:8000\n"},
		{"빈 줄", "stdout", "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &logWriter{stream: tt.stream}
			n, err := w.Write([]byte(tt.input))
			if err != nil {
				t.Errorf("Write() error = %v", err)
			}
			if n != len(tt.input) {
				t.Errorf("Write() returned %d, want %d", n, len(tt.input))
			}
		})
	}
}
