package worker

import (
	"sync"
	"time"
)

// ServerState는 워커의 실행 여부, 포트, 프로세스 핸들을 담는 단일 레코드입니다.
// 애플리케이션 수명 동안 하나만 만들어 Supervisor에 주입합니다.
// running이면 handle != nil 이고 port != 0 입니다.
type ServerState struct {
	mu sync.Mutex

	running bool
	port    uint16
	handle  *ProcessHandle

	// starting/stopping은 락 밖에서 진행 중인 spawn/종료를 표시합니다.
	starting bool
	stopping bool
}

// NewServerState는 초기 포트를 가진 정지 상태를 생성합니다.
func NewServerState(initialPort uint16) *ServerState {
	return &ServerState{port: initialPort}
}

// Snapshot은 ServerState의 읽기 전용 복사본입니다.
type Snapshot struct {
	Running   bool      `json:"running"`
	Port      uint16    `json:"port"`
	PID       int       `json:"pid,omitempty"`
	Command   string    `json:"command,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Uptime은 실행 중인 워커의 가동 시간을 반환합니다.
func (s Snapshot) Uptime() time.Duration {
	if !s.Running || s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}

// snapshotLocked는 s.mu를 잡은 상태에서 호출해야 합니다.
func (s *ServerState) snapshotLocked() Snapshot {
	snap := Snapshot{
		Running: s.running,
		Port:    s.port,
	}
	if s.running && s.handle != nil {
		snap.PID = s.handle.PID
		snap.Command = s.handle.Spec.String()
		snap.StartedAt = s.handle.StartedAt
	}
	return snap
}
