//go:build !windows

package worker

import (
	"os"
	"syscall"
)

// setSysProcAttr는 프로세스 그룹을 설정합니다 (Unix).
// 워커가 띄운 자식 프로세스도 함께 종료되도록 Setpgid를 활성화합니다.
func setSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// sendTermSignal은 워커 프로세스 그룹에 SIGTERM을 전송합니다 (Unix).
func sendTermSignal(process *os.Process) error {
	return signalGroup(process, syscall.SIGTERM)
}

// killProcess는 워커 프로세스 그룹에 SIGKILL을 전송합니다 (Unix).
func killProcess(process *os.Process) error {
	return signalGroup(process, syscall.SIGKILL)
}

// checkProcessAlive는 프로세스가 실행 중인지 확인합니다 (Unix).
// Signal(0)은 실제 시그널을 보내지 않고 프로세스 존재만 확인합니다.
func checkProcessAlive(process *os.Process) bool {
	return process.Signal(syscall.Signal(0)) == nil
}

// signalGroup은 그룹 전체에 시그널을 보내고, 실패하면 프로세스 하나에만 보냅니다.
func signalGroup(process *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-process.Pid, sig); err == nil {
		return nil
	}
	return process.Signal(sig)
}
