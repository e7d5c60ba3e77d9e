//go:build windows

package worker

import (
	"os"
	"syscall"
)

// setSysProcAttr는 Windows에서 프로세스 속성을 반환합니다.
// Windows에서는 프로세스 그룹 설정이 불필요합니다.
func setSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// sendTermSignal은 Windows에서 프로세스를 종료합니다.
// Windows에는 SIGTERM이 없으므로 Kill을 사용합니다.
func sendTermSignal(process *os.Process) error {
	return process.Kill()
}

// killProcess는 프로세스를 강제 종료합니다 (Windows).
func killProcess(process *os.Process) error {
	return process.Kill()
}

// checkProcessAlive는 프로세스가 실행 중인지 확인합니다 (Windows).
// 종료 여부는 ProcessHandle의 Wait 채널이 판단하므로 여기서는 핸들 조회만 확인합니다.
func checkProcessAlive(process *os.Process) bool {
	_, err := os.FindProcess(process.Pid)
	return err == nil
}
