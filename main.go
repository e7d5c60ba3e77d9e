// Package main은 coworker CLI의 진입점입니다.
// 로컬 워커 프로세스를 관리하고 UI 레이어의 도구 호출을 워커 HTTP API로 전달합니다.
package main

import (
	"os"

	"github.com/insajin/coworker-shell/cmd"
)

// 빌드 시 ldflags로 주입되는 버전 정보
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
