// config.go는 설정 관리 명령을 구현합니다.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/insajin/coworker-shell/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd는 설정 관리를 위한 상위 명령어입니다.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정을 관리합니다",
	Long: `설정 파일의 값을 조회하거나 수정합니다.

설정 파일 위치: ~/.config/coworker/config.yaml

환경변수로도 설정할 수 있습니다 (COWORKER_ 접두사, 점은 밑줄로):
  COWORKER_WORKER_COMMAND=python3
  COWORKER_BRIDGE_TIMEOUT=30s`,
}

// configSetCmd는 설정 값을 저장하는 명령어입니다.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "설정 값을 저장합니다",
	Long: `설정 파일에 값을 저장합니다.

키는 점(.)으로 구분된 경로를 사용합니다.
예시:
  coworker config set worker.command /usr/bin/python3
  coworker config set worker.args examples/api_server.py,--reload
  coworker config set bridge.timeout 30s

지원하는 설정 키:
  worker.command        - 워커 실행 파일 (비어있으면 python3, Windows는 python)
  worker.args           - 실행 인자 (쉼표로 구분)
  worker.dir            - 작업 디렉토리
  worker.host           - 워커 호스트 (기본값: localhost)
  worker.default_port   - 기본 포트 (기본값: 8000)
  worker.stop_grace     - 강제 종료까지 유예 시간 (예: 5s)
  worker.ready_timeout  - 헬스 엔드포인트 대기 시간 (0s이면 확인 안 함)
  worker.health_path    - 헬스 엔드포인트 경로
  bridge.timeout        - 도구 호출 타임아웃 (0s이면 없음)
  bridge.retries        - 전송 오류 재시도 횟수 (0 또는 1)
  ipc.listen_addr       - IPC WebSocket 주소
  logging.level         - 로그 레벨 (debug, info, warn, error)
  logging.format        - 로그 포맷 (json, text)
  logging.file          - 로그 파일 경로 (비어있으면 stdout)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

// configGetCmd는 설정 값을 조회하는 명령어입니다.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "설정 값을 조회합니다",
	Long: `설정 파일에서 특정 키의 값을 조회합니다.

예시:
  coworker config get worker.command
  coworker config get bridge.retries`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configListCmd는 전체 설정을 출력하는 명령어입니다.
var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "전체 설정을 출력합니다",
	Long:  `현재 적용된 모든 설정을 YAML 포맷으로 출력합니다.`,
	RunE:  runConfigList,
}

// configPathCmd는 설정 파일 경로를 출력하는 명령어입니다.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "설정 파일 경로를 출력합니다",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.DefaultConfigPath())
		return nil
	},
}

// configInitCmd는 기본 설정 파일을 생성하는 명령어입니다.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "기본 설정 파일을 생성합니다",
	Long: `기본 설정 파일을 ~/.config/coworker/config.yaml에 생성합니다.

이미 파일이 존재하면 덮어쓰지 않습니다.
강제로 덮어쓰려면 --force 플래그를 사용하세요.`,
	RunE: runConfigInit,
}

var forceInit bool

// validConfigKeys는 config set으로 변경 가능한 키입니다.
var validConfigKeys = map[string]bool{
	"worker.command":       true,
	"worker.args":          true,
	"worker.dir":           true,
	"worker.host":          true,
	"worker.default_port":  true,
	"worker.stop_grace":    true,
	"worker.ready_timeout": true,
	"worker.health_path":   true,
	"bridge.timeout":       true,
	"bridge.retries":       true,
	"ipc.listen_addr":      true,
	"logging.level":        true,
	"logging.format":       true,
	"logging.file":         true,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "기존 파일을 덮어씁니다")
}

// runConfigSet은 설정 값을 검증한 뒤 저장합니다.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !isValidConfigKey(key) {
		return fmt.Errorf("알 수 없는 설정 키: %s", key)
	}

	parsedValue := parseConfigValue(key, args[1])
	viper.Set(key, parsedValue)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("설정 검증 실패: %w", err)
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("설정 파일 저장 실패: %w", err)
	}

	fmt.Printf("%s = %v\n", key, parsedValue)
	fmt.Printf("설정이 저장되었습니다: %s\n", configPath)
	return nil
}

// runConfigGet은 설정 값을 조회합니다.
func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	value := viper.Get(key)
	if value == nil {
		return fmt.Errorf("설정 키를 찾을 수 없습니다: %s", key)
	}

	fmt.Printf("%s = %v\n", key, value)
	return nil
}

// runConfigList는 전체 설정을 출력합니다.
func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("# 설정 파일: %s\n", configFile)
	} else {
		fmt.Printf("# 설정 파일: (기본값 사용 중)\n")
	}
	fmt.Println()

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("YAML 직렬화 실패: %w", err)
	}
	fmt.Println(string(yamlData))

	fmt.Println("# 적용 값:")
	fmt.Printf("  worker: %s %s\n", cfg.Worker.GetCommand(), strings.Join(cfg.Worker.GetArgs(), " "))
	fmt.Printf("  default port: %d\n", cfg.Worker.GetDefaultPort())
	return nil
}

// runConfigInit은 기본 설정 파일을 생성합니다.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := config.DefaultConfigPath()

	if !forceInit {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("설정 파일이 이미 존재합니다: %s\n--force 플래그로 덮어쓸 수 있습니다", configPath)
		}
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}

	defaultConfig := `# Coworker 설정 파일
# 생성됨: coworker config init

worker:
  command: ""          # 비어있으면 python3 (Windows: python)
  args: []             # 비어있으면 ` + config.DefaultWorkerScript + `
  host: "localhost"
  default_port: 8000
  stop_grace: "5s"
  ready_timeout: "0s"  # 0s이면 헬스 확인 안 함
  health_path: "/health"

bridge:
  timeout: "0s"        # 0s이면 타임아웃 없음
  retries: 0           # 전송 오류 시 재시도 (0 또는 1)

ipc:
  listen_addr: "` + config.DefaultIPCAddr + `"

logging:
  level: "info"    # debug, info, warn, error
  format: "json"   # json, text
  file: ""         # 비어있으면 stdout
`

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("설정 파일 생성 실패: %w", err)
	}

	fmt.Printf("설정 파일이 생성되었습니다: %s\n", configPath)
	return nil
}

// isValidConfigKey는 유효한 설정 키인지 확인합니다.
func isValidConfigKey(key string) bool {
	return validConfigKeys[key]
}

// parseConfigValue는 문자열 값을 키에 맞는 타입으로 변환합니다.
func parseConfigValue(key, value string) interface{} {
	if key == "worker.args" {
		if value == "" {
			return []string{}
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}

	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	// 정수 (시간 값 "5s" 등은 문자열로 남습니다)
	var intVal int
	var rest string
	if n, _ := fmt.Sscanf(value, "%d%s", &intVal, &rest); n == 1 {
		return intVal
	}

	return value
}
