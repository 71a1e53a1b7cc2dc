// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	stdlog "log"

	"lolstats/internal/config"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init
//
// 수집기 시작 시 한 번 호출한다.
//
//   - LOG_PRETTY=true : 터미널용 컬러 텍스트 (기본값, 로컬에서 돌리는 배치라서)
//   - LOG_PRETTY=false: JSON 라인 (cron / 컨테이너 로그 수집용)
//
// 모든 로그에 service / instance 필드가 붙는다.
// LOG_SAMPLE_N > 1 이면 debug/info 는 N 개 중 1개만 남기고 warn 이상은 전부 남긴다.
func Init(cfg config.Config) {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil && l != zerolog.NoLevel {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	zlog.Logger = New(cfg, writer(cfg.LogPretty), level)

	// 표준 log 패키지 출력도 zerolog 로 보낸다.
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}

// New 는 Init 과 같은 규칙으로 logger 를 만든다. 테스트에서 출력 대상을 바꿀 때 사용.
func New(cfg config.Config, w io.Writer, level zerolog.Level) zerolog.Logger {
	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	if cfg.LogSampleN > 1 {
		return base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}
	return base
}

func writer(pretty bool) io.Writer {
	if pretty {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}
	return os.Stdout
}
