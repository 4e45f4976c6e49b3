package retention

import (
	"runtime"
	"time"
)

type ErrorHandler func(err error)

// PolicyConfig 描述一类数据的保留时长。
type PolicyConfig struct {
	// KeepFor 为保留时长；<=0 表示永久保留，不做清理。
	KeepFor time.Duration `mapstructure:"keep_for"`
}

type Config struct {
	// Enabled 控制后台定时清理是否启用；手动执行 prune 命令不受此开关影响。
	Enabled bool `mapstructure:"enabled"`
	// Interval 为清理周期。
	Interval time.Duration `mapstructure:"interval"`
	// Workers 为并发执行清理任务的 worker 数量。
	Workers int `mapstructure:"workers"`
	// BatchRows 为单次 DELETE 的最大行数，避免长事务阻塞对话写入。
	BatchRows int `mapstructure:"batch_rows"`
	// IdleSleep 为两批删除之间的间隔。
	IdleSleep time.Duration `mapstructure:"idle_sleep"`

	// Turns 为会话记录的保留策略。
	Turns PolicyConfig `mapstructure:"turns"`
	// Audit 为审计记录的保留策略。
	Audit PolicyConfig `mapstructure:"audit"`

	// OnError 为异步错误回调；默认丢弃。
	OnError ErrorHandler `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Interval:  time.Hour,
		Workers:   2,
		BatchRows: 500,
		IdleSleep: 50 * time.Millisecond,
		Turns:     PolicyConfig{KeepFor: 0},
		Audit:     PolicyConfig{KeepFor: 7 * 24 * time.Hour},
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = min(2, runtime.NumCPU())
	}
	if c.BatchRows <= 0 {
		c.BatchRows = 500
	}
	if c.IdleSleep < 0 {
		c.IdleSleep = 0
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}
	return c
}
