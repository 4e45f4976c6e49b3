package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wwwzy/RagAgent/internal/retention"
	"github.com/wwwzy/RagAgent/internal/storage"
)

// DefaultModelID 为请求未指定模型时使用的模型标识。
const DefaultModelID = "openai/gpt-oss-120b:free"

// LLMConfig 描述对话模型端点。三个能力（改写/结构化判断/回答）共用端点，温度分别配置。
type LLMConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	ModelID    string        `mapstructure:"model_id"`
	BaseURL    string        `mapstructure:"base_url"`
	RetryTimes int           `mapstructure:"retry_times"`
	Timeout    time.Duration `mapstructure:"timeout"`

	ContextualizeTemperature float32 `mapstructure:"contextualize_temperature"`
	RouteTemperature         float32 `mapstructure:"route_temperature"`
	JudgeTemperature         float32 `mapstructure:"judge_temperature"`
	AnswerTemperature        float32 `mapstructure:"answer_temperature"`
}

// EmbeddingConfig 描述查询向量化端点；必须与建库时使用同一模型。
type EmbeddingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	ModelID string `mapstructure:"model_id"`
	BaseURL string `mapstructure:"base_url"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

type SupabaseConfig struct {
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Function string `mapstructure:"function"`
}

type VectorStoreConfig struct {
	// Driver 为 qdrant 或 supabase。
	Driver   string         `mapstructure:"driver"`
	TopK     int            `mapstructure:"top_k"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

type WebSearchConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type SessionConfig struct {
	// Driver 为 sqlite 或 redis。
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Storage     storage.Config    `mapstructure:"storage"`
	Session     SessionConfig     `mapstructure:"session"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	WebSearch   WebSearchConfig   `mapstructure:"websearch"`
	Server      ServerConfig      `mapstructure:"server"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Retention   retention.Config  `mapstructure:"retention"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
}

func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// 默认搜索路径
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ragagent")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RAGAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal 只会解码 viper 已知的 key，仅存在于环境变量中的 key 需要先通过 SetDefault 登记。
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件未找到，使用默认值
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 向量化端点未单独配置时沿用对话模型端点
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (or set OPENAI_API_KEY / ARK_API_KEY env var)")
	}
	if c.LLM.ModelID == "" {
		return fmt.Errorf("llm.model_id is required (or set ARK_MODEL_ID env var)")
	}
	// 改写必须确定性采样；回答阶段的采样须比结构化判断更发散
	if c.LLM.ContextualizeTemperature != 0 {
		return fmt.Errorf("llm.contextualize_temperature must be 0, got %v", c.LLM.ContextualizeTemperature)
	}
	if structured := max(c.LLM.RouteTemperature, c.LLM.JudgeTemperature); c.LLM.AnswerTemperature <= structured {
		return fmt.Errorf("llm.answer_temperature (%v) must be greater than route/judge temperature (%v)",
			c.LLM.AnswerTemperature, structured)
	}
	if c.VectorStore.TopK <= 0 {
		return fmt.Errorf("vectorstore.top_k must be positive, got %d", c.VectorStore.TopK)
	}
	switch c.VectorStore.Driver {
	case "qdrant", "supabase":
	default:
		return fmt.Errorf("vectorstore.driver must be qdrant or supabase, got %q", c.VectorStore.Driver)
	}
	switch c.Session.Driver {
	case "sqlite":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when session.driver=redis")
		}
	default:
		return fmt.Errorf("session.driver must be sqlite or redis, got %q", c.Session.Driver)
	}
	if c.WebSearch.Enabled && c.WebSearch.Provider != "tavily" {
		return fmt.Errorf("websearch.provider %q is not supported", c.WebSearch.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	// -------------------------------------------------------------------------
	// Global Defaults (全局默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	// -------------------------------------------------------------------------
	// Storage / Session Defaults (存储与会话默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.enable_wal", def.Storage.EnableWAL)
	v.SetDefault("storage.busy_timeout", def.Storage.BusyTimeout)

	v.SetDefault("session.driver", def.Session.Driver)
	v.SetDefault("session.redis.addr", "")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.ttl", time.Duration(0))
	v.SetDefault("session.redis.key_prefix", "ragagent:session:")
	v.BindEnv("session.redis.addr", "REDIS_ADDR")

	// -------------------------------------------------------------------------
	// LLM Defaults (模型默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model_id", def.LLM.ModelID)
	v.SetDefault("llm.base_url", def.LLM.BaseURL)
	v.SetDefault("llm.retry_times", def.LLM.RetryTimes)
	v.SetDefault("llm.timeout", def.LLM.Timeout)
	v.SetDefault("llm.contextualize_temperature", def.LLM.ContextualizeTemperature)
	v.SetDefault("llm.route_temperature", def.LLM.RouteTemperature)
	v.SetDefault("llm.judge_temperature", def.LLM.JudgeTemperature)
	v.SetDefault("llm.answer_temperature", def.LLM.AnswerTemperature)

	// 多个变量名按列出顺序优先
	v.BindEnv("llm.api_key", "RAGAGENT_LLM_API_KEY", "ARK_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.model_id", "RAGAGENT_LLM_MODEL_ID", "ARK_MODEL_ID")
	v.BindEnv("llm.base_url", "RAGAGENT_LLM_BASE_URL", "ARK_BASE_URL", "OPEN_AI_BASE_URL")

	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model_id", "")
	v.SetDefault("embedding.base_url", "")
	v.BindEnv("embedding.model_id", "RAGAGENT_EMBEDDING_MODEL_ID", "ARK_EMBEDDING_MODEL_ID")

	// -------------------------------------------------------------------------
	// Retrieval / Web Search Defaults (检索与联网搜索默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("vectorstore.driver", def.VectorStore.Driver)
	v.SetDefault("vectorstore.top_k", def.VectorStore.TopK)
	v.SetDefault("vectorstore.qdrant.url", "")
	v.SetDefault("vectorstore.qdrant.api_key", "")
	v.SetDefault("vectorstore.qdrant.collection", def.VectorStore.Qdrant.Collection)
	v.SetDefault("vectorstore.supabase.url", "")
	v.SetDefault("vectorstore.supabase.api_key", "")
	v.SetDefault("vectorstore.supabase.function", def.VectorStore.Supabase.Function)
	v.BindEnv("vectorstore.qdrant.url", "RAGAGENT_VECTORSTORE_QDRANT_URL", "QDRANT_URL")
	v.BindEnv("vectorstore.qdrant.api_key", "RAGAGENT_VECTORSTORE_QDRANT_API_KEY", "QDRANT_API_KEY")

	v.SetDefault("websearch.enabled", def.WebSearch.Enabled)
	v.SetDefault("websearch.provider", def.WebSearch.Provider)
	v.SetDefault("websearch.api_key", "")
	v.SetDefault("websearch.base_url", def.WebSearch.BaseURL)
	v.SetDefault("websearch.max_results", def.WebSearch.MaxResults)
	v.SetDefault("websearch.timeout", def.WebSearch.Timeout)
	v.BindEnv("websearch.api_key", "RAGAGENT_WEBSEARCH_API_KEY", "TAVILY_API_KEY")

	// -------------------------------------------------------------------------
	// Server / Audit Defaults (服务与审计默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("server.cors_origins", def.Server.CORSOrigins)
	v.SetDefault("audit.enabled", def.Audit.Enabled)

	// -------------------------------------------------------------------------
	// Retention Defaults (数据清理默认值)
	// -------------------------------------------------------------------------
	v.SetDefault("retention.enabled", def.Retention.Enabled)
	v.SetDefault("retention.interval", def.Retention.Interval)
	v.SetDefault("retention.workers", def.Retention.Workers)
	v.SetDefault("retention.batch_rows", def.Retention.BatchRows)
	v.SetDefault("retention.idle_sleep", def.Retention.IdleSleep)
	v.SetDefault("retention.turns.keep_for", def.Retention.Turns.KeepFor)
	v.SetDefault("retention.audit.keep_for", def.Retention.Audit.KeepFor)
}

func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Storage: storage.Config{
			Path:        "ragagent.db",
			EnableWAL:   true,
			BusyTimeout: 5 * time.Second,
		},
		Session: SessionConfig{Driver: "sqlite"},
		LLM: LLMConfig{
			ModelID:                  DefaultModelID,
			BaseURL:                  "https://ark.cn-beijing.volces.com/api/v3",
			RetryTimes:               2,
			Timeout:                  60 * time.Second,
			ContextualizeTemperature: 0,
			RouteTemperature:         0,
			JudgeTemperature:         0,
			AnswerTemperature:        0.7,
		},
		VectorStore: VectorStoreConfig{
			Driver:   "qdrant",
			TopK:     3,
			Qdrant:   QdrantConfig{Collection: "langchain_docs"},
			Supabase: SupabaseConfig{Function: "match_documents"},
		},
		WebSearch: WebSearchConfig{
			Enabled:    true,
			Provider:   "tavily",
			BaseURL:    "https://api.tavily.com",
			MaxResults: 5,
			Timeout:    15 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Audit:     AuditConfig{Enabled: true},
		Retention: retention.DefaultConfig(),
	}
}
