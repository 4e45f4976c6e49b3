package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/redis/go-redis/v9"
	"github.com/wwwzy/RagAgent/internal/agent"
	"github.com/wwwzy/RagAgent/internal/config"
	"github.com/wwwzy/RagAgent/internal/llm"
	"github.com/wwwzy/RagAgent/internal/session"
	"github.com/wwwzy/RagAgent/internal/storage"
	"github.com/wwwzy/RagAgent/internal/vectorstore"
	"github.com/wwwzy/RagAgent/internal/vectorstore/qdrant"
	"github.com/wwwzy/RagAgent/internal/vectorstore/supabase"
	"github.com/wwwzy/RagAgent/internal/websearch"
)

// app 持有一次命令执行期间的全部长生命周期依赖。
type app struct {
	storage  *storage.Storage
	sessions session.Store
	vectors  vectorstore.Store
	service  *agent.Service
}

// newApp 按配置装配问答服务：存储、会话、模型、向量库、联网搜索、编排图。
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.storage, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("打开存储失败: %w", err)
	}

	a.sessions, err = newSessionStore(a.storage, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("创建会话存储失败: %w", err)
	}
	if err = a.sessions.CreateIfMissing(ctx); err != nil {
		return nil, fmt.Errorf("初始化会话存储失败: %w", err)
	}

	models, err := llm.NewChatModels(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("创建对话模型失败: %w", err)
	}
	emb, err := llm.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("创建向量化模型失败: %w", err)
	}

	a.vectors, err = newVectorStore(cfg.VectorStore, emb)
	if err != nil {
		return nil, fmt.Errorf("连接向量库失败: %w", err)
	}

	searcher, err := websearch.New(cfg.WebSearch)
	if err != nil {
		return nil, fmt.Errorf("创建联网搜索失败: %w", err)
	}

	pipeline := &agent.Pipeline{
		Contextualizer: agent.NewContextualizer(models.Contextualize, cfg.LLM.ContextualizeTemperature),
		Router:         agent.NewRouter(models.Route, cfg.LLM.RouteTemperature),
		Retrieval:      agent.NewRetrievalEngine(a.vectors, cfg.VectorStore.TopK),
		Judge:          agent.NewJudge(models.Judge, cfg.LLM.JudgeTemperature),
		Web:            agent.NewWebFallback(searcher, logger),
		Synthesizer:    agent.NewSynthesizer(models.Answer, cfg.LLM.AnswerTemperature),
	}
	runnable, err := agent.BuildGraph(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("构建 Agent Graph 失败: %w", err)
	}

	handlers := []callbacks.Handler{agent.NewLogHandler(logger)}
	if cfg.Audit.Enabled {
		handlers = append(handlers, agent.NewAuditHandler(a.storage, logger))
	}

	a.service, err = agent.NewService(a.sessions, runnable,
		agent.WithDefaultModel(cfg.LLM.ModelID),
		agent.WithCallbacks(handlers...),
		agent.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("创建问答服务失败: %w", err)
	}
	return a, nil
}

func (a *app) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.vectors != nil {
		errs = append(errs, a.vectors.Close())
	}
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	return errors.Join(errs...)
}

func newSessionStore(st *storage.Storage, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(client),
			session.WithRedisTTL(cfg.Redis.TTL),
			session.WithRedisKeyPrefix(cfg.Redis.KeyPrefix),
		)
	default:
		return session.NewStore(session.StoreTypeSQLite, session.WithStorage(st))
	}
}

// newVectorStore 出错时返回无类型 nil，避免调用方拿到带类型的空指针。
func newVectorStore(cfg config.VectorStoreConfig, emb *llm.Embedder) (vectorstore.Store, error) {
	switch cfg.Driver {
	case "supabase":
		r, err := supabase.New(supabase.Config{
			URL:      cfg.Supabase.URL,
			APIKey:   cfg.Supabase.APIKey,
			Function: cfg.Supabase.Function,
			TopK:     cfg.TopK,
		}, emb)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		r, err := qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			TopK:       cfg.TopK,
		}, emb)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}
