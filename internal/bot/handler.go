// Package bot 是与传输层无关的聊天逻辑：一次查询的执行（Handler）与命令分发（Dispatcher）。
package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/match"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
)

// Handler 执行 handle_query：解析平台 -> 规范化 query -> 搜索 -> 三态结果。
type Handler struct {
	Registry  provider.Registry
	Client    provider.Doer
	Threshold int
	Logger    *slog.Logger
}

// HandleQuery 对一条用户输入执行一次平台查询。
//
// 约束：
// - 每次调用最多触发一条 1~2 次 GET 的请求链，不重试
// - 空输入不发请求，直接 no_match
// - 网络/解析失败是 error，不会被降级为 no_match
func (h *Handler) HandleQuery(ctx context.Context, userID int64, platformID, raw string) domain.Outcome {
	log := h.logger().With("user_id", userID, "platform_id", platformID)
	if id := RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}

	s, err := h.Registry.Resolve(platformID)
	if err != nil {
		log.Warn("平台无法解析", "err", err)
		return domain.Outcome{Kind: domain.OutcomeError, Err: err}
	}
	p := s.Platform()
	log = log.With("platform", string(p))

	q, ok := domain.ParseQuery(raw)
	if !ok {
		log.Info("空查询")
		return domain.Outcome{Kind: domain.OutcomeNoMatch, Platform: p}
	}

	threshold := h.Threshold
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}

	rec, v, err := provider.SearchTrace(ctx, s, q, h.Client, threshold)
	if err != nil {
		stage := ""
		var pe *provider.Error
		if errors.As(err, &pe) {
			stage = pe.Stage
		}
		log.Error("查询失败", "query", q.String(), "stage", stage, "err", err)
		return domain.Outcome{Kind: domain.OutcomeError, Platform: p, Err: err}
	}
	if !v.Matched {
		log.Info("未匹配", "query", q.String(), "candidate", v.Candidate.Title, "distance", v.Distance, "threshold", threshold)
		return domain.Outcome{Kind: domain.OutcomeNoMatch, Platform: p}
	}

	log.Info("匹配", "query", q.String(), "title", rec.Title, "distance", v.Distance)
	return domain.Outcome{Kind: domain.OutcomeMatch, Platform: p, Record: rec}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type requestIDKey struct{}

// WithRequestID 把请求 id 挂到 ctx 上，HandleQuery 的日志会带上它。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
