package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/match"
)

// Verdict 记录一次匹配判定（用于日志与解释 no_match 原因）。
// 注意：这是内部执行轨迹，结果本身仍是二元的 match / no_match。
type Verdict struct {
	Platform  domain.Platform
	Candidate domain.Record // FetchCandidate 的原始结果（可能为空）
	Distance  int           // 与 Title/AlternativeTitle 的最小距离；-1 表示没有可比较的标题
	Matched   bool
}

// Search 执行一次完整查询：FetchCandidate + 统一的匹配判定。
//
// 返回值：
// - 匹配：带 Title 的候选（Platform 已填充）
// - 不匹配：empty sentinel + nil error
// - 抓取/解析失败：*Error
func Search(ctx context.Context, s Searcher, q domain.Query, c Doer, threshold int) (domain.Record, error) {
	r, _, err := SearchTrace(ctx, s, q, c, threshold)
	return r, err
}

// SearchTrace 与 Search 相同，但额外返回匹配判定的轨迹。
func SearchTrace(ctx context.Context, s Searcher, q domain.Query, c Doer, threshold int) (domain.Record, Verdict, error) {
	if s == nil {
		return domain.Record{}, Verdict{Distance: -1}, errors.New("searcher 不能为空")
	}
	v := Verdict{Platform: s.Platform(), Distance: -1}
	if q == "" {
		return domain.Record{}, v, errors.New("query 不能为空")
	}

	cand, err := s.FetchCandidate(ctx, q, c)
	if err != nil {
		return domain.Record{}, v, &Error{Platform: s.Platform(), Stage: stageOf(err), Err: err}
	}
	v.Candidate = cand

	if d, ok := titleDistance(q, cand); ok {
		v.Distance = d
	}
	if !Accept(q, cand, threshold) {
		return domain.Record{}, v, nil
	}

	v.Matched = true
	cand.Platform = s.Platform()
	return cand, v, nil
}

// Accept 是唯一的匹配策略，所有平台共用：
// - Title 缺失 => 不匹配（即使 AlternativeTitle 接近）
// - Title 或 AlternativeTitle 任一满足 distance < threshold => 匹配
func Accept(q domain.Query, r domain.Record, threshold int) bool {
	if !r.HasTitle() {
		return false
	}
	query := string(q)
	if match.Matches(query, domain.FoldTitle(r.Title), threshold) {
		return true
	}
	if r.AlternativeTitle != "" && match.Matches(query, domain.FoldTitle(r.AlternativeTitle), threshold) {
		return true
	}
	return false
}

func titleDistance(q domain.Query, r domain.Record) (int, bool) {
	return match.Best(string(q), domain.FoldTitle(r.Title), domain.FoldTitle(r.AlternativeTitle))
}

// Error 是 searcher 阶段的可追溯错误。
// 上层据此把失败归类为 TransportFailure（fetch）或站点返回了无法读取的内容（parse）。
type Error struct {
	Platform domain.Platform
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform=%s stage=%s: %v", e.Platform, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageOf(err error) string {
	var hs *HTTPStatusError
	var te *TransportError
	if errors.As(err, &hs) || errors.As(err, &te) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "fetch"
	}
	return "parse"
}
