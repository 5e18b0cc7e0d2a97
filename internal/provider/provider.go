package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
)

// Doer 是注入的 HTTP 能力（*http.Client 即满足）；连接池策略不归 provider 管。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Searcher 把“站点变化”限制在各平台子包内部；核心流程只依赖统一接口与 domain.Record。
//
// 约束：
// - FetchCandidate 只负责“定位 + 抓取 + 解析”出一个候选，不做匹配判定（由 Search 统一完成）
// - 不做缓存、不做重试、不做限速
// - 站点返回“无结果”或页面结构不满足固定位置假设：返回空 Record + nil error
// - 网络/HTTP 失败：返回 error，不能吞掉变成空 Record
// - 单个字段缺失只留空，不影响其余字段
type Searcher interface {
	Platform() domain.Platform
	FetchCandidate(ctx context.Context, q domain.Query, c Doer) (domain.Record, error)
}
