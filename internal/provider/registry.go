package provider

import (
	"fmt"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
)

// 未知平台标识的处理策略。
const (
	// PolicyFallback：未知标识静默回退到默认平台。
	PolicyFallback = "fallback"
	// PolicyStrict：未知标识返回 *UnresolvedPlatformError。
	PolicyStrict = "strict"
)

// Registry 是 searcher 的只读注册表。
// 同一个 searcher 同时按 key（okko）与展示名（Ökko）索引，比较前做 domain.FoldKey。
type Registry struct {
	byKey    map[string]Searcher
	order    []domain.Platform
	policy   string
	fallback domain.Platform
}

// NewRegistry 构造注册表。
// policy=fallback 时 fallback 必须是已注册的平台；policy=strict 时 fallback 被忽略。
func NewRegistry(policy string, fallback domain.Platform, searchers ...Searcher) (Registry, error) {
	switch policy {
	case PolicyFallback, PolicyStrict:
	case "":
		policy = PolicyFallback
	default:
		return Registry{}, fmt.Errorf("未知的 unknown_platform 策略：%q", policy)
	}

	byKey := make(map[string]Searcher, 2*len(searchers))
	order := make([]domain.Platform, 0, len(searchers))
	for _, s := range searchers {
		if s == nil {
			return Registry{}, fmt.Errorf("searcher 不能为空")
		}
		p := s.Platform()
		if p == "" {
			return Registry{}, fmt.Errorf("searcher.Platform 不能为空")
		}
		for _, k := range []string{domain.FoldKey(string(p)), domain.FoldKey(p.DisplayName())} {
			if prev, ok := byKey[k]; ok && prev.Platform() != p {
				return Registry{}, fmt.Errorf("重复的平台标识：%q", k)
			}
		}
		if _, ok := byKey[domain.FoldKey(string(p))]; ok {
			return Registry{}, fmt.Errorf("重复的平台：%q", p)
		}
		byKey[domain.FoldKey(string(p))] = s
		byKey[domain.FoldKey(p.DisplayName())] = s
		order = append(order, p)
	}

	r := Registry{byKey: byKey, order: order, policy: policy}
	if policy == PolicyFallback {
		if _, ok := r.Get(string(fallback)); !ok {
			return Registry{}, fmt.Errorf("默认平台未注册：%q", fallback)
		}
		r.fallback = fallback
	}
	return r, nil
}

// Get 精确查找（不做 fallback）。
func (r Registry) Get(identifier string) (Searcher, bool) {
	if r.byKey == nil {
		return nil, false
	}
	s, ok := r.byKey[domain.FoldKey(identifier)]
	return s, ok
}

// Resolve 按策略解析平台标识：命中直接返回；未命中时 fallback 或报错。
func (r Registry) Resolve(identifier string) (Searcher, error) {
	if s, ok := r.Get(identifier); ok {
		return s, nil
	}
	if r.policy == PolicyFallback && r.fallback != "" {
		if s, ok := r.Get(string(r.fallback)); ok {
			return s, nil
		}
	}
	return nil, &UnresolvedPlatformError{Identifier: identifier}
}

// Platforms 按注册顺序返回平台（用于菜单/键盘）。
func (r Registry) Platforms() []domain.Platform {
	return append([]domain.Platform(nil), r.order...)
}

func (r Registry) Policy() string { return r.policy }

// Default 返回 fallback 平台；strict 策略下为空。
func (r Registry) Default() domain.Platform { return r.fallback }
