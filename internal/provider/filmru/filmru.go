package filmru

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
)

const defaultBaseURL = "https://www.film.ru"

// 固定位置假设：结果页的扁平 div 列表里，第 cardDiv 个 div 包含第一张影片卡片；
// 少于 minDivs 个 div 时页面是“无结果”版式。
const (
	minDivs = 54
	cardDiv = 32
)

// Searcher 实现 Film.Ru 的搜索页解析。
//
// 约束：
// - 只请求一次（卡片上已带片名/评分/海报/链接）
// - div 数量不足或卡片缺失 => 空 Record（视为 no_match）
type Searcher struct {
	BaseURL string
}

func (Searcher) Platform() domain.Platform { return domain.PlatformFilmRu }

// FetchCandidate：https://www.film.ru/search/result?text=<w1>+<w2>+&type=all
func (s Searcher) FetchCandidate(ctx context.Context, q domain.Query, c provider.Doer) (domain.Record, error) {
	if q == "" {
		return domain.Record{}, errors.New("query 不能为空")
	}
	base := provider.BaseURL(s.BaseURL, defaultBaseURL)

	b, err := provider.Fetch(ctx, c, SearchURL(base, q))
	if err != nil {
		return domain.Record{}, err
	}
	return Parse(b, base)
}

// SearchURL 逐词转义后用 '+' 拼接（每个词后都跟一个 '+'，与站点表单提交的形式一致）。
func SearchURL(base string, q domain.Query) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString("/search/result?text=")
	for _, w := range q.Words() {
		b.WriteString(url.QueryEscape(w))
		b.WriteByte('+')
	}
	b.WriteString("&type=all")
	return b.String()
}

// Parse 从搜索结果页提取第一张影片卡片。
func Parse(html []byte, base string) (domain.Record, error) {
	doc, err := provider.ParseHTML(html)
	if err != nil {
		return domain.Record{}, err
	}

	divs := doc.Find("div")
	if divs.Length() < minDivs {
		return domain.Record{}, nil
	}
	card := divs.Eq(cardDiv).Find("a").First()
	if card.Length() == 0 {
		return domain.Record{}, nil
	}

	root := strings.TrimRight(base, "/") + "/"
	var r domain.Record
	if src, ok := card.Find("img").First().Attr("src"); ok {
		r.PosterURL = provider.ResolveURL(root, src)
	}
	strongs := card.Find("strong")
	r.Title = provider.NormSpace(strongs.Eq(0).Text())
	r.Rating = provider.NormSpace(strongs.Eq(1).Text())
	if href, ok := card.Attr("href"); ok {
		r.Link = provider.ResolveURL(root, href)
	}
	return r, nil
}
