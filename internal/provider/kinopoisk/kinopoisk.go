package kinopoisk

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
)

const defaultBaseURL = "https://www.kinopoisk.ru"

// 搜索页第一个 <p> 以该文案开头时，表示站点给出了“最可能的结果”。
const bestGuessMarker = "Скорее всего, вы ищете"

// 固定位置假设：p[0] 是提示语，p[1] 带链接，p[2] 带片名与年份。
const minParagraphs = 3

// Searcher 实现 KinoPoisk 的搜索页解析。
//
// 约束：
// - 只请求一次（答案直接嵌在搜索页里）
// - 段落数量不足或 p[0] 不是提示语 => 空 Record（视为 no_match，而不是越界）
type Searcher struct {
	BaseURL string
}

func (Searcher) Platform() domain.Platform { return domain.PlatformKinoPoisk }

// FetchCandidate：https://www.kinopoisk.ru/index.php?kp_query=<query>
func (s Searcher) FetchCandidate(ctx context.Context, q domain.Query, c provider.Doer) (domain.Record, error) {
	if q == "" {
		return domain.Record{}, errors.New("query 不能为空")
	}
	base := provider.BaseURL(s.BaseURL, defaultBaseURL)

	b, err := provider.Fetch(ctx, c, base+"/index.php?kp_query="+url.QueryEscape(string(q)))
	if err != nil {
		return domain.Record{}, err
	}
	return Parse(b, base)
}

// Parse 从搜索结果页提取候选；base 用于把 data-url 解析为绝对链接。
func Parse(html []byte, base string) (domain.Record, error) {
	doc, err := provider.ParseHTML(html)
	if err != nil {
		return domain.Record{}, err
	}

	ps := doc.Find("p")
	if ps.Length() < minParagraphs {
		return domain.Record{}, nil
	}
	if !strings.Contains(ps.Eq(0).Text(), bestGuessMarker) {
		return domain.Record{}, nil
	}

	var r domain.Record
	if dataURL, ok := ps.Eq(1).Find("a").First().Attr("data-url"); ok {
		r.Link = provider.ResolveURL(strings.TrimRight(base, "/")+"/", dataURL)
	}
	info := ps.Eq(2)
	r.Title = provider.NormSpace(info.Find("a").First().Text())
	r.Year = provider.NormSpace(info.Find("span").First().Text())
	return r, nil
}
