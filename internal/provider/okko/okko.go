package okko

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
)

const defaultBaseURL = "https://okko.tv"

// 搜索页出现该文案即表示“没有结果”。
const noResultsMarker = "Увы, мы ничего не нашли"

// 详情页选择器。Okko 的 class 是构建产物（哈希），站点改版时只需改这里。
const (
	titleSel       = "h1.LOjIO"
	altTitleSel    = "h2._1lODb"
	posterSel      = "source[type='image/jpeg']"
	descriptionSel = "p._3Zh7s span"
)

// Searcher 实现 Okko 的搜索与详情页解析。
//
// 约束：
// - 先搜索再进入详情页（两次请求）；搜索页命中“无结果”文案时只请求一次
// - 匹配判定同时参考 Title 与 AlternativeTitle（由 provider.Accept 完成）
type Searcher struct {
	// BaseURL 为空时使用 https://okko.tv（测试时指向 httptest server）。
	BaseURL string
}

func (Searcher) Platform() domain.Platform { return domain.PlatformOkko }

// FetchCandidate：https://okko.tv/search/<query> -> 第一个 /movie/ 链接 -> 详情页。
func (s Searcher) FetchCandidate(ctx context.Context, q domain.Query, c provider.Doer) (domain.Record, error) {
	if q == "" {
		return domain.Record{}, errors.New("query 不能为空")
	}
	base := provider.BaseURL(s.BaseURL, defaultBaseURL)

	// 查询作为原始路径段（仅做 path 转义）。
	searchHTML, err := provider.Fetch(ctx, c, base+"/search/"+url.PathEscape(string(q)))
	if err != nil {
		return domain.Record{}, err
	}

	href, found, err := findMovieHref(searchHTML)
	if err != nil {
		return domain.Record{}, err
	}
	if !found {
		return domain.Record{}, nil
	}

	pageURL := provider.ResolveURL(base+"/", href)
	detailHTML, err := provider.Fetch(ctx, c, pageURL)
	if err != nil {
		return domain.Record{}, err
	}
	return Parse(detailHTML, pageURL)
}

// findMovieHref 在搜索页中找到第一个影片详情链接。
// “无结果”文案或没有任何 /movie/ 链接 => found=false。
func findMovieHref(searchHTML []byte) (href string, found bool, err error) {
	doc, err := provider.ParseHTML(searchHTML)
	if err != nil {
		return "", false, err
	}

	empty := false
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.Contains(p.Text(), noResultsMarker) {
			empty = true
			return false
		}
		return true
	})
	if empty {
		return "", false, nil
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, "/movie/") {
			href, found = strings.TrimSpace(h), true
			return false
		}
		return true
	})
	return href, found, nil
}

// Parse 把详情页 HTML 解析为候选 Record（缺失的元素只留空字段）。
func Parse(html []byte, pageURL string) (domain.Record, error) {
	doc, err := provider.ParseHTML(html)
	if err != nil {
		return domain.Record{}, err
	}

	r := domain.Record{
		Title:            provider.StripGuillemets(provider.NormSpace(doc.Find(titleSel).First().Text())),
		AlternativeTitle: provider.NormSpace(doc.Find(altTitleSel).First().Text()),
		Description:      provider.TruncateWords(doc.Find(descriptionSel).First().Text(), provider.DescriptionWords),
		Link:             strings.TrimSpace(pageURL),
	}

	// srcset 形如 "//static.okko.tv/img/1.jpg?w=300 1x, //static.okko.tv/img/1.jpg?w=600 2x"，取第一个 URL。
	if srcset, ok := doc.Find(posterSel).First().Attr("srcset"); ok {
		if f := strings.Fields(srcset); len(f) > 0 {
			r.PosterURL = provider.ResolveURL(pageURL, strings.TrimSuffix(f[0], ","))
		}
	}
	return r, nil
}
