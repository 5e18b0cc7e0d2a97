package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Query 是用户输入的影片名（规范化后：NFC + 小写 + 单空格分隔）。
//
// 约束：每条消息创建一次，只用于一次 searcher 调用。
type Query string

// ParseQuery 规范化原始输入；空输入返回 false。
func ParseQuery(raw string) (Query, bool) {
	s := FoldTitle(raw)
	if s == "" {
		return "", false
	}
	return Query(s), true
}

// FoldTitle 把任意标题折叠成与 Query 相同的形态（NFC + 单空格 + 小写），
// 候选标题必须经过它再与 Query 比较。
func FoldTitle(raw string) string {
	s := strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
	if s == "" {
		return ""
	}
	// cases.Caser 有状态，不能跨 goroutine 共享，这里每次新建。
	return cases.Lower(language.Und).String(s)
}

// Words 返回按空格切分的词（Film.Ru 的搜索 URL 需要逐词拼接）。
func (q Query) Words() []string { return strings.Fields(string(q)) }

func (q Query) String() string { return string(q) }
