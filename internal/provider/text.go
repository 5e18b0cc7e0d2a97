package provider

import "strings"

// DescriptionWords 是描述截断保留的词数。
const DescriptionWords = 50

func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// StripGuillemets 去掉包在标题外层的书名号：«Example» => Example。
// 只认开头的 '«' 与最后一个 '»'；没有成对出现时原样返回。
func StripGuillemets(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "«") {
		return s
	}
	end := strings.LastIndex(s, "»")
	if end < len("«") {
		return s
	}
	return strings.TrimSpace(s[len("«"):end])
}

// TruncateWords 保留前 n 个空白分隔的词，用单空格连接并追加 "..."。
// 空描述返回空串（字段缺失）。
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ") + "..."
}
