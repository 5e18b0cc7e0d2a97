package domain

import "strings"

// Record 是一次平台查询得到的结构化结果（按平台只填充其中一部分字段）。
//
// 约束：
// - 空字符串表示“缺失”；全部字段缺失即 empty sentinel（没有可信匹配）
// - Title 存在是“匹配”的必要条件
// - 创建后按值传递，不再修改
//
// 各平台使用的字段：
// - okko：Title / AlternativeTitle / PosterURL / Description / Link
// - kinopoisk：Title / Year / Link
// - filmru：Title / Rating / PosterURL / Link
type Record struct {
	Platform Platform `json:"platform,omitempty"`

	Title            string `json:"title,omitempty"`
	AlternativeTitle string `json:"alternative_title,omitempty"`
	Description      string `json:"description,omitempty"`
	PosterURL        string `json:"poster_url,omitempty"`
	Link             string `json:"link,omitempty"`
	Year             string `json:"year,omitempty"`
	Rating           string `json:"rating,omitempty"`
}

// IsEmpty 判断是否为 empty sentinel（Platform 只是来源标记，不参与判断）。
func (r Record) IsEmpty() bool {
	return r.Title == "" &&
		r.AlternativeTitle == "" &&
		r.Description == "" &&
		r.PosterURL == "" &&
		r.Link == "" &&
		r.Year == "" &&
		r.Rating == ""
}

func (r Record) HasTitle() bool { return strings.TrimSpace(r.Title) != "" }
