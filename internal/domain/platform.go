package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Platform 是受支持的影片站点标识（小写 key，稳定，可落盘）。
type Platform string

const (
	PlatformOkko      Platform = "okko"
	PlatformKinoPoisk Platform = "kinopoisk"
	PlatformFilmRu    Platform = "filmru"
)

// Platforms 按菜单顺序列出全部平台。
var Platforms = []Platform{PlatformOkko, PlatformKinoPoisk, PlatformFilmRu}

// DisplayName 返回面向用户的平台名（聊天键盘上的按钮文本）。
func (p Platform) DisplayName() string {
	switch p {
	case PlatformOkko:
		return "Ökko"
	case PlatformKinoPoisk:
		return "KinoPoisk"
	case PlatformFilmRu:
		return "Film.Ru"
	default:
		return string(p)
	}
}

// ParsePlatform 接受 key（okko）或展示名（Ökko），大小写与 Unicode 组合形式不敏感。
func ParsePlatform(s string) (Platform, bool) {
	k := FoldKey(s)
	if k == "" {
		return "", false
	}
	for _, p := range Platforms {
		if k == FoldKey(string(p)) || k == FoldKey(p.DisplayName()) {
			return p, true
		}
	}
	return "", false
}

// FoldKey 把标识符规范化为可比较的 key：NFC + case folding。
// 键盘按钮 "Ökko" 在不同客户端可能以 NFD 形式回传，必须先做 NFC。
func FoldKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}
