package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
)

// Style 决定字段标签的渲染方式；模板本身（字段顺序/标签文本）固定不变。
type Style string

const (
	// StyleMarkdown 输出 *bold* 标签（聊天客户端的轻量 Markdown）。
	StyleMarkdown Style = "markdown"
	// StylePlain 不带任何标记。
	StylePlain Style = "plain"
	// StyleTerminal 用 ANSI 粗体（控制台 chat 模式）。
	StyleTerminal Style = "terminal"
)

func ParseStyle(s string) (Style, bool) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleMarkdown, "":
		return StyleMarkdown, true
	case StylePlain:
		return StylePlain, true
	case StyleTerminal:
		return StyleTerminal, true
	default:
		return "", false
	}
}

// Message 是一条待发送的报告：有海报时以图片 + caption 发送，否则纯文本。
type Message struct {
	Text     string
	ImageURL string
}

func (m Message) HasImage() bool { return m.ImageURL != "" }

var boldStyle = lipgloss.NewStyle().Bold(true)

func label(style Style, name string) string {
	switch style {
	case StylePlain:
		return name + ":"
	case StyleTerminal:
		return boldStyle.Render(name + ":")
	default:
		return "*" + name + ":*"
	}
}

// Format 按平台模板渲染一个已匹配的 Record。
// 调用方应只对 match 结果调用；Title 缺失时退化为 NotFound 文案。
func Format(style Style, r domain.Record) Message {
	if !r.HasTitle() {
		return Message{Text: NotFound(r.Platform)}
	}

	var b strings.Builder
	switch r.Platform {
	case domain.PlatformOkko:
		fmt.Fprintf(&b, "%s %s", label(style, "Title"), r.Title)
		if r.AlternativeTitle != "" {
			fmt.Fprintf(&b, " (%s)", r.AlternativeTitle)
		}
		b.WriteString("\n")
		if r.Description != "" {
			fmt.Fprintf(&b, "%s %s\n", label(style, "Description"), r.Description)
		}
		if r.Link != "" {
			fmt.Fprintf(&b, "%s %s", label(style, "Link"), r.Link)
		}
		return Message{Text: b.String(), ImageURL: r.PosterURL}

	case domain.PlatformKinoPoisk:
		fmt.Fprintf(&b, "%s %s\n", label(style, "Title"), r.Title)
		if r.Year != "" {
			fmt.Fprintf(&b, "%s %s\n", label(style, "Year"), r.Year)
		}
		if r.Link != "" {
			fmt.Fprintf(&b, "%s %s", label(style, "Link"), r.Link)
		}
		// KinoPoisk 的搜索页不提供海报：始终纯文本。
		return Message{Text: b.String()}

	case domain.PlatformFilmRu:
		fmt.Fprintf(&b, "%s %s\n", label(style, "Title"), r.Title)
		if r.Rating != "" {
			fmt.Fprintf(&b, "%s %s\n", label(style, "Rating"), r.Rating)
		}
		if r.Link != "" {
			fmt.Fprintf(&b, "%s %s", label(style, "Link"), r.Link)
		}
		return Message{Text: b.String(), ImageURL: r.PosterURL}

	default:
		fmt.Fprintf(&b, "%s %s\n", label(style, "Title"), r.Title)
		if r.Link != "" {
			fmt.Fprintf(&b, "%s %s", label(style, "Link"), r.Link)
		}
		return Message{Text: b.String(), ImageURL: r.PosterURL}
	}
}

// NotFound 是 no_match 时的固定文案。
func NotFound(p domain.Platform) string {
	return fmt.Sprintf("Unfortunately, I could not find this movie in %s. Check for typos or try another one.", p.DisplayName())
}

// Failed 是 TransportFailure 时的文案（“没查到”与“查不了”必须区分）。
func Failed(p domain.Platform) string {
	return fmt.Sprintf("Something went wrong while checking %s. Please try again later.", p.DisplayName())
}
