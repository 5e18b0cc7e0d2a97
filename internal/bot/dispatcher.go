package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
	"github.com/John-Robertt/poiskfilmoff/internal/report"
	"github.com/John-Robertt/poiskfilmoff/internal/session"
)

const DefaultDocsURL = "https://kirselev.github.io/poiskfilmoff/#start"

// Message 是一条收到的聊天消息。
type Message struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Reply 是一条待发送的回复。
// ImageURL 非空时传输层应以图片 + caption 发送；Keyboard 非空时附带单列按钮。
type Reply struct {
	Text     string   `json:"text"`
	ImageURL string   `json:"image_url,omitempty"`
	Markdown bool     `json:"markdown,omitempty"`
	Keyboard []string `json:"keyboard,omitempty"`
}

// Dispatcher 把消息路由到命令、平台选择或查询。
type Dispatcher struct {
	Handler  *Handler
	Sessions session.Store
	Style    report.Style

	// DefaultPlatform 用于还没选择过平台的用户。
	DefaultPlatform domain.Platform
	DocsURL         string
	Logger          *slog.Logger
}

func (d *Dispatcher) Handle(ctx context.Context, m Message) []Reply {
	text := strings.TrimSpace(m.Text)
	if cmd, ok := parseCommand(text); ok {
		switch cmd {
		case "start":
			return []Reply{d.start()}
		case "help":
			return []Reply{d.help(m.UserID)}
		case "platform":
			return []Reply{d.platformMenu(m.UserID)}
		case "documentation":
			return []Reply{{Text: "If you want to view the documentation, follow this link: " + d.docsURL()}}
		default:
			return []Reply{d.help(m.UserID)}
		}
	}

	if p, ok := d.selectable(text); ok {
		if err := d.Sessions.Set(m.UserID, p); err != nil {
			d.logger().Error("保存平台选择失败", "user_id", m.UserID, "platform", string(p), "err", err)
			return []Reply{{Text: "Something went wrong while saving your platform. Please try again later."}}
		}
		return []Reply{{Text: fmt.Sprintf("Great! Now I am ready to search for movies in %s. Just type the name of the movie.", p.DisplayName())}}
	}

	p := d.current(m.UserID)
	o := d.Handler.HandleQuery(ctx, m.UserID, string(p), text)
	return []Reply{d.render(p, o)}
}

func (d *Dispatcher) render(p domain.Platform, o domain.Outcome) Reply {
	if o.Platform != "" {
		p = o.Platform
	}
	switch o.Kind {
	case domain.OutcomeMatch:
		msg := report.Format(d.style(), o.Record)
		return Reply{Text: msg.Text, ImageURL: msg.ImageURL, Markdown: d.style() == report.StyleMarkdown}
	case domain.OutcomeNoMatch:
		return Reply{Text: report.NotFound(p)}
	default:
		var upe *provider.UnresolvedPlatformError
		if errors.As(o.Err, &upe) {
			return Reply{
				Text:     fmt.Sprintf("I do not know the platform %q. Please, select one of the platforms below.", upe.Identifier),
				Keyboard: d.keyboard(),
			}
		}
		return Reply{Text: report.Failed(p)}
	}
}

func (d *Dispatcher) start() Reply {
	return Reply{
		Text: "Hi!\nI'm Poiskfilmoff Bot!\nI can help you find your favorite movies. " +
			"To start with, select the platform you are using to watch movies!",
		Keyboard: d.keyboard(),
	}
}

func (d *Dispatcher) help(userID int64) Reply {
	cmd := "/platform"
	md := d.style() == report.StyleMarkdown
	if md {
		cmd = "*/platform*"
	}
	return Reply{
		Text: fmt.Sprintf("Hi!\nI'm Poiskfilmoff Bot!\nI can help you find your favorite movies.\n"+
			"Currently selected platform is %s.\nIf you want to change it, use %s command.",
			d.current(userID).DisplayName(), cmd),
		Markdown: md,
	}
}

func (d *Dispatcher) platformMenu(userID int64) Reply {
	return Reply{
		Text: fmt.Sprintf("Please, select the platform you are using to watch movies! Currently selected platform is %s.",
			d.current(userID).DisplayName()),
		Keyboard: d.keyboard(),
	}
}

// current 返回用户已选平台；未选择时用默认平台。
func (d *Dispatcher) current(userID int64) domain.Platform {
	if d.Sessions != nil {
		if p, ok := d.Sessions.Get(userID); ok {
			return p
		}
	}
	if d.DefaultPlatform != "" {
		return d.DefaultPlatform
	}
	return domain.PlatformOkko
}

// selectable：整条消息恰好是一个已注册平台的 key 或展示名。
func (d *Dispatcher) selectable(text string) (domain.Platform, bool) {
	if d.Sessions == nil {
		return "", false
	}
	s, ok := d.Handler.Registry.Get(text)
	if !ok {
		return "", false
	}
	return s.Platform(), true
}

func (d *Dispatcher) keyboard() []string {
	ps := d.Handler.Registry.Platforms()
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.DisplayName())
	}
	return out
}

func (d *Dispatcher) style() report.Style {
	if d.Style == "" {
		return report.StyleMarkdown
	}
	return d.Style
}

func (d *Dispatcher) docsURL() string {
	if d.DocsURL != "" {
		return d.DocsURL
	}
	return DefaultDocsURL
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// parseCommand 识别 "/cmd" 与群聊里的 "/cmd@botname"，其余参数忽略。
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	f := strings.Fields(text[1:])
	if len(f) == 0 {
		return "", false
	}
	name, _, _ := strings.Cut(f[0], "@")
	return strings.ToLower(name), name != ""
}
