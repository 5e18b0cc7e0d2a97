package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/poiskfilmoff/internal/bot"
	"github.com/John-Robertt/poiskfilmoff/internal/config"
)

// console 是 chat 子命令的行式传输层：每行输入是一条消息，回复带时间戳打印。
type console struct {
	w   io.Writer
	now func() time.Time

	mu sync.Mutex
}

func newConsole(w io.Writer, now func() time.Time) *console {
	if now == nil {
		now = time.Now
	}
	return &console{w: w, now: now}
}

func (c *console) banner(eff config.EffectiveConfig, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "[%s] poiskfilmoff chat (user=%d)\n", c.now().Format("15:04:05"), userID)
	fmt.Fprintln(c.w, "配置（生效）:")
	fmt.Fprintf(c.w, "  config: %s\n", orNone(eff.Source))
	fmt.Fprintf(c.w, "  default_platform: %s\n", eff.DefaultPlatform.DisplayName())
	fmt.Fprintf(c.w, "  unknown_platform: %s\n", eff.UnknownPlatform)
	fmt.Fprintf(c.w, "  threshold: %d\n", eff.Threshold)
	fmt.Fprintf(c.w, "  request_timeout: %s\n", formatShortDuration(eff.RequestTimeout))
	fmt.Fprintf(c.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(c.w, "  session_file: %s\n", orNone(eff.SessionFile))
	fmt.Fprintln(c.w, "输入影片名开始查询；/start /help /platform /documentation；/quit 退出。")
	fmt.Fprintln(c.w)
}

// replies 打印一组回复；elapsed 是本条消息的处理耗时。
func (c *console) replies(rs []bot.Reply, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().Format("15:04:05")
	pad := strings.Repeat(" ", len(ts)+3)
	for _, r := range rs {
		lines := strings.Split(strings.TrimRight(r.Text, "\n"), "\n")
		for i, l := range lines {
			if i == 0 {
				fmt.Fprintf(c.w, "[%s] %s\n", ts, l)
				continue
			}
			fmt.Fprintf(c.w, "%s%s\n", pad, l)
		}
		if r.ImageURL != "" {
			fmt.Fprintf(c.w, "%sposter: %s\n", pad, truncate(r.ImageURL, 160))
		}
		if len(r.Keyboard) > 0 {
			fmt.Fprintf(c.w, "%s%s\n", pad, formatKeyboard(r.Keyboard))
		}
	}
	fmt.Fprintf(c.w, "%s(%s)\n", pad, formatShortDuration(elapsed))
}

func (c *console) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, "> ")
}

func runChat(ctx context.Context, a *app, userID int64, in io.Reader, c *console) error {
	c.banner(a.eff, userID)

	sc := bufio.NewScanner(in)
	c.prompt()
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			c.prompt()
			continue
		case "/quit", "/exit":
			return nil
		}

		start := c.now()
		rs := a.dispatcher.Handle(ctx, bot.Message{UserID: userID, Text: line})
		c.replies(rs, c.now().Sub(start))

		if ctx.Err() != nil {
			return nil
		}
		c.prompt()
	}
	return sc.Err()
}

func formatKeyboard(buttons []string) string {
	parts := make([]string, 0, len(buttons))
	for _, b := range buttons {
		parts = append(parts, "["+b+"]")
	}
	return strings.Join(parts, " ")
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
