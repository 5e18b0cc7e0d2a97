package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/poiskfilmoff/internal/bot"
	"github.com/John-Robertt/poiskfilmoff/internal/config"
	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/infra/httpx"
	"github.com/John-Robertt/poiskfilmoff/internal/infra/logx"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
	"github.com/John-Robertt/poiskfilmoff/internal/provider/filmru"
	"github.com/John-Robertt/poiskfilmoff/internal/provider/kinopoisk"
	"github.com/John-Robertt/poiskfilmoff/internal/provider/okko"
	"github.com/John-Robertt/poiskfilmoff/internal/report"
	"github.com/John-Robertt/poiskfilmoff/internal/server"
	"github.com/John-Robertt/poiskfilmoff/internal/session"
)

// errNoMatch：查询正常结束但没有匹配，进程以 1 退出且不再额外打印。
var errNoMatch = errors.New("no match")

const shutdownTimeout = 10 * time.Second

// environment 是命令运行所需的外部依赖，测试里替换为内存文件系统与假环境变量。
type environment struct {
	Cwd    string
	Loader config.Loader
	Now    func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}
	env := environment{
		Cwd:    cwd,
		Loader: config.Loader{Fs: afero.NewOsFs(), LookupEnv: os.LookupEnv},
		Now:    time.Now,
	}
	os.Exit(exitCode(execute(ctx, os.Args[1:], env, os.Stdin, os.Stdout, os.Stderr), os.Stderr))
}

func execute(ctx context.Context, args []string, env environment, in io.Reader, out, errOut io.Writer) error {
	cmd := newRootCmd(env, in, out, errOut)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func exitCode(err error, errOut io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoMatch):
		return 1
	default:
		if c := config.Code(err); c != "" {
			fmt.Fprintf(errOut, "配置错误：%v\n", err)
			return 2
		}
		fmt.Fprintln(errOut, err)
		return 1
	}
}

type rootFlags struct {
	config   string
	platform string
	style    string
}

func newRootCmd(env environment, in io.Reader, out, errOut io.Writer) *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:           "poiskfilmoff",
		Short:         "Find a movie on Ökko, KinoPoisk or Film.Ru",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.config, "config", "", "配置文件路径（默认在当前目录查找 poiskfilmoff.yaml|.yml|.json）")
	pf.StringVar(&rf.platform, "platform", "", "默认平台：okko|kinopoisk|filmru")
	pf.StringVar(&rf.style, "style", "", "报告样式：markdown|plain|terminal")

	cliArgs := func(cmd *cobra.Command) config.CLIArgs {
		return config.CLIArgs{
			ConfigPath:  rf.config,
			Platform:    rf.platform,
			PlatformSet: cmd.Flags().Changed("platform"),
			Style:       rf.style,
			StyleSet:    cmd.Flags().Changed("style"),
		}
	}

	searchCmd := &cobra.Command{
		Use:   "search <platform> <title...>",
		Short: "Search one platform for a movie title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(env, cliArgs(cmd), errOut, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runSearch(cmd.Context(), a, args[0], strings.Join(args[1:], " "), out)
		},
	}

	var listen string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat gateway over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli := cliArgs(cmd)
			cli.Listen, cli.ListenSet = listen, cmd.Flags().Changed("listen")
			a, err := buildApp(env, cli, errOut, true)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(cmd.Context(), a)
		},
	}
	serveCmd.Flags().StringVar(&listen, "listen", "", "监听地址（默认 :8080）")

	var userID int64
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(env, cliArgs(cmd), errOut, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd.Context(), a, userID, in, newConsole(out, env.Now))
		},
	}
	chatCmd.Flags().Int64Var(&userID, "user", 1, "模拟的聊天用户 id（决定使用哪条平台选择记录）")

	root.AddCommand(searchCmd, serveCmd, chatCmd)
	return root
}

// app 是按生效配置装配好的运行时组件。
type app struct {
	eff        config.EffectiveConfig
	log        *slog.Logger
	handler    *bot.Handler
	dispatcher *bot.Dispatcher
	closeLog   func() error
}

func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func buildApp(env environment, cli config.CLIArgs, errOut io.Writer, jsonLog bool) (*app, error) {
	eff, err := env.Loader.LoadEffective(env.Cwd, cli)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logx.New(errOut, logx.Options{
		Level:      eff.Log.Level,
		File:       eff.Log.File,
		MaxSizeMB:  eff.Log.MaxSizeMB,
		MaxBackups: eff.Log.MaxBackups,
		MaxAgeDays: eff.Log.MaxAgeDays,
		Compress:   eff.Log.Compress,
		JSON:       jsonLog,
	})
	if err != nil {
		return nil, err
	}

	client, err := httpx.NewClient(eff.ProxyURL, eff.RequestTimeout)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}

	reg, err := provider.NewRegistry(eff.UnknownPlatform, eff.DefaultPlatform,
		okko.Searcher{BaseURL: eff.BaseURLs.Okko},
		kinopoisk.Searcher{BaseURL: eff.BaseURLs.KinoPoisk},
		filmru.Searcher{BaseURL: eff.BaseURLs.FilmRu},
	)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("初始化平台 registry 失败：%w", err)
	}

	var store session.Store = session.NewMemoryStore()
	if eff.SessionFile != "" {
		fileStore, err := session.OpenFileStore(eff.SessionFile)
		if err != nil {
			_ = closeLog()
			return nil, err
		}
		store = fileStore
	}

	h := &bot.Handler{Registry: reg, Client: client, Threshold: eff.Threshold, Logger: log}
	return &app{
		eff:     eff,
		log:     log,
		handler: h,
		dispatcher: &bot.Dispatcher{
			Handler:         h,
			Sessions:        store,
			Style:           eff.Style,
			DefaultPlatform: eff.DefaultPlatform,
			Logger:          log,
		},
		closeLog: closeLog,
	}, nil
}

func runSearch(ctx context.Context, a *app, platform, title string, out io.Writer) error {
	o := a.handler.HandleQuery(ctx, 0, platform, title)
	switch o.Kind {
	case domain.OutcomeMatch:
		m := report.Format(a.eff.Style, o.Record)
		fmt.Fprintln(out, strings.TrimRight(m.Text, "\n"))
		if m.HasImage() {
			fmt.Fprintf(out, "Poster: %s\n", m.ImageURL)
		}
		return nil
	case domain.OutcomeNoMatch:
		fmt.Fprintln(out, report.NotFound(o.Platform))
		return errNoMatch
	default:
		var upe *provider.UnresolvedPlatformError
		if errors.As(o.Err, &upe) {
			return o.Err
		}
		fmt.Fprintln(out, report.Failed(o.Platform))
		return o.Err
	}
}

func runServe(ctx context.Context, a *app) error {
	srv := &server.Server{Handler: a.handler, Dispatcher: a.dispatcher, Logger: a.log}
	hs := &http.Server{
		Addr:              a.eff.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	a.log.Info("服务已启动", "listen", a.eff.Listen, "default_platform", string(a.eff.DefaultPlatform), "config", a.eff.Source)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sc, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("正在关闭服务")
		return hs.Shutdown(sc)
	}
}
