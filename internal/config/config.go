package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/match"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
	"github.com/John-Robertt/poiskfilmoff/internal/report"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/.env/环境变量无法读取、解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultPlatform       = domain.PlatformOkko
	DefaultRequestTimeout = 20 * time.Second
	DefaultListen         = ":8080"

	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)

// EnvPrefix 是全部环境变量的前缀，例如 POISKFILMOFF_STYLE。
const EnvPrefix = "POISKFILMOFF_"

// 自动发现的配置文件名，按顺序取第一个存在的。
var fileNames = []string{"poiskfilmoff.yaml", "poiskfilmoff.yml", "poiskfilmoff.json"}

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖下层来源（包括覆盖为同值）。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时在 cwd 下自动发现（可选）。
	ConfigPath string

	Platform    string
	PlatformSet bool

	Style    string
	StyleSet bool

	Listen    string
	ListenSet bool
}

// FileConfig 对应 poiskfilmoff.yaml 的结构（JSON 文件用同一个解析器）。
type FileConfig struct {
	DefaultPlatform string      `yaml:"default_platform"`
	UnknownPlatform string      `yaml:"unknown_platform"`
	Threshold       int         `yaml:"threshold"`
	RequestTimeout  string      `yaml:"request_timeout"`
	Proxy           ProxyConfig `yaml:"proxy"`
	Style           string      `yaml:"style"`
	Listen          string      `yaml:"listen"`
	SessionFile     string      `yaml:"session_file"`
	BaseURLs        BaseURLs    `yaml:"base_urls"`
	Log             LogConfig   `yaml:"log"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

// BaseURLs 覆盖各平台站点根地址（镜像、测试替身）。空值使用内置默认。
type BaseURLs struct {
	Okko      string `yaml:"okko"`
	KinoPoisk string `yaml:"kinopoisk"`
	FilmRu    string `yaml:"filmru"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   *bool  `yaml:"compress"`
}

// EffectiveConfig 是合并、默认值填充与校验之后的最终配置。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件；没有配置文件时为空。
	Source string

	DefaultPlatform domain.Platform
	UnknownPlatform string
	Threshold       int
	RequestTimeout  time.Duration
	ProxyURL        string
	Style           report.Style
	Listen          string
	// SessionFile 为空表示只在内存中保存用户的平台选择。
	SessionFile string
	BaseURLs    BaseURLs
	Log         EffectiveLog
}

type EffectiveLog struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Loader 把文件系统与环境变量作为依赖注入，测试用 afero.MemMapFs 与 map。
type Loader struct {
	Fs        afero.Fs
	LookupEnv func(string) (string, bool)
}

// LoadEffective 使用真实文件系统与进程环境变量。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	return Loader{Fs: afero.NewOsFs(), LookupEnv: os.LookupEnv}.LoadEffective(cwd, cli)
}

// LoadEffective 发现并读取配置，然后按固定优先级合并：
//
//	CLI > 进程环境变量 > <cwd>/.env > 配置文件 > 内置默认
//
// 发现规则：
// 1) --config 给出路径：必须存在（相对路径以 cwd 为基准）
// 2) 否则依次尝试 <cwd>/poiskfilmoff.yaml|.yml|.json，都不存在也不报错
func (l Loader) LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		var exists bool
		fc, exists, err = readFileConfig(fs, cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range fileNames {
			p := filepath.Join(cwdAbs, name)
			c, exists, err := readFileConfig(fs, p)
			if err != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
			}
			if exists {
				cfgPath, fc = p, c
				break
			}
		}
	}

	dotenvPath := filepath.Join(cwdAbs, ".env")
	dotenv, err := readDotenv(fs, dotenvPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: dotenvPath, Err: err}
	}
	env := func(key string) (string, bool) {
		key = EnvPrefix + key
		if l.LookupEnv != nil {
			if v, ok := l.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&fc, env); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: "env", Err: err}
	}
	if cli.PlatformSet {
		fc.DefaultPlatform = cli.Platform
	}
	if cli.StyleSet {
		fc.Style = cli.Style
	}
	if cli.ListenSet {
		fc.Listen = cli.Listen
	}

	ec, err := resolve(cwdAbs, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	ec.Source = cfgPath
	return ec, nil
}

// applyEnv 用环境变量覆盖文件值；未设置的变量不改变文件值。
func applyEnv(fc *FileConfig, env func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"DEFAULT_PLATFORM", &fc.DefaultPlatform},
		{"UNKNOWN_PLATFORM", &fc.UnknownPlatform},
		{"REQUEST_TIMEOUT", &fc.RequestTimeout},
		{"PROXY_URL", &fc.Proxy.URL},
		{"STYLE", &fc.Style},
		{"LISTEN", &fc.Listen},
		{"SESSION_FILE", &fc.SessionFile},
		{"OKKO_BASE_URL", &fc.BaseURLs.Okko},
		{"KINOPOISK_BASE_URL", &fc.BaseURLs.KinoPoisk},
		{"FILMRU_BASE_URL", &fc.BaseURLs.FilmRu},
		{"LOG_FILE", &fc.Log.File},
		{"LOG_LEVEL", &fc.Log.Level},
	}
	for _, s := range strs {
		if v, ok := env(s.key); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"THRESHOLD", &fc.Threshold},
		{"LOG_MAX_SIZE_MB", &fc.Log.MaxSizeMB},
		{"LOG_MAX_BACKUPS", &fc.Log.MaxBackups},
		{"LOG_MAX_AGE_DAYS", &fc.Log.MaxAgeDays},
	}
	for _, i := range ints {
		v, ok := env(i.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s 必须是整数：%q", EnvPrefix, i.key, v)
		}
		*i.dst = n
	}

	if v, ok := env("LOG_COMPRESS"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sLOG_COMPRESS 必须是布尔值：%q", EnvPrefix, v)
		}
		fc.Log.Compress = &b
	}
	return nil
}

// resolve 填充默认值并校验，得到最终配置。
func resolve(cwdAbs string, fc FileConfig) (EffectiveConfig, error) {
	ec := EffectiveConfig{
		DefaultPlatform: DefaultPlatform,
		UnknownPlatform: provider.PolicyFallback,
		Threshold:       match.DefaultThreshold,
		RequestTimeout:  DefaultRequestTimeout,
		Style:           report.StyleMarkdown,
		Listen:          DefaultListen,
		Log: EffectiveLog{
			Level:      "info",
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}

	if s := strings.TrimSpace(fc.DefaultPlatform); s != "" {
		p, ok := domain.ParsePlatform(s)
		if !ok {
			return EffectiveConfig{}, fmt.Errorf("default_platform 只能是 okko、kinopoisk 或 filmru，实际是 %q", s)
		}
		ec.DefaultPlatform = p
	}

	switch s := strings.ToLower(strings.TrimSpace(fc.UnknownPlatform)); s {
	case "":
	case provider.PolicyFallback, provider.PolicyStrict:
		ec.UnknownPlatform = s
	default:
		return EffectiveConfig{}, fmt.Errorf("unknown_platform 只能是 fallback 或 strict，实际是 %q", fc.UnknownPlatform)
	}

	if fc.Threshold < 0 {
		return EffectiveConfig{}, fmt.Errorf("threshold 不能为负数：%d", fc.Threshold)
	}
	if fc.Threshold > 0 {
		ec.Threshold = fc.Threshold
	}

	if s := strings.TrimSpace(fc.RequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("request_timeout 必须是正的时长（例如 20s）：%q", s)
		}
		ec.RequestTimeout = d
	}

	if s := strings.TrimSpace(fc.Proxy.URL); s != "" {
		if err := validateHTTPURL("proxy.url", s); err != nil {
			return EffectiveConfig{}, err
		}
		ec.ProxyURL = s
	}

	style, ok := report.ParseStyle(fc.Style)
	if !ok {
		return EffectiveConfig{}, fmt.Errorf("style 只能是 markdown、plain 或 terminal，实际是 %q", fc.Style)
	}
	ec.Style = style

	if s := strings.TrimSpace(fc.Listen); s != "" {
		ec.Listen = s
	}
	if s := strings.TrimSpace(fc.SessionFile); s != "" {
		ec.SessionFile = absCleanFrom(cwdAbs, s)
	}

	for _, b := range []struct {
		name string
		src  string
		dst  *string
	}{
		{"base_urls.okko", fc.BaseURLs.Okko, &ec.BaseURLs.Okko},
		{"base_urls.kinopoisk", fc.BaseURLs.KinoPoisk, &ec.BaseURLs.KinoPoisk},
		{"base_urls.filmru", fc.BaseURLs.FilmRu, &ec.BaseURLs.FilmRu},
	} {
		s := strings.TrimSpace(b.src)
		if s == "" {
			continue
		}
		if err := validateHTTPURL(b.name, s); err != nil {
			return EffectiveConfig{}, err
		}
		*b.dst = strings.TrimRight(s, "/")
	}

	if s := strings.TrimSpace(fc.Log.File); s != "" {
		ec.Log.File = absCleanFrom(cwdAbs, s)
	}
	if s := strings.ToLower(strings.TrimSpace(fc.Log.Level)); s != "" {
		switch s {
		case "debug", "info", "warn", "error":
			ec.Log.Level = s
		default:
			return EffectiveConfig{}, fmt.Errorf("log.level 只能是 debug、info、warn 或 error，实际是 %q", fc.Log.Level)
		}
	}
	if fc.Log.MaxSizeMB > 0 {
		ec.Log.MaxSizeMB = fc.Log.MaxSizeMB
	}
	if fc.Log.MaxBackups > 0 {
		ec.Log.MaxBackups = fc.Log.MaxBackups
	}
	if fc.Log.MaxAgeDays > 0 {
		ec.Log.MaxAgeDays = fc.Log.MaxAgeDays
	}
	if fc.Log.Compress != nil {
		ec.Log.Compress = *fc.Log.Compress
	}
	return ec, nil
}

func validateHTTPURL(field, s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, s)
	}
	if u.Scheme != "http" && u.Scheme != "https" && !strings.HasPrefix(u.Scheme, "socks5") {
		return fmt.Errorf("%s 的 scheme 不受支持：%q", field, s)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// readFileConfig 读取并解析配置文件（YAML；JSON 作为 YAML 的子集同样可读）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。未知字段报错，避免拼写错误被静默忽略。
func readFileConfig(fs afero.Fs, path string) (fc FileConfig, exists bool, err error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

// readDotenv 读取 .env（可选）。只解析，不写入进程环境。
func readDotenv(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}
