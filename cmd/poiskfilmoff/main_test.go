package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/poiskfilmoff/internal/bot"
	"github.com/John-Robertt/poiskfilmoff/internal/config"
)

const kinopoiskPage = `<html><body>
<p>Скорее всего, вы ищете:</p>
<p><a data-url="/film/447301/sr/1/" href="#">Начало</a></p>
<p><a href="#">Начало</a>, <span>2010</span></p>
</body></html>`

// fakeKinoPoisk 模拟 KinoPoisk 搜索页，并统计请求次数。
func fakeKinoPoisk(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(kinopoiskPage))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testEnv(files, env map[string]string) environment {
	fs := afero.NewMemMapFs()
	for name, body := range files {
		_ = afero.WriteFile(fs, "/work/"+name, []byte(body), 0o644)
	}
	return environment{
		Cwd: "/work",
		Loader: config.Loader{Fs: fs, LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}},
		Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func runCLI(t *testing.T, e environment, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), args, e, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestSearch_MatchPrintsReport(t *testing.T) {
	srv, calls := fakeKinoPoisk(t, http.StatusOK)
	e := testEnv(nil, map[string]string{"POISKFILMOFF_KINOPOISK_BASE_URL": srv.URL})

	out, _, err := runCLI(t, e, "", "search", "KinoPoisk", "Начлао")
	require.NoError(t, err)
	assert.Equal(t, "*Title:* Начало\n*Year:* 2010\n*Link:* "+srv.URL+"/film/447301/sr/1/\n", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestSearch_PlainStyleFlag(t *testing.T) {
	srv, _ := fakeKinoPoisk(t, http.StatusOK)
	e := testEnv(nil, map[string]string{"POISKFILMOFF_KINOPOISK_BASE_URL": srv.URL})

	out, _, err := runCLI(t, e, "", "search", "--style", "plain", "kinopoisk", "Начало")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Title: Начало\n"), out)
}

func TestSearch_NoMatchExitCode(t *testing.T) {
	srv, _ := fakeKinoPoisk(t, http.StatusOK)
	e := testEnv(nil, map[string]string{"POISKFILMOFF_KINOPOISK_BASE_URL": srv.URL})

	var errOut bytes.Buffer
	out, _, err := runCLI(t, e, "", "search", "kinopoisk", "Зелёная", "миля")
	assert.ErrorIs(t, err, errNoMatch)
	assert.Equal(t, "Unfortunately, I could not find this movie in KinoPoisk. Check for typos or try another one.\n", out)
	assert.Equal(t, 1, exitCode(err, &errOut))
	assert.Empty(t, errOut.String(), "no match 不应额外输出错误")
}

func TestSearch_UpstreamFailure(t *testing.T) {
	srv, _ := fakeKinoPoisk(t, http.StatusServiceUnavailable)
	e := testEnv(nil, map[string]string{"POISKFILMOFF_KINOPOISK_BASE_URL": srv.URL})

	out, _, err := runCLI(t, e, "", "search", "kinopoisk", "Начало")
	require.Error(t, err)
	assert.Equal(t, "Something went wrong while checking KinoPoisk. Please try again later.\n", out)
}

func TestSearch_StrictUnknownPlatform(t *testing.T) {
	e := testEnv(map[string]string{"poiskfilmoff.yaml": "unknown_platform: strict\n"}, nil)

	out, _, err := runCLI(t, e, "", "search", "Netflix", "Начало")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Netflix")
	assert.Empty(t, out)
}

func TestSearch_ConfigErrorExitCode(t *testing.T) {
	e := testEnv(map[string]string{"poiskfilmoff.yaml": "threshold: [\n"}, nil)

	_, _, err := runCLI(t, e, "", "search", "okko", "Начало")
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeInvalid, config.Code(err))

	var errOut bytes.Buffer
	assert.Equal(t, 2, exitCode(err, &errOut))
	assert.Contains(t, errOut.String(), "配置错误")
}

func TestSearch_RequiresTitle(t *testing.T) {
	_, _, err := runCLI(t, testEnv(nil, nil), "", "search", "okko")
	assert.Error(t, err)
}

func TestChat_SelectPlatformThenSearch(t *testing.T) {
	srv, calls := fakeKinoPoisk(t, http.StatusOK)
	e := testEnv(nil, map[string]string{"POISKFILMOFF_KINOPOISK_BASE_URL": srv.URL})

	out, _, err := runCLI(t, e, "/start\nKinoPoisk\n\nНачало\n/quit\nне должно выполниться\n", "chat", "--user", "42")
	require.NoError(t, err)

	assert.Contains(t, out, "poiskfilmoff chat (user=42)")
	assert.Contains(t, out, "[Ökko] [KinoPoisk] [Film.Ru]")
	assert.Contains(t, out, "Great! Now I am ready to search for movies in KinoPoisk.")
	assert.Contains(t, out, "[12:00:00] *Title:* Начало")
	assert.Contains(t, out, "*Year:* 2010")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "/quit 之后的输入不应再触发查询")
}

func TestConsole_RepliesLayout(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf, func() time.Time { return time.Date(2024, 5, 1, 9, 5, 7, 0, time.UTC) })

	c.replies([]bot.Reply{{Text: "Title: A\nRating: 8", ImageURL: "https://x/p.jpg"}}, 1500*time.Millisecond)
	want := "[09:05:07] Title: A\n" +
		"           Rating: 8\n" +
		"           poster: https://x/p.jpg\n" +
		"           (1.5s)\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatProxy(t *testing.T) {
	assert.Equal(t, "off", formatProxy(""))
	assert.Equal(t, "on (http://127.0.0.1:8080, auth=on)", formatProxy("http://u:p@127.0.0.1:8080"))
}
