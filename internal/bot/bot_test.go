package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/infra/logx"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
	"github.com/John-Robertt/poiskfilmoff/internal/report"
	"github.com/John-Robertt/poiskfilmoff/internal/session"
)

type fakeSearcher struct {
	platform domain.Platform
	rec      domain.Record
	err      error

	calls   int
	queries []domain.Query
}

func (f *fakeSearcher) Platform() domain.Platform { return f.platform }

func (f *fakeSearcher) FetchCandidate(_ context.Context, q domain.Query, _ provider.Doer) (domain.Record, error) {
	f.calls++
	f.queries = append(f.queries, q)
	return f.rec, f.err
}

type fixture struct {
	okko, kp, filmru *fakeSearcher
	handler          *Handler
	dispatcher       *Dispatcher
	sessions         *session.MemoryStore
}

func newFixture(t *testing.T, policy string) *fixture {
	t.Helper()
	f := &fixture{
		okko: &fakeSearcher{platform: domain.PlatformOkko, rec: domain.Record{
			Title: "Начало", AlternativeTitle: "Inception",
			PosterURL: "https://static.okko.tv/p.jpg", Link: "https://okko.tv/movie/inception",
		}},
		kp:     &fakeSearcher{platform: domain.PlatformKinoPoisk, rec: domain.Record{Title: "Начало", Year: "2010", Link: "https://www.kinopoisk.ru/film/447301/"}},
		filmru: &fakeSearcher{platform: domain.PlatformFilmRu},
	}
	reg, err := provider.NewRegistry(policy, domain.PlatformOkko, f.okko, f.kp, f.filmru)
	require.NoError(t, err)

	f.handler = &Handler{Registry: reg, Threshold: 3, Logger: logx.Discard()}
	f.sessions = session.NewMemoryStore()
	f.dispatcher = &Dispatcher{
		Handler:         f.handler,
		Sessions:        f.sessions,
		Style:           report.StyleMarkdown,
		DefaultPlatform: domain.PlatformOkko,
		Logger:          logx.Discard(),
	}
	return f
}

func TestHandleQuery_Match(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	o := f.handler.HandleQuery(context.Background(), 1, "KinoPoisk", "  НАЧЛАО ")
	require.Equal(t, domain.OutcomeMatch, o.Kind)
	assert.Equal(t, domain.PlatformKinoPoisk, o.Platform)
	assert.Equal(t, "2010", o.Record.Year)
	assert.Equal(t, domain.PlatformKinoPoisk, o.Record.Platform)
	assert.Equal(t, []domain.Query{"начлао"}, f.kp.queries)
}

func TestHandleQuery_NoMatch(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	o := f.handler.HandleQuery(context.Background(), 1, "kinopoisk", "Зелёная миля")
	assert.Equal(t, domain.OutcomeNoMatch, o.Kind)
	assert.True(t, o.Record.IsEmpty())

	o = f.handler.HandleQuery(context.Background(), 1, "filmru", "начало")
	assert.Equal(t, domain.OutcomeNoMatch, o.Kind, "空候选应为 no_match")
}

func TestHandleQuery_EmptyTextDoesNotFetch(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	o := f.handler.HandleQuery(context.Background(), 1, "okko", "   ")
	assert.Equal(t, domain.OutcomeNoMatch, o.Kind)
	assert.Equal(t, 0, f.okko.calls)
}

func TestHandleQuery_TransportErrorIsError(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)
	f.filmru.err = &provider.TransportError{URL: "https://www.film.ru", Err: errors.New("connection reset")}

	o := f.handler.HandleQuery(context.Background(), 1, "Film.Ru", "начало")
	require.Equal(t, domain.OutcomeError, o.Kind)
	assert.Equal(t, domain.PlatformFilmRu, o.Platform)
	var pe *provider.Error
	require.ErrorAs(t, o.Err, &pe)
	assert.Equal(t, "fetch", pe.Stage)
	assert.Contains(t, o.Detail(), "connection reset")
}

func TestHandleQuery_UnknownPlatform(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)
	o := f.handler.HandleQuery(context.Background(), 1, "Netflix", "начало")
	assert.Equal(t, domain.OutcomeMatch, o.Kind)
	assert.Equal(t, domain.PlatformOkko, o.Platform)

	f = newFixture(t, provider.PolicyStrict)
	o = f.handler.HandleQuery(context.Background(), 1, "Netflix", "начало")
	require.Equal(t, domain.OutcomeError, o.Kind)
	var upe *provider.UnresolvedPlatformError
	assert.ErrorAs(t, o.Err, &upe)
	assert.Equal(t, 0, f.okko.calls)
}

func TestRequestID_RoundTrip(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}

func TestDispatcher_Start(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/start"})
	require.Len(t, rs, 1)
	assert.True(t, strings.HasPrefix(rs[0].Text, "Hi!\nI'm Poiskfilmoff Bot!"))
	assert.Equal(t, []string{"Ökko", "KinoPoisk", "Film.Ru"}, rs[0].Keyboard)
}

func TestDispatcher_HelpShowsCurrentPlatform(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/help@poiskfilmoff_bot"})
	require.Len(t, rs, 1)
	assert.Contains(t, rs[0].Text, "Currently selected platform is Ökko.")
	assert.Contains(t, rs[0].Text, "*/platform*")
	assert.True(t, rs[0].Markdown)

	require.NoError(t, f.sessions.Set(1, domain.PlatformFilmRu))
	rs = f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/HELP"})
	assert.Contains(t, rs[0].Text, "Currently selected platform is Film.Ru.")
}

func TestDispatcher_PlatformMenuAndDocumentation(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/platform"})
	assert.Contains(t, rs[0].Text, "Please, select the platform")
	assert.Len(t, rs[0].Keyboard, 3)

	rs = f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/documentation"})
	assert.Equal(t, "If you want to view the documentation, follow this link: "+DefaultDocsURL, rs[0].Text)
}

func TestDispatcher_SelectPlatformThenQuery(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 9, Text: "KinoPoisk"})
	require.Len(t, rs, 1)
	assert.Equal(t, "Great! Now I am ready to search for movies in KinoPoisk. Just type the name of the movie.", rs[0].Text)
	assert.Equal(t, 0, f.kp.calls, "选择平台不应触发查询")

	rs = f.dispatcher.Handle(context.Background(), Message{UserID: 9, Text: "Начало"})
	require.Len(t, rs, 1)
	assert.Equal(t, "*Title:* Начало\n*Year:* 2010\n*Link:* https://www.kinopoisk.ru/film/447301/", rs[0].Text)
	assert.Empty(t, rs[0].ImageURL)
	assert.True(t, rs[0].Markdown)
	assert.Equal(t, 1, f.kp.calls)
	assert.Equal(t, 0, f.okko.calls)
}

func TestDispatcher_NFDButtonTextSelectsPlatform(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)
	require.NoError(t, f.sessions.Set(3, domain.PlatformFilmRu))

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 3, Text: "O\u0308kko"}) // NFD
	assert.Contains(t, rs[0].Text, "search for movies in Ökko")
	p, _ := f.sessions.Get(3)
	assert.Equal(t, domain.PlatformOkko, p)
}

func TestDispatcher_DefaultPlatformForNewUser(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 77, Text: "inceptoin"})
	require.Len(t, rs, 1)
	assert.Equal(t, "https://static.okko.tv/p.jpg", rs[0].ImageURL)
	assert.True(t, strings.HasPrefix(rs[0].Text, "*Title:* Начало (Inception)\n"))
	assert.Equal(t, 1, f.okko.calls)
}

func TestDispatcher_NotFoundAndFailure(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)
	require.NoError(t, f.sessions.Set(5, domain.PlatformFilmRu))

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 5, Text: "начало"})
	assert.Equal(t, report.NotFound(domain.PlatformFilmRu), rs[0].Text)

	f.filmru.err = &provider.HTTPStatusError{URL: "https://www.film.ru", StatusCode: 503}
	rs = f.dispatcher.Handle(context.Background(), Message{UserID: 5, Text: "начало"})
	assert.Equal(t, "Something went wrong while checking Film.Ru. Please try again later.", rs[0].Text)
}

func TestDispatcher_PlainStyle(t *testing.T) {
	f := newFixture(t, provider.PolicyFallback)
	f.dispatcher.Style = report.StylePlain

	rs := f.dispatcher.Handle(context.Background(), Message{UserID: 1, Text: "/help"})
	assert.Contains(t, rs[0].Text, "use /platform command")
	assert.False(t, rs[0].Markdown)
}

func TestParseCommand(t *testing.T) {
	for in, want := range map[string]string{"/start": "start", "/Help extra": "help", "/platform@bot": "platform"} {
		got, ok := parseCommand(in)
		assert.Truef(t, ok, "input=%q", in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"start", "/", "/ ", ""} {
		_, ok := parseCommand(in)
		assert.Falsef(t, ok, "input=%q", in)
	}
}
