package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:8080", 0)
	require.NoError(t, err)

	tr, ok := c.Transport.(*Transport)
	require.Truef(t, ok, "期望 *Transport，实际 %T", c.Transport)
	assert.NotNil(t, tr.Base.Proxy, "期望启用代理")
	assert.True(t, tr.Base.DisableKeepAlives)
	assert.True(t, tr.DisableKeepAlives)
	assert.Equal(t, DefaultTimeout, c.Timeout)
}

func TestNewClient_NoProxyKeepsDefault(t *testing.T) {
	c, err := NewClient("  ", 5*time.Second)
	require.NoError(t, err)

	tr := c.Transport.(*Transport)
	assert.Nil(t, tr.Base.Proxy)
	assert.False(t, tr.Base.DisableKeepAlives)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	_, err := NewClient("http://[::1", 0)
	assert.Error(t, err)

	_, err = NewClient("127.0.0.1:8080", 0)
	assert.Error(t, err, "缺少 scheme 的代理地址应被拒绝")
}

func TestTransport_FillsHeadersWithoutOverriding(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	c, err := NewClient("", 0)
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, gotUA, "Mozilla/5.0")
	assert.Equal(t, defaultAcceptLanguage, gotLang)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom/1.0")
	resp, err = c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "custom/1.0", gotUA)
	assert.Empty(t, req.Header.Get("Accept-Language"), "不应修改调用方的 request")
}
