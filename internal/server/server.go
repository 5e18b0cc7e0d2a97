// Package server 把 bot 暴露为 HTTP 接口，供外部聊天网关或调试使用。
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/John-Robertt/poiskfilmoff/internal/bot"
	"github.com/John-Robertt/poiskfilmoff/internal/domain"
	"github.com/John-Robertt/poiskfilmoff/internal/provider"
)

const requestIDHeader = "X-Request-ID"

// 请求体上限；聊天消息与影片名都很短。
const maxBodyBytes = 16 << 10

type Server struct {
	Handler    *bot.Handler
	Dispatcher *bot.Dispatcher
	Logger     *slog.Logger
}

// Router 构造全部路由。
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/platforms", s.platforms).Methods(http.MethodGet)
	api.HandleFunc("/search", s.search).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.messages).Methods(http.MethodPost)
	return r
}

// requestID 复用调用方传入的 X-Request-ID，否则生成一个 uuid。
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(bot.WithRequestID(r.Context(), id)))
		s.logger().Debug("http", "request_id", id, "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type platformView struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (s *Server) platforms(w http.ResponseWriter, r *http.Request) {
	ps := s.Handler.Registry.Platforms()
	out := make([]platformView, 0, len(ps))
	for _, p := range ps {
		out = append(out, platformView{Key: string(p), Name: p.DisplayName()})
	}
	writeJSON(w, http.StatusOK, out)
}

type searchRequest struct {
	Platform string `json:"platform"`
	Query    string `json:"query"`
}

type outcomeView struct {
	Kind     domain.OutcomeKind `json:"kind"`
	Platform string             `json:"platform,omitempty"`
	Record   *domain.Record     `json:"record,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := decode(w, r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	o := s.Handler.HandleQuery(r.Context(), 0, body.Platform, body.Query)
	v := outcomeView{Kind: o.Kind, Platform: string(o.Platform), Error: o.Detail()}
	if o.Kind == domain.OutcomeMatch {
		rec := o.Record
		v.Record = &rec
	}
	writeJSON(w, statusOf(o), v)
}

type messagesResponse struct {
	Replies []bot.Reply `json:"replies"`
}

func (s *Server) messages(w http.ResponseWriter, r *http.Request) {
	var m bot.Message
	if err := decode(w, r, &m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Replies: s.Dispatcher.Handle(r.Context(), m)})
}

// statusOf：no_match 不是错误；平台无法解析是调用方的错；其余失败归为上游故障。
func statusOf(o domain.Outcome) int {
	if o.Kind != domain.OutcomeError {
		return http.StatusOK
	}
	var upe *provider.UnresolvedPlatformError
	if errors.As(o.Err, &upe) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
