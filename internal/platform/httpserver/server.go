package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	allowanceservice "artix/contexts/agent-treasury/allowance-service"
	auctionservice "artix/contexts/meme-contest/auction-service"
	contestservice "artix/contexts/meme-contest/contest-service"
	_ "artix/internal/platform/httpserver/docs"
	"artix/internal/platform/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux       *http.ServeMux
	handler   http.Handler
	logger    *slog.Logger
	addr      string
	contest   contestservice.Module
	auctions  auctionservice.Module
	allowance allowanceservice.Module
}

func New(
	contest contestservice.Module,
	auctions auctionservice.Module,
	allowance allowanceservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		contest:   contest,
		auctions:  auctions,
		allowance: allowance,
	}
	s.registerRoutes()
	s.handler = instrument(s.mux)
	return s
}

// Handler exposes the instrumented router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /memes", s.handleListEntries)
	s.mux.HandleFunc("POST /memes", s.handleGenerateMeme)
	s.mux.HandleFunc("POST /memes/submit", s.handleSubmitMeme)
	s.mux.HandleFunc("POST /memes/register", s.handleRegisterMeme)
	s.mux.HandleFunc("GET /memes/{id}", s.handleGetEntry)
	s.mux.HandleFunc("POST /memes/{id}/vote", s.handleVote)
	s.mux.HandleFunc("GET /memes/{id}/eligibility", s.handleEligibility)
	s.mux.HandleFunc("POST /memes/{id}/mint-nft", s.handleMint)
	s.mux.HandleFunc("POST /memes/{id}/mint-nft/retry", s.handleRetryMint)
	s.mux.HandleFunc("GET /metadata/{cid}", s.handleFetchContent)

	s.mux.HandleFunc("GET /auctions", s.handleListAuctions)
	s.mux.HandleFunc("POST /auctions", s.handleCreateAuction)
	s.mux.HandleFunc("POST /auctions/place-bid", s.handlePlaceBid)
	s.mux.HandleFunc("GET /auctions/{id}", s.handleGetAuction)
	s.mux.HandleFunc("GET /auctions/{id}/bids", s.handleListBids)
	s.mux.HandleFunc("POST /auctions/{id}/settle", s.handleSettleAuction)

	s.mux.HandleFunc("GET /agent/allowance", s.handleGetAllowance)
	s.mux.HandleFunc("POST /agent/allowance", s.handleRegisterDelegation)
	s.mux.HandleFunc("POST /agent/spend", s.handleSpend)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request counts and latency by matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func queryBool(r *http.Request, name string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && value
}
