package tracker

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixperk/pixtracker/compact"
	"go.uber.org/zap"
)

type Server struct {
	Server  *http.Server
	Tracker *Tracker
	log     *zap.Logger
}

func NewServer(addr string, t *Tracker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Tracker: t, log: log}
	mux := http.NewServeMux()

	mux.HandleFunc("/announce", s.handleAnnounce)
	mux.HandleFunc("/scrape", s.handleScrape)
	mux.HandleFunc("/", s.handleIndex)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	return s.Server.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	return s.Server.Handler
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("id", id),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pixtracker\n"))
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	//url : GET /announce?info_hash=%12%34%56%78%9a%bc%de%f0%12%34%56%78%9a%bc%de%f0%12%34%56%78&port=51413&left=0&event=completed
	params := r.URL.Query()
	if len(params) == 0 {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
		return
	}

	ip := s.clientIP(r)
	body, err := s.Tracker.Announce(r.Context(), params, ip)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBody(w, body)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	// URL: GET /scrape?info_hash=%12%34%56%78%9a%bc%de%f0%12%34%56%78%9a%bc%de%f0%12%34%56%78
	body, err := s.Tracker.Scrape(r.Context(), r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBody(w, body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, compact.ErrInvalidAddress) {
		s.log.Debug("unsupported peer address", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, "IPv4 peers only", http.StatusBadRequest)
		return
	}

	s.log.Warn("request failed",
		zap.String("id", w.Header().Get("X-Request-Id")),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "tracker unavailable", http.StatusServiceUnavailable)
}

// writeBody sends a bencoded body. A nil body means the client gets an
// empty 200 and nothing else.
func writeBody(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/plain")
	if body == nil {
		return
	}
	w.Write(body)
}

func (s *Server) clientIP(r *http.Request) net.IP {
	if s.Tracker.cfg.TrustProxy {
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return net.ParseIP(strings.TrimSpace(ip))
		}

		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			return net.ParseIP(strings.TrimSpace(strings.Split(ip, ",")[0]))
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
