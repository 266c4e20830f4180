package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justinas/alice"
)

const (
	UploadPath   = "/upload_data"
	helloPath    = "/hello"
	requestsPath = "/requests"
	helloMessage = "hello,this is collection server."
	// keeps the last n requests for inspection
	recordLimit = 64
)

// Server collects multipart uploads sent by the postit harness and saves the
// received images to SaveDir. Every request it receives is recorded so the
// headers a client actually sent can be inspected afterward.
type Server struct {
	Addr    string
	SaveDir string
	rec     *Recorder
}

func New(addr, saveDir string) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		Addr:    addr,
		SaveDir: saveDir,
		rec:     NewRecorder(recordLimit),
	}
}

// Recorded returns a copy of the recorded requests, oldest first.
func (s *Server) Recorded() []RecordedRequest {
	return s.rec.List()
}

// Start listens on s.Addr and serves until ctx is canceled.
//
// Returns:
//   - error: if listening fails, serving fails for any reason other than
//     shutdown, or the graceful shutdown does not finish within 5 seconds.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listening on address %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := os.MkdirAll(s.SaveDir, 0o750); err != nil {
		_ = ln.Close()
		return fmt.Errorf("creating save directory %q: %w", s.SaveDir, err)
	}
	server := &http.Server{
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       10 * time.Second,
		Handler:           s.Routes(),
	}
	errChan := s.listenAndShutdown(ctx, server)
	slog.Info("Starting Server", "address", ln.Addr().String(), "saveDir", s.SaveDir)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server serving on address %q: %w", ln.Addr(), err)
	}
	if err := <-errChan; err != nil {
		return fmt.Errorf("server shutting down: %w", err)
	}
	slog.Info("Server stopped", "address", ln.Addr().String())
	return nil
}

func (s *Server) listenAndShutdown(ctx context.Context, server *http.Server) chan error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			errChan <- fmt.Errorf("shutting down server: %v", err)
		}
	}()
	return errChan
}

// Routes returns the collector's handler, every route runs behind panic
// recovery and the request recorder.
func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.GET(helloPath, s.helloHandler)
	r.POST(UploadPath, s.uploadDataHandler)
	r.GET(requestsPath, s.requestsHandler)
	r.NoRoute(func(c *gin.Context) {
		s.notFoundResponse(c.Writer, c.Request)
	})
	return s.middleware().Then(r)
}

// middleware wraps every route, panics are recovered outermost so the recorder
// still sees requests whose handler panicked
func (s *Server) middleware() alice.Chain {
	return alice.New(s.recoverPanic, s.recordRequest)
}
