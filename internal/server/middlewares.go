package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code written by the wrapped handler
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// recordRequest stores the request line and headers as received, before any
// handler reads the body. Requests to the inspection route itself are not recorded.
func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == requestsPath {
			next.ServeHTTP(w, r)
			return
		}
		rr := RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Header:        r.Header.Clone(),
			ContentLength: r.ContentLength,
			ReceivedAt:    time.Now(),
		}
		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			// a panicking handler is still recorded, recoverPanic answers it with a 500
			pv := recover()
			rr.Status = sw.status
			if pv != nil && rr.Status == 0 {
				rr.Status = http.StatusInternalServerError
			}
			rr.UploadID = sw.Header().Get(uploadIDHeader)
			s.rec.Add(rr)
			slog.Debug("Request", "method", rr.Method, "path", rr.Path, "status", rr.Status, "expect", rr.Header.Get("Expect"))
			if pv != nil {
				panic(pv)
			}
		}()
		next.ServeHTTP(sw, r)
	})
}
