package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServerWorker serves the relay endpoints until its context is canceled,
// then shuts the server down within shutdownTimeout.
// A Serve failure is reported on errChan and ends the worker for good: the
// listener is closed by then and a restart could not bind it again.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	onShutdown      func()
	errChan         chan<- error
}

// NewHTTPServerWorker takes an already bound listener so bind errors surface before
// supervision starts. onShutdown runs once the server stopped accepting, it may be nil.
func NewHTTPServerWorker(log *slog.Logger, listener net.Listener, handler http.Handler,
	shutdownTimeout time.Duration, onShutdown func(), errChan chan<- error) *HTTPServerWorker {
	return &HTTPServerWorker{
		log:             log,
		server:          &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		listener:        listener,
		shutdownTimeout: shutdownTimeout,
		onShutdown:      onShutdown,
		errChan:         errChan,
	}
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", w.listener.Addr().String(), "at", time.Now().UTC())
		serveErr <- w.server.Serve(w.listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("HTTP server failed", "error", err)
			select {
			case w.errChan <- err:
			default:
			}
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.shutdownTimeout)
	defer cancel()
	err := w.server.Shutdown(shutdownCtx)
	if w.onShutdown != nil {
		// Hijacked websocket connections are not tracked by Shutdown.
		w.onShutdown()
	}
	if err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	return nil
}
