package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/mailingservices"
	"github.com/techagentng/ireporter/services"
)

// Server holds the dependencies of the HTTP API.
type Server struct {
	Config              *config.Config
	Mail                mailingservices.Mailer
	AuthService         services.AuthService
	ReportService       services.ReportService
	MediaService        services.MediaService
	CommentService      services.CommentService
	UpvoteService       services.UpvoteService
	NotificationService services.NotificationService
	Hub                 *Hub
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Config.Port),
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.WithField("port", s.Config.Port).Infof("server starting http://localhost:%d/api", s.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logrus.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
