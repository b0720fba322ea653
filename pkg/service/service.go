package service

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/healthcheck"
	"go.uber.org/zap"
)

// Service is the shared scaffolding of a wafwatch process: logging,
// the admin server with health check, and signal-driven shutdown.
type Service struct {
	Logger *zap.SugaredLogger

	// AdminPort is the HTTP port number for admin server.
	AdminPort int

	// Admin is the admin server that hosts the health check and pprof endpoints.
	Admin *AdminServer

	signalsChannel  chan os.Signal
	hcStatusChannel chan healthcheck.Status
}

func NewService(adminPort int) *Service {
	signalsChannel := make(chan os.Signal, 1)
	signal.Notify(signalsChannel, os.Interrupt, syscall.SIGTERM)

	hcStatusChannel := make(chan healthcheck.Status)
	return &Service{
		AdminPort:       adminPort,
		Admin:           NewAdminServer(portToHostPort(adminPort)),
		signalsChannel:  signalsChannel,
		hcStatusChannel: hcStatusChannel,
	}
}

// SetHealthCheckStatus sets the health check status from another goroutine.
func (s *Service) SetHealthCheckStatus(status healthcheck.Status) {
	s.hcStatusChannel <- status
}

// Start initializes logging and starts the admin server.
func (s *Service) Start() error {
	logProd, err := zap.NewProduction()
	if err != nil {
		return err
	}
	s.Logger = logProd.Sugar()
	s.Admin.SetLogger(logProd)

	if err := s.Admin.Serve(); err != nil {
		return errors.Wrap(err, "starting admin server")
	}

	return nil
}

// RunAndThen marks the service ready, blocks until a shutdown signal
// arrives, and then runs the provided shutdown function.
func (s *Service) RunAndThen(shutdown func()) {
	s.Admin.HC().Set(healthcheck.Ready)
statusLoop:
	for {
		select {
		case status := <-s.hcStatusChannel:
			s.Admin.HC().Set(status)
		case <-s.signalsChannel:
			break statusLoop
		}
	}

	s.Logger.Info("shutting down")

	if shutdown != nil {
		shutdown()
	}

	s.Logger.Info("shutdown complete")
}

// portToHostPort converts the port into a host:port address string
func portToHostPort(port int) string {
	return ":" + strconv.Itoa(port)
}
