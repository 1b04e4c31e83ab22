package attgatt

import (
	"context"
	"fmt"

	"github.com/paypal/attgatt/internal/l2sock"
	"github.com/sirupsen/logrus"
)

// Server listens for incoming ATT connections on the fixed L2CAP ATT
// channel and, for each one accepted, builds a fresh Connection from a
// Registration.
type Server struct {
	logger   *logrus.Logger
	deviceID int
	security SecurityLevel
	maxMTU   uint16

	newRegistration func() *Registration
	onConnect       func(*Connection)

	listener *l2sock.Listener
	nextConn uint64
}

// NewServer constructs a Server from the given options. newRegistration is
// called once per accepted connection (not once total), since
// per-characteristic Client Characteristic Configuration state is
// per-client: every peer needs its own independently-built Database.
func NewServer(newRegistration func() *Registration, opts ...ServerOption) (*Server, error) {
	if newRegistration == nil {
		return nil, fmt.Errorf("attgatt: NewServer: newRegistration must not be nil")
	}
	s := &Server{
		logger:          logrus.StandardLogger(),
		deviceID:        -1,
		security:        SecurityLevelLow,
		maxMTU:          maxATTMTU,
		newRegistration: newRegistration,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) securityLevel() l2sock.SecurityLevel {
	switch s.security {
	case SecurityLevelMedium:
		return l2sock.SecurityMedium
	case SecurityLevelHigh:
		return l2sock.SecurityHigh
	case SecurityLevelSDP:
		return l2sock.SecurityNone
	default:
		return l2sock.SecurityLow
	}
}

// Serve opens the L2CAP listener and accepts connections until ctx is
// cancelled or accept fails. Each accepted peer's Connection.Run is
// launched on its own goroutine, logged with a per-connection sequence
// field; Serve itself does not return until the listener stops.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := l2sock.Listen(s.deviceID, s.securityLevel(), 8)
	if err != nil {
		return fmt.Errorf("attgatt: Serve: %w", err)
	}
	s.listener = listener

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return fmt.Errorf("attgatt: accept: %w", err)
			}
		}
		s.nextConn++
		seq := s.nextConn
		entry := newEntryLogger(s.logger.WithField("conn", seq))

		reg := s.newRegistration()
		db, writeTokens, notifyHandles := reg.Build()
		c := NewConnection(conn, db, writeTokens, notifyHandles, int(s.maxMTU), entry)

		if s.onConnect != nil {
			s.onConnect(c)
		}

		go func() {
			if err := c.Run(ctx); err != nil {
				entry.WithField("error", err).Warn("connection closed")
			}
		}()
	}
}
