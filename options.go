package attgatt

import "github.com/sirupsen/logrus"

// SecurityLevel maps to the BT_SECURITY socket option applied to accepted
// L2CAP connections.
type SecurityLevel int

const (
	SecurityLevelSDP    SecurityLevel = iota // BT_SECURITY_SDP: no encryption required
	SecurityLevelLow                         // BT_SECURITY_LOW
	SecurityLevelMedium                      // BT_SECURITY_MEDIUM: authenticated pairing required
	SecurityLevelHigh                        // BT_SECURITY_HIGH: authenticated pairing + MITM protection required
)

// ServerOption configures a Server at construction time, in the style of
// the teacher's functional-option Option type.
type ServerOption func(*Server) error

// WithLogger overrides the server's structured logger. The default logs to
// a standard logrus.Logger at Info level.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		if logger == nil {
			return fmtError("WithLogger: nil logger")
		}
		s.logger = logger
		return nil
	}
}

// WithDeviceID records a local HCI device index (hciN) for the server's
// L2CAP listener. The default is -1. The listener does not use the value to
// select an adapter: it always binds to BDADDR_ANY and lets the kernel
// route to any local adapter.
func WithDeviceID(id int) ServerOption {
	return func(s *Server) error {
		s.deviceID = id
		return nil
	}
}

// WithSecurityLevel sets the BT_SECURITY level required of accepted
// connections. The default is SecurityLevelLow.
func WithSecurityLevel(level SecurityLevel) ServerOption {
	return func(s *Server) error {
		s.security = level
		return nil
	}
}

// RequireBonding is sugar for WithSecurityLevel(SecurityLevelMedium).
func RequireBonding() ServerOption {
	return WithSecurityLevel(SecurityLevelMedium)
}

// RequireBondingMITM is sugar for WithSecurityLevel(SecurityLevelHigh).
func RequireBondingMITM() ServerOption {
	return WithSecurityLevel(SecurityLevelHigh)
}

// WithMaxMTU caps the MTU the server will ever agree to, regardless of what
// a client requests in its Exchange MTU Request. The default is 517 (the
// Core Specification's maximum attribute MTU).
func WithMaxMTU(mtu uint16) ServerOption {
	return func(s *Server) error {
		if mtu < defaultATTMTU {
			return fmtError("WithMaxMTU: must be at least the default ATT MTU (23)")
		}
		s.maxMTU = mtu
		return nil
	}
}

// WithOnConnect registers a callback invoked with each accepted
// Connection, before its event loop starts, so the application can read
// Events() and call Notify/Indicate on it. The callback must not block.
func WithOnConnect(fn func(*Connection)) ServerOption {
	return func(s *Server) error {
		s.onConnect = fn
		return nil
	}
}

func fmtError(msg string) error {
	return &configError{msg: msg}
}

type configError struct{ msg string }

func (e *configError) Error() string { return "attgatt: " + e.msg }
