package httpapi

import (
	"sync"

	"github.com/born-ml/micro/internal/onnx"
	"github.com/born-ml/micro/session"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Infer(in session.Features) (session.Scores, error)
	Model() ModelResponse
	Ready() bool
}

// SessionService serializes access to one session.
type SessionService struct {
	mu   sync.Mutex
	sess *session.Session
	info *onnx.ModelInfo
}

// NewSessionService wraps an initialized session. info describes the model
// the session was built from.
func NewSessionService(sess *session.Session, info *onnx.ModelInfo) *SessionService {
	return &SessionService{sess: sess, info: info}
}

// Infer runs one forward pass under the service lock.
func (s *SessionService) Infer(in session.Features) (session.Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Infer(in)
}

// Ready reports whether the session can serve requests.
func (s *SessionService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Ready()
}

// Model describes the served model.
func (s *SessionService) Model() ModelResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := ModelResponse{
		Fingerprint:  s.info.FingerprintString(),
		SizeBytes:    s.info.SizeBytes,
		IRVersion:    s.info.IRVersion,
		OpsetVersion: s.info.OpsetVersion,
		Graph:        s.info.GraphName,
		Inputs:       s.info.InputNames,
		Outputs:      s.info.OutputNames,
		OpTypes:      s.info.OpTypes,
		InputShape:   s.sess.InputShape(),
		OutputShape:  s.sess.OutputShape(),
		ArenaUsed:    s.sess.ArenaUsed(),
		ArenaSize:    s.sess.ArenaSize(),
		Ready:        s.sess.Ready(),
	}
	for _, k := range s.sess.Kernels() {
		resp.Kernels = append(resp.Kernels, k.String())
	}
	return resp
}
