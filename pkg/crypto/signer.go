package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Signer produces HMAC-SHA256 checksums for persisted snapshots so tampering
// with the account file is detectable on the next load.
type Signer struct {
	key    []byte
	logger *slog.Logger
}

func NewSigner(key string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		key:    []byte(key),
		logger: logger,
	}
}

func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(data []byte, signature string) bool {
	expected := s.Sign(data)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.logger.Warn("Checksum verification failed",
			slog.String("expected", expected),
			slog.String("received", signature))
		return false
	}
	return true
}
