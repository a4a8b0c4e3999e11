package social

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// StateManager handles OAuth state encoding and verification.
type StateManager interface {
	Encode(state *OAuthState) (string, error)
	Decode(token string) (*OAuthState, error)
}

// OAuthState is the data round-tripped through the OAuth state parameter.
type OAuthState struct {
	Nonce        string `json:"n"`
	Provider     string `json:"p"`
	CodeVerifier string `json:"cv,omitempty"`
	RedirectURL  string `json:"r,omitempty"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

const defaultStateTTL = 10 * time.Minute

// EncryptedStateManager seals the state with AES-GCM and signs the sealed
// blob with HMAC-SHA256. The code verifier rides inside the state, so the
// blob must stay opaque to the browser that carries it.
type EncryptedStateManager struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
}

// NewEncryptedStateManager creates a new encrypted state manager.
func NewEncryptedStateManager(encryptionKey, hmacKey []byte, ttl time.Duration) *EncryptedStateManager {
	if ttl == 0 {
		ttl = defaultStateTTL
	}
	return &EncryptedStateManager{
		encryptionKey: encryptionKey,
		hmacKey:       hmacKey,
		ttl:           ttl,
	}
}

// Encode stamps timestamps and nonce, then seals and signs the state.
func (sm *EncryptedStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}

	now := time.Now()
	if state.IssuedAt == 0 {
		state.IssuedAt = now.Unix()
	}
	if state.ExpiresAt == 0 {
		state.ExpiresAt = now.Add(sm.ttl).Unix()
	}
	if state.Nonce == "" {
		state.Nonce = generateNonce()
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("state marshal: %w", err)
	}

	sealed, err := sm.seal(plaintext)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(sm.sign(sealed)), nil
}

// Decode checks the signature, unseals, and rejects expired state.
func (sm *EncryptedStateManager) Decode(token string) (*OAuthState, error) {
	blob, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("state decode: %w", err)
	}

	sealed, ok := sm.verify(blob)
	if !ok {
		return nil, ErrInvalidState
	}

	plaintext, err := sm.open(sealed)
	if err != nil {
		return nil, ErrInvalidState
	}

	var state OAuthState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, fmt.Errorf("state unmarshal: %w", err)
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	return &state, nil
}

func (sm *EncryptedStateManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sm.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("state cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// seal prepends the GCM nonce to the ciphertext so open can recover it.
func (sm *EncryptedStateManager) seal(plaintext []byte) ([]byte, error) {
	gcm, err := sm.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("state nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (sm *EncryptedStateManager) open(sealed []byte) ([]byte, error) {
	gcm, err := sm.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, ErrInvalidState
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// sign prefixes the sealed blob with its HMAC-SHA256 tag.
func (sm *EncryptedStateManager) sign(sealed []byte) []byte {
	mac := hmac.New(sha256.New, sm.hmacKey)
	mac.Write(sealed)
	return append(mac.Sum(nil), sealed...)
}

// verify splits off the tag and checks it in constant time.
func (sm *EncryptedStateManager) verify(blob []byte) ([]byte, bool) {
	if len(blob) < sha256.Size {
		return nil, false
	}

	tag, sealed := blob[:sha256.Size], blob[sha256.Size:]

	mac := hmac.New(sha256.New, sm.hmacKey)
	mac.Write(sealed)

	if !hmac.Equal(tag, mac.Sum(nil)) {
		return nil, false
	}
	return sealed, true
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func generateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func computeCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
