// internal/infra/solana/keypair.go
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	log "github.com/sirupsen/logrus"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
)

var (
	ErrInvalidSecretKey  = errors.New("solana: invalid secret key")
	ErrSignerEmpty       = errors.New("solana: signer is nil")
	ErrInvalidSigner     = errors.New("solana: invalid signer type")
	ErrSecretUnavailable = errors.New("solana: secret store not configured")
)

// Keypair wraps a blocto account. It satisfies ledger.Signer and is the only
// type the adapter accepts as a signer.
type Keypair struct {
	account types.Account
}

var _ ledger.Signer = Keypair{}

// NewKeypair generates a fresh ed25519 keypair.
func NewKeypair() Keypair {
	return Keypair{account: types.NewAccount()}
}

// Address returns the base58 public key.
func (k Keypair) Address() string {
	return k.account.PublicKey.ToBase58()
}

// SecretJSON renders the key in Solana CLI format: a JSON array of 64 ints.
func (k Keypair) SecretJSON() ([]byte, error) {
	priv := k.account.PrivateKey
	ints := make([]int, len(priv))
	for i, v := range priv {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// SecretBase58 renders the 64-byte secret key in base58 (wallet export format).
func (k Keypair) SecretBase58() string {
	return base58.Encode(k.account.PrivateKey)
}

// DecodeSecretKey accepts a JSON byte array ("[12,34,...]") or a base58 string.
func DecodeSecretKey(s string) (Keypair, error) {
	t := strings.TrimSpace(s)
	if config.IsPlaceholder(t) {
		return Keypair{}, fmt.Errorf("%w: empty or placeholder value", ErrInvalidSecretKey)
	}

	var raw []byte
	var err error
	if strings.HasPrefix(t, "[") {
		raw, err = decodeKeypairJSON([]byte(t))
	} else {
		raw, err = base58.Decode(t)
		if err != nil {
			err = fmt.Errorf("%w: base58: %v", ErrInvalidSecretKey, err)
		}
	}
	if err != nil {
		return Keypair{}, err
	}
	return keypairFromBytes(raw)
}

// LoadKeypairFile reads a Solana CLI keypair file (id.json).
func LoadKeypairFile(path string) (Keypair, error) {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair file %s: %w", path, err)
	}
	return DecodeSecretKey(string(data))
}

// WriteKeypairFile writes k in Solana CLI format with owner-only permissions.
// An existing file is never overwritten.
func WriteKeypairFile(path string, k Keypair) error {
	payload, err := k.SecretJSON()
	if err != nil {
		return fmt.Errorf("marshal keypair: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keypair dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create keypair file %s: %w", path, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("write keypair file %s: %w", path, err)
	}
	return f.Close()
}

// SecretReader returns the raw payload of a secret version resource.
type SecretReader interface {
	ReadSecret(ctx context.Context, name string) ([]byte, error)
}

// ResolveSigner loads key material from the first configured source:
// inline secret key, keypair file, then Secret Manager.
func ResolveSigner(ctx context.Context, src config.KeyConfig, secrets SecretReader) (Keypair, error) {
	switch {
	case !config.IsPlaceholder(src.SecretKey):
		return DecodeSecretKey(src.SecretKey)
	case !config.IsPlaceholder(src.KeypairFile):
		return LoadKeypairFile(expandHome(src.KeypairFile))
	case !config.IsPlaceholder(src.SecretName):
		if secrets == nil {
			return Keypair{}, ErrSecretUnavailable
		}
		data, err := secrets.ReadSecret(ctx, strings.TrimSpace(src.SecretName))
		if err != nil {
			return Keypair{}, err
		}
		raw, err := decodeKeypairJSON(data)
		if err != nil {
			return Keypair{}, err
		}
		kp, err := keypairFromBytes(raw)
		if err != nil {
			return Keypair{}, err
		}
		log.WithField("pubkey", kp.Address()).Info("[solana] loaded key from Secret Manager")
		return kp, nil
	default:
		return Keypair{}, fmt.Errorf("%w: no key source configured", config.ErrConfig)
	}
}

// decodeKeypairJSON restores the 64-byte key from a keypair JSON document.
// [u8;64] is the canonical form; [int,...] with out-of-range values is rejected.
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &ints); err != nil {
		return nil, fmt.Errorf("%w: unmarshal keypair json: %v", ErrInvalidSecretKey, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecretKey, len(ints), ed25519.PrivateKeySize)
	}

	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte out of range at %d: %d", ErrInvalidSecretKey, i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

func keypairFromBytes(raw []byte) (Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecretKey, len(raw), ed25519.PrivateKeySize)
	}
	acc, err := types.AccountFromBytes(raw)
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	// the trailing 32 bytes must be the public key of the seed
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if base58.Encode(derived) != acc.PublicKey.ToBase58() {
		return Keypair{}, fmt.Errorf("%w: public key does not match secret", ErrInvalidSecretKey)
	}
	return Keypair{account: acc}, nil
}

// accountOf unwraps a ledger.Signer produced by this package.
func accountOf(s ledger.Signer) (types.Account, error) {
	switch t := s.(type) {
	case nil:
		return types.Account{}, ErrSignerEmpty
	case Keypair:
		return t.account, nil
	case *Keypair:
		if t == nil {
			return types.Account{}, ErrSignerEmpty
		}
		return t.account, nil
	default:
		return types.Account{}, fmt.Errorf("%w: %T", ErrInvalidSigner, s)
	}
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
