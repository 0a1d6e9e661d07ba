package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
)

func load(t *testing.T, file string) (*Config, error) {
	t.Helper()
	v, err := NewViper(file)
	if err != nil {
		return nil, err
	}
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, ClusterDevnet, cfg.Network.Cluster)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.Network.Endpoint())
	assert.Equal(t, "Proof of Governance", cfg.Token.Name)
	assert.Equal(t, "POG", cfg.Token.Symbol)
	assert.Equal(t, ledger.MustSOL("0.02"), cfg.Funding.CreateMin())
	assert.Equal(t, ledger.MustSOL("0.01"), cfg.Funding.BurnMin())
	assert.Equal(t, ledger.MustSOL("1"), cfg.Funding.Airdrop())
	assert.Equal(t, 3, cfg.Funding.MaxAirdrops)
	assert.Equal(t, 3*time.Second, cfg.Funding.AirdropDelay)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Retry.Delay)
	assert.Equal(t, 5*time.Second, cfg.Burn.Countdown)
	assert.Equal(t, StoreNone, cfg.Store.Type)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SBT_NETWORK_CLUSTER", "Mainnet")
	t.Setenv("SBT_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SBT_RETRY_DELAY", "250ms")
	t.Setenv("SBT_TOKEN_MINT_ADDRESS", " 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU ")

	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, ClusterMainnet, cfg.Network.Cluster)
	assert.False(t, cfg.Network.AirdropAllowed())
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", cfg.Token.MintAddress)
	assert.NoError(t, cfg.RequireMintAddress())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sbt.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
network:
  cluster: testnet
funding:
  max_airdrops: 1
retry:
  backoff: exponential
  max_delay: 20s
`), 0o600))

	cfg, err := load(t, file)
	require.NoError(t, err)
	assert.Equal(t, ClusterTestnet, cfg.Network.Cluster)
	assert.Equal(t, 1, cfg.Funding.MaxAirdrops)

	p := cfg.Retry.Policy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 10*time.Second, p.Delay(2))
	assert.Equal(t, 20*time.Second, p.Delay(4))
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"SBT_NETWORK_CLUSTER":     "moonnet",
		"SBT_RETRY_MAX_ATTEMPTS":  "0",
		"SBT_RETRY_BACKOFF":       "random",
		"SBT_FUNDING_AIRDROP_SOL": "-1",
		"SBT_STORE_TYPE":          "postgres",
		// one lamport above MaxUint64
		"SBT_FUNDING_CREATE_MIN_SOL": "18446744073.709551616",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := load(t, "")
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoad_ExponentialNeedsMaxDelay(t *testing.T) {
	t.Setenv("SBT_RETRY_BACKOFF", "exponential")
	t.Setenv("SBT_RETRY_MAX_DELAY", "0s")
	_, err := load(t, "")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRequireAuthority(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.RequireAuthority(), ErrConfig)

	cfg.Authority.SecretKey = "[]"
	assert.ErrorIs(t, cfg.RequireAuthority(), ErrConfig)

	cfg.Authority.SecretKey = "PASTE_YOUR_SECRET_KEY_HERE"
	assert.ErrorIs(t, cfg.RequireAuthority(), ErrConfig)

	cfg.Authority.KeypairFile = "/home/me/.config/solana/id.json"
	assert.NoError(t, cfg.RequireAuthority())
}

func TestRequireMintAddress_Placeholder(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)
	cfg.Token.MintAddress = "PASTE_SBT_ADDRESS_HERE"
	assert.ErrorIs(t, cfg.RequireMintAddress(), ErrConfig)
}

func TestMetadataURI(t *testing.T) {
	m := MetadataConfig{GitHubRepo: "solana-sbt-assets", Filename: "metadata.json", ImagePath: "images/pog-token.png"}
	assert.Equal(t, "", m.MetadataURI())

	m.GitHubUsername = "YOUR_GITHUB_USERNAME"
	assert.Equal(t, "", m.MetadataURI())

	m.GitHubUsername = "alice"
	assert.Equal(t, "https://alice.github.io/solana-sbt-assets/metadata/metadata.json", m.MetadataURI())
	assert.Equal(t, "https://alice.github.io/solana-sbt-assets/images/pog-token.png", m.ImageURL())

	m.URI = "https://cdn.example.org/pog.json"
	assert.Equal(t, "https://cdn.example.org/pog.json", m.MetadataURI())
}

func TestExplorerURLs(t *testing.T) {
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=devnet",
		NetworkConfig{Cluster: ClusterDevnet}.ExplorerTxURL("abc"))
	assert.Equal(t, "https://explorer.solana.com/address/xyz",
		NetworkConfig{Cluster: ClusterMainnet}.ExplorerAddressURL("xyz"))
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=custom",
		NetworkConfig{Cluster: ClusterLocalnet}.ExplorerTxURL("abc"))
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"", "  ", "[]", "PASTE_SBT_ADDRESS_HERE", "your_github_username"} {
		assert.True(t, IsPlaceholder(s), s)
	}
	assert.False(t, IsPlaceholder("alice"))
}
