// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/retry"
)

// ErrConfig marks configuration errors: reported before any network call.
var ErrConfig = errors.New("config")

// EnvPrefix is the environment variable prefix (SBT_AUTHORITY_SECRET_KEY, ...).
const EnvPrefix = "SBT"

// Cluster names.
const (
	ClusterDevnet   = "devnet"
	ClusterTestnet  = "testnet"
	ClusterMainnet  = "mainnet-beta"
	ClusterLocalnet = "localnet"
)

var clusterEndpoints = map[string]string{
	ClusterDevnet:   "https://api.devnet.solana.com",
	ClusterTestnet:  "https://api.testnet.solana.com",
	ClusterMainnet:  "https://api.mainnet-beta.solana.com",
	ClusterLocalnet: "http://127.0.0.1:8899",
}

// Store types.
const (
	StoreNone      = "none"
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

// Config holds every runtime setting. It is built once at process start.
type Config struct {
	Network   NetworkConfig  `mapstructure:"network"`
	Authority KeyConfig      `mapstructure:"authority"`
	Holder    HolderConfig   `mapstructure:"holder"`
	Token     TokenConfig    `mapstructure:"token"`
	Metadata  MetadataConfig `mapstructure:"metadata"`
	Funding   FundingConfig  `mapstructure:"funding"`
	Retry     RetryConfig    `mapstructure:"retry"`
	Burn      BurnConfig     `mapstructure:"burn"`
	Store     StoreConfig    `mapstructure:"store"`
	Publish   PublishConfig  `mapstructure:"publish"`
	Notify    NotifyConfig   `mapstructure:"notify"`
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
	GCP       GCPConfig      `mapstructure:"gcp"`
}

type NetworkConfig struct {
	Cluster     string `mapstructure:"cluster"`
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
}

// KeyConfig names where secret key material comes from. Exactly one source is used,
// in this order: SecretKey (inline JSON array or base58), KeypairFile, SecretName
// (GCP Secret Manager version resource).
type KeyConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	KeypairFile string `mapstructure:"keypair_file"`
	SecretName  string `mapstructure:"secret_name"`
}

type HolderConfig struct {
	Address string    `mapstructure:"address"`
	Email   string    `mapstructure:"email"`
	Signer  KeyConfig `mapstructure:"signer"`
}

type TokenConfig struct {
	Name         string `mapstructure:"name"`
	Symbol       string `mapstructure:"symbol"`
	SellerFeeBps uint16 `mapstructure:"seller_fee_bps"`
	MintAddress  string `mapstructure:"mint_address"`
}

type MetadataConfig struct {
	GitHubUsername   string `mapstructure:"github_username"`
	GitHubRepo       string `mapstructure:"github_repo"`
	Filename         string `mapstructure:"filename"`
	URI              string `mapstructure:"uri"`
	ImagePath        string `mapstructure:"image_path"`
	ExpectedNetwork  string `mapstructure:"expected_network"`
	ExpectedStandard string `mapstructure:"expected_standard"`
}

type FundingConfig struct {
	CreateMinSOL string        `mapstructure:"create_min_sol"`
	BurnMinSOL   string        `mapstructure:"burn_min_sol"`
	AirdropSOL   string        `mapstructure:"airdrop_sol"`
	MaxAirdrops  int           `mapstructure:"max_airdrops"`
	AirdropDelay time.Duration `mapstructure:"airdrop_delay"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	SyncDelay    time.Duration `mapstructure:"sync_delay"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Backoff     string        `mapstructure:"backoff"` // fixed | exponential
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type BurnConfig struct {
	Reason    string        `mapstructure:"reason"`
	Countdown time.Duration `mapstructure:"countdown"`
}

type StoreConfig struct {
	Type        string `mapstructure:"type"`
	Collection  string `mapstructure:"collection"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type PublishConfig struct {
	GCSBucket      string `mapstructure:"gcs_bucket"`
	ObjectPrefix   string `mapstructure:"object_prefix"`
	ArweaveBaseURL string `mapstructure:"arweave_base_url"`
	ArweaveAPIKey  string `mapstructure:"arweave_api_key"`
}

type NotifyConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	From           string `mapstructure:"from"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type GCPConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// SetDefaults registers every key so that AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network.cluster", ClusterDevnet)
	v.SetDefault("network.rpc_endpoint", "")

	for _, prefix := range []string{"authority", "holder.signer"} {
		v.SetDefault(prefix+".secret_key", "")
		v.SetDefault(prefix+".keypair_file", "")
		v.SetDefault(prefix+".secret_name", "")
	}
	v.SetDefault("holder.address", "")
	v.SetDefault("holder.email", "")

	v.SetDefault("token.name", "Proof of Governance")
	v.SetDefault("token.symbol", "POG")
	v.SetDefault("token.seller_fee_bps", 0)
	v.SetDefault("token.mint_address", "")

	v.SetDefault("metadata.github_username", "")
	v.SetDefault("metadata.github_repo", "solana-sbt-assets")
	v.SetDefault("metadata.filename", "metadata.json")
	v.SetDefault("metadata.uri", "")
	v.SetDefault("metadata.image_path", "images/pog-token.png")
	v.SetDefault("metadata.expected_network", "Solana Devnet")
	v.SetDefault("metadata.expected_standard", "Token Metadata")

	v.SetDefault("funding.create_min_sol", "0.02")
	v.SetDefault("funding.burn_min_sol", "0.01")
	v.SetDefault("funding.airdrop_sol", "1")
	v.SetDefault("funding.max_airdrops", 3)
	v.SetDefault("funding.airdrop_delay", 3*time.Second)
	v.SetDefault("funding.settle_delay", 2*time.Second)
	v.SetDefault("funding.sync_delay", 3*time.Second)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 5*time.Second)
	v.SetDefault("retry.backoff", "fixed")
	v.SetDefault("retry.max_delay", 30*time.Second)

	v.SetDefault("burn.reason", "Governance violation")
	v.SetDefault("burn.countdown", 5*time.Second)

	v.SetDefault("store.type", StoreNone)
	v.SetDefault("store.collection", "sbt_credentials")
	v.SetDefault("store.postgres_dsn", "")

	v.SetDefault("publish.gcs_bucket", "")
	v.SetDefault("publish.object_prefix", "metadata/")
	v.SetDefault("publish.arweave_base_url", "")
	v.SetDefault("publish.arweave_api_key", "")

	v.SetDefault("notify.sendgrid_api_key", "")
	v.SetDefault("notify.from", "")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")
}

// NewViper returns a viper instance wired to SBT_* env vars and the given config file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if f := strings.TrimSpace(configFile); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file %s: %v", ErrConfig, f, err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and checks the settings every command needs.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrConfig, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Network.Cluster = strings.ToLower(strings.TrimSpace(c.Network.Cluster))
	if c.Network.Cluster == "mainnet" {
		c.Network.Cluster = ClusterMainnet
	}
	c.Network.RPCEndpoint = strings.TrimSpace(c.Network.RPCEndpoint)
	c.Token.MintAddress = strings.TrimSpace(c.Token.MintAddress)
	c.Holder.Address = strings.TrimSpace(c.Holder.Address)
	c.Store.Type = strings.ToLower(strings.TrimSpace(c.Store.Type))
	if c.Store.Type == "" {
		c.Store.Type = StoreNone
	}
	c.Retry.Backoff = strings.ToLower(strings.TrimSpace(c.Retry.Backoff))
}

func (c *Config) validate() error {
	if _, ok := clusterEndpoints[c.Network.Cluster]; !ok && c.Network.RPCEndpoint == "" {
		return fmt.Errorf("%w: unknown network.cluster %q (devnet, testnet, mainnet-beta, localnet)", ErrConfig, c.Network.Cluster)
	}
	for key, s := range map[string]string{
		"funding.create_min_sol": c.Funding.CreateMinSOL,
		"funding.burn_min_sol":   c.Funding.BurnMinSOL,
		"funding.airdrop_sol":    c.Funding.AirdropSOL,
	} {
		if _, err := parseSOL(s); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfig, key, err)
		}
	}
	if c.Funding.MaxAirdrops < 0 {
		return fmt.Errorf("%w: funding.max_airdrops must be >= 0", ErrConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be >= 1", ErrConfig)
	}
	switch c.Retry.Backoff {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("%w: retry.backoff must be fixed or exponential, got %q", ErrConfig, c.Retry.Backoff)
	}
	if c.Retry.Backoff == "exponential" && c.Retry.MaxDelay <= 0 {
		return fmt.Errorf("%w: retry.max_delay must be > 0 for exponential backoff", ErrConfig)
	}
	switch c.Store.Type {
	case StoreNone, StoreFirestore, StorePostgres:
	default:
		return fmt.Errorf("%w: store.type must be none, firestore or postgres, got %q", ErrConfig, c.Store.Type)
	}
	if c.Store.Type == StorePostgres && IsPlaceholder(c.Store.PostgresDSN) {
		return fmt.Errorf("%w: store.postgres_dsn is required for store.type=postgres", ErrConfig)
	}
	return nil
}

// ========================================
// Accessors
// ========================================

// Endpoint resolves the RPC URL: explicit override first, then the cluster default.
func (n NetworkConfig) Endpoint() string {
	if n.RPCEndpoint != "" {
		return n.RPCEndpoint
	}
	return clusterEndpoints[n.Cluster]
}

// AirdropAllowed is false on mainnet, where no faucet exists.
func (n NetworkConfig) AirdropAllowed() bool {
	return n.Cluster != ClusterMainnet
}

func (n NetworkConfig) explorerQuery() string {
	switch n.Cluster {
	case ClusterMainnet:
		return ""
	case ClusterLocalnet:
		return "?cluster=custom"
	default:
		return "?cluster=" + n.Cluster
	}
}

// ExplorerTxURL links a transaction on Solana Explorer.
func (n NetworkConfig) ExplorerTxURL(signature string) string {
	return "https://explorer.solana.com/tx/" + signature + n.explorerQuery()
}

// ExplorerAddressURL links an account on Solana Explorer.
func (n NetworkConfig) ExplorerAddressURL(address string) string {
	return "https://explorer.solana.com/address/" + address + n.explorerQuery()
}

// Configured reports whether any key source is set (placeholders do not count).
func (k KeyConfig) Configured() bool {
	return !IsPlaceholder(k.SecretKey) || !IsPlaceholder(k.KeypairFile) || !IsPlaceholder(k.SecretName)
}

// RequireAuthority fails with a configuration error when no issuer key is configured.
func (c *Config) RequireAuthority() error {
	if !c.Authority.Configured() {
		return fmt.Errorf("%w: authority secret key is not set (SBT_AUTHORITY_SECRET_KEY, SBT_AUTHORITY_KEYPAIR_FILE or SBT_AUTHORITY_SECRET_NAME)", ErrConfig)
	}
	return nil
}

// RequireMintAddress fails with a configuration error when the target SBT is missing.
func (c *Config) RequireMintAddress() error {
	if IsPlaceholder(c.Token.MintAddress) {
		return fmt.Errorf("%w: token mint address is not set (SBT_TOKEN_MINT_ADDRESS or --mint)", ErrConfig)
	}
	return nil
}

// MetadataURI returns the explicit URI, or the GitHub Pages URL built from
// username / repo / filename.
func (m MetadataConfig) MetadataURI() string {
	if u := strings.TrimSpace(m.URI); !IsPlaceholder(u) {
		return u
	}
	if IsPlaceholder(m.GitHubUsername) || IsPlaceholder(m.GitHubRepo) {
		return ""
	}
	return fmt.Sprintf("%s/metadata/%s", m.pagesBase(), strings.TrimSpace(m.Filename))
}

// ImageURL is the GitHub Pages URL of the token image ("" without a username).
func (m MetadataConfig) ImageURL() string {
	if IsPlaceholder(m.GitHubUsername) || IsPlaceholder(m.GitHubRepo) {
		return ""
	}
	return m.pagesBase() + "/" + strings.TrimLeft(strings.TrimSpace(m.ImagePath), "/")
}

func (m MetadataConfig) pagesBase() string {
	return fmt.Sprintf("https://%s.github.io/%s", strings.TrimSpace(m.GitHubUsername), strings.TrimSpace(m.GitHubRepo))
}

// RequireMetadataURI fails with a configuration error when no URI can be derived.
func (c *Config) RequireMetadataURI() (string, error) {
	uri := c.Metadata.MetadataURI()
	if uri == "" {
		return "", fmt.Errorf("%w: metadata URI is not set (SBT_METADATA_URI or SBT_METADATA_GITHUB_USERNAME)", ErrConfig)
	}
	return uri, nil
}

func (f FundingConfig) CreateMin() ledger.Lamports { return mustLamports(f.CreateMinSOL) }
func (f FundingConfig) BurnMin() ledger.Lamports { return mustLamports(f.BurnMinSOL) }
func (f FundingConfig) Airdrop() ledger.Lamports { return mustLamports(f.AirdropSOL) }

// Policy builds the retry policy used for ledger submissions.
func (r RetryConfig) Policy() retry.Policy {
	delay := retry.Fixed(r.Delay)
	if r.Backoff == "exponential" {
		delay = retry.Exponential(r.Delay, r.MaxDelay)
	}
	return retry.Policy{MaxAttempts: r.MaxAttempts, Delay: delay}
}

// IsPlaceholder reports empty values and the "paste here" markers the setup guides use.
func IsPlaceholder(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" || t == "[]" {
		return true
	}
	u := strings.ToUpper(t)
	return strings.HasPrefix(u, "PASTE_") || strings.Contains(u, "YOUR_") || strings.Contains(u, "_HERE")
}

// parseSOL converts a SOL string to lamports, rejecting negative and
// out-of-range amounts.
func parseSOL(s string) (ledger.Lamports, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return ledger.FromSOL(d)
}

// mustLamports is only called on values already checked by validate.
func mustLamports(s string) ledger.Lamports {
	l, err := parseSOL(s)
	if err != nil {
		return 0
	}
	return l
}
