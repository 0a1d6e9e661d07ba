// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	httpin "github.com/denniszweigle/solana-sbt-project/internal/adapters/in/http"
	dbrepo "github.com/denniszweigle/solana-sbt-project/internal/adapters/out/db"
	fsrepo "github.com/denniszweigle/solana-sbt-project/internal/adapters/out/firestore"
	"github.com/denniszweigle/solana-sbt-project/internal/adapters/out/gcs"
	"github.com/denniszweigle/solana-sbt-project/internal/adapters/out/mail"
	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/sbt"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/arweave"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/database"
	firestoreinfra "github.com/denniszweigle/solana-sbt-project/internal/infra/firestore"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/solana"
)

// Options selects the optional infrastructure a command needs.
type Options struct {
	Records   bool // credential store per store.type
	Publisher bool // GCS or Arweave metadata publisher
	Notifier  bool // SendGrid notices
}

// Container owns every client built for one process run.
//   - ledger access is always wired; GCP and database clients only when configured
//   - Close releases what was opened, in reverse order
type Container struct {
	Config *config.Config

	Ledger  *solana.LedgerClient
	Wallets *solana.WalletReader

	Records   sbt.RepositoryPort
	Publisher usecase.Publisher
	Notifier  usecase.Notifier

	Funding  *usecase.FundingGuard
	SBT      *usecase.SBTUsecase
	Metadata *usecase.MetadataUsecase
	Network  *usecase.NetworkUsecase
	Query    *usecase.QueryUsecase

	secrets *solana.SecretManagerStore
	closers []func() error
}

// New wires the container. It performs no network call unless opts enable a
// store or publisher that needs a client at construction.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", config.ErrConfig)
	}
	c := &Container{Config: cfg}

	endpoint := cfg.Network.Endpoint()
	c.Ledger = solana.NewLedgerClient(endpoint, cfg.Network.Cluster)
	c.Wallets = solana.NewWalletReader(endpoint)

	if opts.Records {
		if err := c.buildRecords(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	if opts.Publisher {
		if err := c.buildPublisher(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	if opts.Notifier {
		c.buildNotifier()
	}

	c.Funding = usecase.NewFundingGuard(c.Ledger, usecase.FundingOptions{
		AirdropAmount:  cfg.Funding.Airdrop(),
		MaxAirdrops:    cfg.Funding.MaxAirdrops,
		AirdropDelay:   cfg.Funding.AirdropDelay,
		SettleDelay:    cfg.Funding.SettleDelay,
		AirdropAllowed: cfg.Network.AirdropAllowed(),
	})
	c.SBT = usecase.NewSBTUsecase(
		c.Ledger, c.Ledger, c.Funding, cfg.Retry.Policy(), c.Records, c.Notifier,
		usecase.SBTOptions{
			Network:       cfg.Network.Cluster,
			CreateMin:     cfg.Funding.CreateMin(),
			BurnMin:       cfg.Funding.BurnMin(),
			SyncDelay:     cfg.Funding.SyncDelay,
			Countdown:     cfg.Burn.Countdown,
			ExplorerTxURL: cfg.Network.ExplorerTxURL,
		},
		func() string { return solana.NewKeypair().Address() },
	)
	c.Metadata = usecase.NewMetadataUsecase(c.Publisher)
	c.Network = usecase.NewNetworkUsecase(c.Ledger, c.Ledger)
	c.Query = usecase.NewQueryUsecase(c.Ledger, c.Wallets, c.Records)

	log.WithFields(log.Fields{
		"cluster":   cfg.Network.Cluster,
		"endpoint":  endpoint,
		"records":   c.Records != nil,
		"publisher": c.Publisher != nil,
		"notifier":  c.Notifier != nil,
	}).Debug("[di] container ready")
	return c, nil
}

// Router builds the read-only HTTP API.
func (c *Container) Router() httpin.RouterDeps {
	return httpin.RouterDeps{Query: c.Query, Network: c.Config.Network.Cluster}
}

// ============================================================
// Keys
// ============================================================

// Authority resolves the issuer signer.
func (c *Container) Authority(ctx context.Context) (solana.Keypair, error) {
	if err := c.Config.RequireAuthority(); err != nil {
		return solana.Keypair{}, err
	}
	kp, err := c.resolve(ctx, c.Config.Authority)
	if err != nil {
		return solana.Keypair{}, keyError("authority", err)
	}
	return kp, nil
}

// HolderSigner resolves the holder signer; nil when none is configured.
func (c *Container) HolderSigner(ctx context.Context) (ledger.Signer, error) {
	if !c.Config.Holder.Signer.Configured() {
		return nil, nil
	}
	kp, err := c.resolve(ctx, c.Config.Holder.Signer)
	if err != nil {
		return nil, keyError("holder", err)
	}
	return kp, nil
}

// SecretStore opens Secret Manager on first use.
func (c *Container) SecretStore(ctx context.Context) (*solana.SecretManagerStore, error) {
	if c.secrets != nil {
		return c.secrets, nil
	}
	if strings.TrimSpace(c.Config.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%w: gcp.project_id is required for Secret Manager", config.ErrConfig)
	}
	s, err := solana.NewSecretManagerStore(ctx, c.Config.GCP.ProjectID, c.Config.GCP.CredentialsFile)
	if err != nil {
		return nil, err
	}
	c.secrets = s
	c.closers = append(c.closers, s.Close)
	return s, nil
}

func (c *Container) resolve(ctx context.Context, src config.KeyConfig) (solana.Keypair, error) {
	var secrets solana.SecretReader
	if config.IsPlaceholder(src.SecretKey) && config.IsPlaceholder(src.KeypairFile) && !config.IsPlaceholder(src.SecretName) {
		s, err := c.SecretStore(ctx)
		if err != nil {
			return solana.Keypair{}, err
		}
		secrets = s
	}
	return solana.ResolveSigner(ctx, src, secrets)
}

// keyError marks bad or missing key material as a configuration error.
func keyError(role string, err error) error {
	switch {
	case errors.Is(err, config.ErrConfig):
		return fmt.Errorf("%s key: %w", role, err)
	case errors.Is(err, solana.ErrInvalidSecretKey),
		errors.Is(err, solana.ErrSecretUnavailable),
		errors.Is(err, solana.ErrSecretNotFound),
		errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s key: %w", config.ErrConfig, role, err)
	default:
		return fmt.Errorf("%s key: %w", role, err)
	}
}

// ============================================================
// Optional infrastructure
// ============================================================

func (c *Container) buildRecords(ctx context.Context) error {
	cfg := c.Config
	switch cfg.Store.Type {
	case config.StoreFirestore:
		fc, err := firestoreinfra.NewClient(ctx, cfg.GCP.ProjectID, cfg.GCP.CredentialsFile)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, fc.Close)
		c.Records = fsrepo.NewCredentialRepositoryFS(fc.Client, cfg.Store.Collection)
	case config.StorePostgres:
		db, err := database.NewConnection(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		c.Records = dbrepo.NewCredentialRepositoryPG(db.Client)
	}
	return nil
}

func (c *Container) buildPublisher(ctx context.Context) error {
	p := c.Config.Publish
	switch {
	case strings.TrimSpace(p.GCSBucket) != "":
		var copts []option.ClientOption
		if f := c.Config.GCP.CredentialsFile; f != "" {
			copts = append(copts, option.WithCredentialsFile(f))
		}
		sc, err := storage.NewClient(ctx, copts...)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		c.closers = append(c.closers, sc.Close)
		c.Publisher = gcs.NewMetadataPublisherGCS(sc, p.GCSBucket, p.ObjectPrefix)
	case strings.TrimSpace(p.ArweaveBaseURL) != "":
		c.Publisher = arweave.NewHTTPUploader(p.ArweaveBaseURL, p.ArweaveAPIKey)
	}
	return nil
}

func (c *Container) buildNotifier() {
	n := c.Config.Notify
	if strings.TrimSpace(n.SendGridAPIKey) == "" {
		return
	}
	if strings.TrimSpace(n.From) == "" {
		log.Warn("[di] notify.from is empty; notices disabled")
		return
	}
	c.Notifier = mail.NewCredentialMailer(mail.NewSendGridClient(n.SendGridAPIKey, ""), n.From)
}

// Close releases clients in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
