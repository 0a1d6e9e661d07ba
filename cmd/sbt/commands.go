package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	httpin "github.com/denniszweigle/solana-sbt-project/internal/adapters/in/http"
	"github.com/denniszweigle/solana-sbt-project/internal/application/presenter"
	"github.com/denniszweigle/solana-sbt-project/internal/application/usecase"
	"github.com/denniszweigle/solana-sbt-project/internal/domain/ledger"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/solana"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/di"
)

var (
	keygenCommand = cli.Command{
		Name:   "keygen",
		Usage:  "Generate an ed25519 keypair in Solana CLI format",
		Flags:  []cli.Flag{outFlag, secretIDFlag},
		Action: keygenAction,
	}
	balanceCommand = cli.Command{
		Name:   "balance",
		Usage:  "Show the SOL balance of a wallet",
		Flags:  []cli.Flag{addressFlag},
		Action: balanceAction,
	}
	fundCommand = cli.Command{
		Name:   "fund",
		Usage:  "Top up a wallet from the faucet until it holds a minimum balance",
		Flags:  []cli.Flag{addressFlag, minFlag},
		Action: fundAction,
	}
	checkNetworkCommand = cli.Command{
		Name:   "check-network",
		Usage:  "Check the RPC endpoint and optionally a wallet balance",
		Flags:  []cli.Flag{addressFlag},
		Action: checkNetworkAction,
	}
	checkMetadataCommand = cli.Command{
		Name:   "check-metadata",
		Usage:  "Check that the hosted metadata and image are reachable and well formed",
		Flags:  []cli.Flag{uriFlag, imageFlag},
		Action: checkMetadataAction,
	}
	publishMetadataCommand = cli.Command{
		Name:   "publish-metadata",
		Usage:  "Upload a metadata JSON file to GCS or Arweave",
		Flags:  []cli.Flag{fileFlag, nameFlag},
		Action: publishMetadataAction,
	}
	mintCommand = cli.Command{
		Name:   "mint",
		Usage:  "Issue a soul-bound token to a holder",
		Flags:  []cli.Flag{holderFlag, emailFlag, nameFlag, symbolFlag, uriFlag},
		Action: mintAction,
	}
	verifyCommand = cli.Command{
		Name:   "verify",
		Usage:  "Check that a soul-bound token cannot be transferred",
		Flags:  []cli.Flag{mintFlag},
		Action: verifyAction,
	}
	burnCommand = cli.Command{
		Name:   "burn",
		Usage:  "Revoke a soul-bound token by burning it",
		Flags:  []cli.Flag{mintFlag, reasonFlag, emailFlag, countdownFlag},
		Action: burnAction,
	}
	holdingsCommand = cli.Command{
		Name:   "holdings",
		Usage:  "List the token accounts of a wallet",
		Flags:  []cli.Flag{addressFlag, allFlag},
		Action: holdingsAction,
	}
	serveCommand = cli.Command{
		Name:   "serve",
		Usage:  "Serve the read-only credential API",
		Flags:  []cli.Flag{listenFlag},
		Action: serveAction,
	}
)

// ============================================================
// keys / wallet
// ============================================================

func keygenAction(c *cli.Context) error {
	const title = "Keypair Generated"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	out, secretID := c.String(outFlagName), c.String(secretIDFlagName)
	if out == "" && secretID == "" {
		return rt.fail(title, fmt.Errorf("%w: --out or --secret-id is required", config.ErrConfig))
	}

	kp := solana.NewKeypair()
	if out != "" {
		if err := solana.WriteKeypairFile(out, kp); err != nil {
			return rt.fail(title, err)
		}
		if abs, err := filepath.Abs(out); err == nil {
			out = abs
		}
	}

	var version string
	if secretID != "" {
		ctr, err := rt.container(c.Context, di.Options{})
		if err != nil {
			return rt.fail(title, err)
		}
		defer ctr.Close()
		store, err := ctr.SecretStore(c.Context)
		if err != nil {
			return rt.fail(title, err)
		}
		if version, err = store.StoreKeypair(c.Context, secretID, kp); err != nil {
			return rt.fail(title, err)
		}
	}
	return rt.emit(presenter.Keygen(kp.Address(), out, version, rt.env), nil)
}

// walletAddress returns --address, else the authority address.
func walletAddress(ctx context.Context, c *cli.Context, ctr *di.Container) (string, error) {
	if a := firstNonEmpty(c.String(addressFlagName)); a != "" {
		return a, nil
	}
	kp, err := ctr.Authority(ctx)
	if err != nil {
		return "", err
	}
	return kp.Address(), nil
}

func balanceAction(c *cli.Context) error {
	const title = "Wallet Balance"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	ctr, err := rt.container(c.Context, di.Options{})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	addr, err := walletAddress(c.Context, c, ctr)
	if err != nil {
		return rt.fail(title, err)
	}
	bal, err := ctr.Ledger.GetBalance(c.Context, addr)
	return rt.emit(presenter.Balance(addr, bal, err, rt.env), err)
}

func fundAction(c *cli.Context) error {
	const title = "Wallet Funding"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	required := rt.cfg.Funding.CreateMin()
	if s := c.String(minFlagName); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return rt.fail(title, fmt.Errorf("%w: --min %q is not a SOL amount", config.ErrConfig, s))
		}
		if required, err = ledger.FromSOL(d); err != nil {
			return rt.fail(title, fmt.Errorf("%w: --min: %w", config.ErrConfig, err))
		}
	}

	ctr, err := rt.container(c.Context, di.Options{})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	addr, err := walletAddress(c.Context, c, ctr)
	if err != nil {
		return rt.fail(title, err)
	}
	rep, err := ctr.Funding.EnsureBalance(c.Context, addr, required)
	if err == nil && !rep.Sufficient {
		err = fmt.Errorf("%w: %s has %s, needs %s", usecase.ErrInsufficientFunds, addr, rep.Final, rep.Required)
	}
	return rt.emit(presenter.Funding(rep, err, rt.env), err)
}

func holdingsAction(c *cli.Context) error {
	const title = "Wallet Holdings"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	ctr, err := rt.container(c.Context, di.Options{Records: true})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	addr := firstNonEmpty(c.String(addressFlagName), rt.cfg.Holder.Address)
	if addr == "" {
		if addr, err = walletAddress(c.Context, c, ctr); err != nil {
			return rt.fail(title, err)
		}
	}
	views, err := ctr.Query.ListWallet(c.Context, addr)
	if err == nil && !c.Bool(allFlagName) {
		sbts := views[:0]
		for _, v := range views {
			if v.SoulBound || v.Record != nil {
				sbts = append(sbts, v)
			}
		}
		views = sbts
	}
	return rt.emit(presenter.Holdings(addr, views, err, rt.env), err)
}

// ============================================================
// network / metadata
// ============================================================

func checkNetworkAction(c *cli.Context) error {
	const title = "Network Check"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	ctr, err := rt.container(c.Context, di.Options{})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	rep, err := ctr.Network.Check(c.Context, firstNonEmpty(c.String(addressFlagName)))
	return rt.emit(presenter.Network(rep, err, rt.env), err)
}

func checkMetadataAction(c *cli.Context) error {
	const title = "Metadata Check"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	uri := firstNonEmpty(c.String(uriFlagName))
	if uri == "" {
		if uri, err = rt.cfg.RequireMetadataURI(); err != nil {
			return rt.fail(title, err)
		}
	}
	ctr, err := rt.container(c.Context, di.Options{})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	rep, err := ctr.Metadata.Check(c.Context, usecase.MetadataCheckInput{
		MetadataURI:      uri,
		ImageURL:         firstNonEmpty(c.String(imageFlagName), rt.cfg.Metadata.ImageURL()),
		ExpectedNetwork:  rt.cfg.Metadata.ExpectedNetwork,
		ExpectedStandard: rt.cfg.Metadata.ExpectedStandard,
	})
	return rt.emit(presenter.Metadata(rep, err, rt.env), err)
}

func publishMetadataAction(c *cli.Context) error {
	const title = "Metadata Publish"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	file := c.String(fileFlagName)
	doc, err := os.ReadFile(file)
	if err != nil {
		return rt.fail(title, fmt.Errorf("%w: %v", config.ErrConfig, err))
	}
	name := firstNonEmpty(c.String(nameFlagName), filepath.Base(file))

	ctr, err := rt.container(c.Context, di.Options{Publisher: true})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	uri, err := ctr.Metadata.Publish(c.Context, name, doc)
	return rt.emit(presenter.Published(name, uri, err, rt.env), err)
}

// ============================================================
// issue / verify / revoke
// ============================================================

func mintAction(c *cli.Context) error {
	const title = "Soul-Bound Token Creation"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	if err := rt.cfg.RequireAuthority(); err != nil {
		return rt.fail(title, err)
	}
	uri := firstNonEmpty(c.String(uriFlagName))
	if uri == "" {
		if uri, err = rt.cfg.RequireMetadataURI(); err != nil {
			return rt.fail(title, err)
		}
	}

	ctr, err := rt.container(c.Context, di.Options{Records: true, Notifier: true})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	authority, err := ctr.Authority(c.Context)
	if err != nil {
		return rt.fail(title, err)
	}
	res, err := ctr.SBT.Issue(c.Context, usecase.IssueInput{
		Authority:    authority,
		Holder:       firstNonEmpty(c.String(holderFlagName), rt.cfg.Holder.Address),
		HolderEmail:  firstNonEmpty(c.String(emailFlagName), rt.cfg.Holder.Email),
		Name:         firstNonEmpty(c.String(nameFlagName), rt.cfg.Token.Name),
		Symbol:       firstNonEmpty(c.String(symbolFlagName), rt.cfg.Token.Symbol),
		URI:          uri,
		SellerFeeBps: rt.cfg.Token.SellerFeeBps,
	})
	return rt.emit(presenter.Issue(res, err, rt.env), err)
}

// mintAddress returns --mint, else token.mint_address; both missing is a config error.
func mintAddress(c *cli.Context, rt *runtime) (string, error) {
	if m := firstNonEmpty(c.String(mintFlagName)); m != "" {
		return m, nil
	}
	if err := rt.cfg.RequireMintAddress(); err != nil {
		return "", err
	}
	return rt.cfg.Token.MintAddress, nil
}

func verifyAction(c *cli.Context) error {
	const title = "Soul-Bound Token Verification"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	mint, err := mintAddress(c, rt)
	if err != nil {
		return rt.fail(title, err)
	}
	if !rt.cfg.Holder.Signer.Configured() {
		if err := rt.cfg.RequireAuthority(); err != nil {
			return rt.fail(title, err)
		}
	}

	ctr, err := rt.container(c.Context, di.Options{Records: true})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	holder, err := ctr.HolderSigner(c.Context)
	if err != nil {
		return rt.fail(title, err)
	}
	if holder == nil {
		kp, err := ctr.Authority(c.Context)
		if err != nil {
			return rt.fail(title, err)
		}
		holder = kp
	}

	res, err := ctr.SBT.Verify(c.Context, usecase.VerifyInput{Holder: holder, MintAddress: mint})
	return rt.emit(presenter.Verify(res, err, rt.env), err)
}

func burnAction(c *cli.Context) error {
	const title = "Soul-Bound Token Revocation"
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, title, err)
	}
	mint, err := mintAddress(c, rt)
	if err != nil {
		return rt.fail(title, err)
	}
	if err := rt.cfg.RequireAuthority(); err != nil {
		return rt.fail(title, err)
	}
	if d := c.Duration(countdownFlagName); d >= 0 {
		rt.cfg.Burn.Countdown = d
	}

	ctr, err := rt.container(c.Context, di.Options{Records: true, Notifier: true})
	if err != nil {
		return rt.fail(title, err)
	}
	defer ctr.Close()

	authority, err := ctr.Authority(c.Context)
	if err != nil {
		return rt.fail(title, err)
	}
	holder, err := ctr.HolderSigner(c.Context)
	if err != nil {
		return rt.fail(title, err)
	}

	reason := firstNonEmpty(c.String(reasonFlagName), rt.cfg.Burn.Reason)
	log.WithFields(log.Fields{"mint": mint, "reason": reason}).Warn("[cli] burning SBT; press Ctrl+C to cancel")

	res, err := ctr.SBT.Revoke(c.Context, usecase.RevokeInput{
		Authority:   authority,
		HolderOwner: holder,
		MintAddress: mint,
		Reason:      reason,
		HolderEmail: firstNonEmpty(c.String(emailFlagName), rt.cfg.Holder.Email),
		OnTick: func(remaining time.Duration) {
			fmt.Fprintf(os.Stderr, "burning in %s...\n", remaining.Round(time.Second))
		},
	})
	return rt.emit(presenter.Revoke(res, err, rt.env), err)
}

// ============================================================
// serve
// ============================================================

func serveAction(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return failEarly(c, "Credential API", err)
	}
	ctr, err := rt.container(c.Context, di.Options{Records: true})
	if err != nil {
		return rt.fail("Credential API", err)
	}
	defer ctr.Close()

	srv := &http.Server{
		Addr:              firstNonEmpty(c.String(listenFlagName), rt.cfg.Server.Addr),
		Handler:           httpin.NewRouter(ctr.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("[http] listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-c.Context.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("[http] shutting down")
	return srv.Shutdown(shutdownCtx)
}
