package main

import (
	"github.com/urfave/cli/v2"
)

const (
	configFlagName    = "config"
	networkFlagName   = "network"
	rpcURLFlagName    = "rpc-url"
	logLevelFlagName  = "log-level"
	outputFlagName    = "output"
	addressFlagName   = "address"
	mintFlagName      = "mint"
	holderFlagName    = "holder"
	emailFlagName     = "holder-email"
	nameFlagName      = "name"
	symbolFlagName    = "symbol"
	uriFlagName       = "uri"
	imageFlagName     = "image"
	reasonFlagName    = "reason"
	countdownFlagName = "countdown"
	minFlagName       = "min"
	outFlagName       = "out"
	secretIDFlagName  = "secret-id"
	fileFlagName      = "file"
	listenFlagName    = "addr"
	allFlagName       = "all"
)

var (
	configFlag = &cli.StringFlag{
		Name:    configFlagName,
		Aliases: []string{"c"},
		Usage:   "path to a YAML/JSON/TOML config file",
		EnvVars: []string{"SBT_CONFIG"},
	}
	networkFlag = &cli.StringFlag{
		Name:  networkFlagName,
		Usage: "cluster: devnet, testnet, mainnet-beta or localnet",
	}
	rpcURLFlag = &cli.StringFlag{
		Name:  rpcURLFlagName,
		Usage: "RPC endpoint overriding the cluster default",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  logLevelFlagName,
		Usage: "log level: debug, info, warn, error",
	}
	outputFlag = &cli.StringFlag{
		Name:    outputFlagName,
		Aliases: []string{"o"},
		Usage:   "report format: text or json",
		Value:   "text",
	}

	addressFlag = &cli.StringFlag{
		Name:  addressFlagName,
		Usage: "wallet address (defaults to the authority)",
	}
	mintFlag = &cli.StringFlag{
		Name:  mintFlagName,
		Usage: "SBT mint address (defaults to token.mint_address)",
	}
	holderFlag = &cli.StringFlag{
		Name:  holderFlagName,
		Usage: "wallet receiving the SBT (defaults to holder.address, then the authority)",
	}
	emailFlag = &cli.StringFlag{
		Name:  emailFlagName,
		Usage: "holder e-mail for notices",
	}
	nameFlag = &cli.StringFlag{
		Name:  nameFlagName,
		Usage: "token name (defaults to token.name)",
	}
	symbolFlag = &cli.StringFlag{
		Name:  symbolFlagName,
		Usage: "token symbol (defaults to token.symbol)",
	}
	uriFlag = &cli.StringFlag{
		Name:  uriFlagName,
		Usage: "metadata URI (defaults to metadata.uri or the GitHub Pages URL)",
	}
	imageFlag = &cli.StringFlag{
		Name:  imageFlagName,
		Usage: "image URL to check (defaults to the GitHub Pages image)",
	}
	reasonFlag = &cli.StringFlag{
		Name:  reasonFlagName,
		Usage: "revocation reason (defaults to burn.reason)",
	}
	countdownFlag = &cli.DurationFlag{
		Name:  countdownFlagName,
		Usage: "cancellable delay before the burn is submitted (defaults to burn.countdown)",
		Value: -1,
	}
	minFlag = &cli.StringFlag{
		Name:  minFlagName,
		Usage: "required balance in SOL (defaults to funding.create_min_sol)",
	}
	outFlag = &cli.StringFlag{
		Name:  outFlagName,
		Usage: "keypair file to write (never overwritten)",
	}
	secretIDFlag = &cli.StringFlag{
		Name:  secretIDFlagName,
		Usage: "also store the keypair as a new version of this Secret Manager secret",
	}
	fileFlag = &cli.StringFlag{
		Name:     fileFlagName,
		Usage:    "metadata JSON file to publish",
		Required: true,
	}
	listenFlag = &cli.StringFlag{
		Name:  listenFlagName,
		Usage: "listen address (defaults to server.addr)",
	}
	allFlag = &cli.BoolFlag{
		Name:  allFlagName,
		Usage: "list every token account, not only soul-bound ones",
	}
)
