package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/BumpBTC/bumpcore/internal/address"
	"github.com/BumpBTC/bumpcore/internal/api"
	"github.com/BumpBTC/bumpcore/internal/config"
	"github.com/BumpBTC/bumpcore/internal/keystore"
	"github.com/BumpBTC/bumpcore/internal/logger"
	"github.com/BumpBTC/bumpcore/internal/models"
	"github.com/BumpBTC/bumpcore/internal/rates"
	"github.com/BumpBTC/bumpcore/internal/session"
	"github.com/BumpBTC/bumpcore/internal/store"
)

const usage = `Usage: bumpcli <command> [flags]

Commands:
  login          -user <name> -pass <password>
  signup         -user <name> -email <addr> -pass <password>
  logout
  wallets        list wallets, balances and recent transactions
  send           -currency <bitcoin|lightning|litecoin> -to <address> -amount <value>
  set-active     -currency <bitcoin|lightning|litecoin> -wallet <id>
  invoice        -amount <sats> [-memo <text>]
  open-channel   -node <pubkey@host:port> -amount <sats>
  close-channel  -channel <id>
  rates          fetch current USD quotes
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	user := flags.String("user", "", "username or email")
	email := flags.String("email", "", "email address for signup")
	pass := flags.String("pass", "", "password")
	currencyFlag := flags.String("currency", "", "wallet currency")
	to := flags.String("to", "", "destination address")
	amount := flags.String("amount", "", "amount to send (native units, or sats for invoices)")
	walletID := flags.String("wallet", "", "wallet id")
	memo := flags.String("memo", "", "invoice memo")
	node := flags.String("node", "", "lightning node URI")
	channel := flags.String("channel", "", "channel id")
	flags.Parse(os.Args[2:])

	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(cfg.LogLevel)

	ks, err := keystore.Open(cfg.KeystorePath)
	if err != nil {
		zl.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("Failed to open keystore")
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, ks, zl)
	sessions := session.NewManager(client, ks, zl)

	validator, err := address.NewValidator(address.Network(cfg.Network))
	if err != nil {
		zl.Fatal().Err(err).Msg("Failed to build address validator")
	}
	wallets := store.New(client, validator, zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "login":
		requireFlags(map[string]string{"-user": *user, "-pass": *pass})
		sess, err := sessions.Login(ctx, *user, *pass)
		if err != nil {
			zl.Fatal().Err(err).Msg("Login failed")
		}
		fmt.Printf("Logged in as %s\n", sess.Username)

	case "signup":
		requireFlags(map[string]string{"-user": *user, "-email": *email, "-pass": *pass})
		sess, err := sessions.Signup(ctx, *user, *email, *pass)
		if err != nil {
			zl.Fatal().Err(err).Msg("Signup failed")
		}
		fmt.Printf("Account created, logged in as %s\n", sess.Username)

	case "logout":
		if err := sessions.Logout(); err != nil {
			zl.Fatal().Err(err).Msg("Logout failed")
		}
		fmt.Println("Logged out")

	case "wallets":
		requireSession(sessions, zl)
		if err := wallets.Refresh(ctx); err != nil {
			zl.Fatal().Err(err).Msg("Failed to fetch wallet info")
		}
		printState(wallets)

	case "send":
		requireSession(sessions, zl)
		requireFlags(map[string]string{"-currency": *currencyFlag, "-to": *to, "-amount": *amount})
		amt, err := decimal.NewFromString(*amount)
		if err != nil {
			zl.Fatal().Str("amount", *amount).Msg("Invalid amount")
		}
		txID, err := wallets.Send(ctx, models.Currency(*currencyFlag), *to, amt)
		if err != nil {
			zl.Fatal().Err(err).Msg("Send failed")
		}
		fmt.Printf("Sent %s %s to %s (tx %s)\n", amt, *currencyFlag, *to, txID)

	case "set-active":
		requireSession(sessions, zl)
		requireFlags(map[string]string{"-currency": *currencyFlag, "-wallet": *walletID})
		if err := wallets.Refresh(ctx); err != nil {
			zl.Fatal().Err(err).Msg("Failed to fetch wallet info")
		}
		if err := wallets.SetActiveWallet(ctx, models.Currency(*currencyFlag), *walletID); err != nil {
			zl.Fatal().Err(err).Msg("Failed to set active wallet")
		}
		fmt.Printf("Active %s wallet is now %s\n", *currencyFlag, *walletID)

	case "invoice":
		requireSession(sessions, zl)
		requireFlags(map[string]string{"-amount": *amount})
		sats, err := decimal.NewFromString(*amount)
		if err != nil || !sats.IsInteger() || sats.IsNegative() {
			zl.Fatal().Str("amount", *amount).Msg("Invoice amount must be a whole number of sats")
		}
		inv, err := client.CreateInvoice(ctx, sats.IntPart(), *memo)
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to create invoice")
		}
		fmt.Println(inv.PaymentRequest)

	case "open-channel":
		requireSession(sessions, zl)
		requireFlags(map[string]string{"-node": *node, "-amount": *amount})
		sats, err := decimal.NewFromString(*amount)
		if err != nil || !sats.IsInteger() || sats.IsNegative() {
			zl.Fatal().Str("amount", *amount).Msg("Channel amount must be a whole number of sats")
		}
		res, err := client.OpenChannel(ctx, *node, sats.IntPart())
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to open channel")
		}
		fmt.Printf("Channel opening: %s\n", res.ChannelID)

	case "close-channel":
		requireSession(sessions, zl)
		requireFlags(map[string]string{"-channel": *channel})
		res, err := client.CloseChannel(ctx, *channel)
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to close channel")
		}
		fmt.Printf("Channel closing: %s\n", res.ChannelID)

	case "rates":
		rc := rates.NewClient(cfg.RateAPIURL, cfg.RequestTimeout, zl)
		table, err := rc.Fetch(ctx)
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to fetch exchange rates")
		}
		for symbol, rate := range table {
			fmt.Printf("%-10s $%.2f\n", symbol, rate.USD)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usage)
		os.Exit(2)
	}
}

func requireFlags(values map[string]string) {
	for name, value := range values {
		if value == "" {
			log.Fatalf("Missing required flag %s", name)
		}
	}
}

func requireSession(sessions *session.Manager, zl zerolog.Logger) {
	if sessions.Restore() == nil {
		zl.Fatal().Msg("Not logged in, run `bumpcli login` first")
	}
}

func printState(wallets *store.Store) {
	state := wallets.Snapshot()
	fmt.Printf("Wallets (%d):\n", len(state.Wallets))
	for _, w := range state.Wallets {
		active := " "
		if w.IsActive {
			active = "*"
		}
		fmt.Printf("  %s %-10s %-12s balance=%.8f addr=%s\n", active, w.Type, w.ID, w.Balance, w.Address)
		if fiat, err := wallets.FiatValue(w); err == nil {
			fmt.Printf("      ~ $%s\n", fiat.StringFixed(2))
		}
	}
	fmt.Printf("Transactions (%d):\n", len(state.Transactions))
	for _, tx := range state.Transactions {
		fmt.Printf("  %s %-10s %+.8f -> %s (%s)\n",
			tx.Timestamp.Format("2006-01-02 15:04"), tx.WalletType, tx.Amount, tx.Address, tx.ID)
	}
}
