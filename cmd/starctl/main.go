package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/starregistry/starledger/internal/wallet"
	"github.com/starregistry/starledger/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	registryURL string
	keyPath     string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "starctl",
	Short: "Star registry CLI",
	Long: `starctl is the command-line interface for the star registry.

It manages wallet keys, requests and signs ownership challenges, submits
stars, and inspects the registry's hash-linked chain.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".starctl"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = "http://localhost:8080"
		}
		if keyPath == "" {
			keyPath = viper.GetString("key_path")
		}
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = filepath.Join(home, ".starctl", "wallet.pem")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.starctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&keyPath, "key", "", "wallet key file (default ~/.starctl/wallet.pem)")

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(starsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// ── keygen / address ─────────────────────────────────────────────────────────

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a wallet key (no-op when one already exists)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
			return err
		}
		w, err := wallet.LoadOrCreate(keyPath)
		if err != nil {
			return fmt.Errorf("load or create wallet: %w", err)
		}
		fmt.Printf("key:     %s\naddress: %s\n", keyPath, w.Address())
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address derived from the wallet key",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := wallet.LoadOrCreate(keyPath)
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}
		fmt.Println(w.Address())
		return nil
	},
}

// ── submit ───────────────────────────────────────────────────────────────────

var (
	submitStarJSON string
	submitStarFile string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Register a star: request a challenge, sign it, and submit",
	Long: `Submit runs the full ownership flow against the registry:

  1. Request an ownership challenge for the wallet's address.
  2. Sign the challenge message with the wallet key.
  3. Submit the signed challenge together with the star payload.

The star payload is arbitrary JSON, given inline or from a file:

  starctl submit --star '{"dec":"68° 52'\'' 56.9","ra":"16h 29m 1.0s","story":"mine"}'
  starctl submit --star-file star.json`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitStarJSON, "star", "", "star payload as inline JSON")
	submitCmd.Flags().StringVar(&submitStarFile, "star-file", "", "path to a JSON file holding the star payload")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	var raw []byte
	switch {
	case submitStarJSON != "":
		raw = []byte(submitStarJSON)
	case submitStarFile != "":
		data, err := os.ReadFile(submitStarFile)
		if err != nil {
			return err
		}
		raw = data
	default:
		return fmt.Errorf("one of --star or --star-file is required")
	}
	if !json.Valid(raw) {
		return fmt.Errorf("star payload is not valid JSON")
	}

	w, err := wallet.LoadOrCreate(keyPath)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	ctx, cancel := timeoutCtx()
	defer cancel()

	c := client.New(registryURL)

	ch, err := c.RequestChallenge(ctx, w.Address())
	if err != nil {
		return fmt.Errorf("request challenge: %w", err)
	}

	sig := w.SignChallenge(ch.Message)

	rec, err := c.SubmitStar(ctx, w.Address(), ch.Message, sig, json.RawMessage(raw))
	if err != nil {
		return fmt.Errorf("submit star: %w", err)
	}

	fmt.Printf("star committed\nheight: %d\nhash:   %s\nowner:  %s\n", rec.Height, rec.Hash, rec.Owner)
	return nil
}

// ── lookups ──────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <height|hash> <value>",
	Short: "Fetch a record by chain height or by hash",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := timeoutCtx()
		defer cancel()

		c := client.New(registryURL)

		var (
			rec *client.Record
			err error
		)
		switch args[0] {
		case "height":
			var height int
			if _, scanErr := fmt.Sscanf(args[1], "%d", &height); scanErr != nil {
				return fmt.Errorf("height must be an integer: %q", args[1])
			}
			rec, err = c.RecordByHeight(ctx, height)
		case "hash":
			rec, err = c.RecordByHash(ctx, args[1])
		default:
			return fmt.Errorf("unknown lookup kind %q (want height or hash)", args[0])
		}
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var starsCmd = &cobra.Command{
	Use:   "stars [address]",
	Short: "List the stars registered to an address (default: own wallet)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := ""
		if len(args) == 1 {
			address = args[0]
		} else {
			w, err := wallet.LoadOrCreate(keyPath)
			if err != nil {
				return fmt.Errorf("load wallet: %w", err)
			}
			address = w.Address()
		}

		ctx, cancel := timeoutCtx()
		defer cancel()

		stars, err := client.New(registryURL).StarsByOwner(ctx, address)
		if err != nil {
			return err
		}
		return printJSON(stars)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a full-chain integrity check on the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := timeoutCtx()
		defer cancel()

		report, err := client.New(registryURL).ValidateChain(ctx)
		if err != nil {
			return err
		}
		if report.Valid {
			fmt.Println("chain intact")
			return nil
		}
		fmt.Println("chain TAMPERED:")
		for _, e := range report.Errors {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the starctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
