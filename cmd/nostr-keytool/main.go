// nostr-keytool generates, inspects, exports and imports nostr identity
// keys from the command line.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cryptoquick/nostr-types/internal/privacylog"
	"github.com/cryptoquick/nostr-types/internal/storeio"
	"github.com/cryptoquick/nostr-types/pkg/keys"
	"github.com/cryptoquick/nostr-types/pkg/nip19"
	"github.com/cryptoquick/nostr-types/pkg/nip49"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("nostr-keytool version=%s\n", version)
		return
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, nil)))
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "generate":
		err = runGenerate(args[1:])
	case "inspect":
		err = runInspect(args[1:])
	case "export":
		err = runExport(cfg, logger, args[1:])
	case "import":
		err = runImport(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: nostr-keytool [-config file] <command>

commands:
  generate                       create a new keypair
  inspect <nsec|npub|note|hex>   describe an entity string
  export -key <hex|nsec> -passphrase <p> [-cost N] [-out file]
  import -passphrase <p> <ncryptsec|file>`)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sk, err := keys.Generate()
	if err != nil {
		return err
	}
	defer sk.Wipe()
	return printKey(sk)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect takes exactly one entity string")
	}
	input := strings.TrimSpace(fs.Arg(0))

	if _, err := hex.DecodeString(input); err == nil && len(input) == 64 {
		// bare hex: could be a pubkey or an event id
		if _, err := keys.ParsePublicKey(input); err == nil {
			npub, _ := nip19.EncodePublicKey(input)
			fmt.Printf("kind:  public key (hex)\nnpub:  %s\n", npub)
			return nil
		}
		note, err := nip19.EncodeNote(input)
		if err != nil {
			return err
		}
		fmt.Printf("kind:  event id (hex)\nnote:  %s\n", note)
		return nil
	}

	prefix, value, err := nip19.Decode(input)
	if err != nil {
		return err
	}
	switch v := value.(type) {
	case *keys.SecretKey:
		defer v.Wipe()
		return printKey(v)
	case string:
		fmt.Printf("kind:  %s\nhex:   %s\n", prefix, v)
	case nip19.ProfilePointer:
		fmt.Printf("kind:   profile pointer\npubkey: %s\nrelays: %s\n", v.PublicKey, strings.Join(v.Relays, " "))
	case nip19.EventPointer:
		fmt.Printf("kind:   event pointer\nid:     %s\nauthor: %s\nrelays: %s\n", v.ID, v.Author, strings.Join(v.Relays, " "))
	case nip19.AddressPointer:
		fmt.Printf("kind:       address pointer\nidentifier: %s\npubkey:     %s\nevent kind: %d\n", v.Identifier, v.PublicKey, v.Kind)
	default:
		return fmt.Errorf("unhandled entity %q", prefix)
	}
	return nil
}

func runExport(cfg Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	keyArg := fs.String("key", "", "secret key as hex or nsec")
	passphrase := fs.String("passphrase", "", "export passphrase")
	cost := fs.Uint("cost", uint(cfg.KDFCostLog2), "scrypt cost exponent")
	out := fs.String("out", cfg.KeyFile, "write the encrypted key to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyArg == "" || *passphrase == "" {
		return fmt.Errorf("export requires -key and -passphrase")
	}
	sk, err := parseSecretKey(*keyArg)
	if err != nil {
		return err
	}
	defer sk.Wipe()

	encoded, err := nip49.Encrypt(sk, *passphrase, uint8(*cost), nip49.KeySecurityMedium)
	if err != nil {
		return err
	}
	pk, _ := sk.PublicKey()
	logger.Info("key exported", "pubkey", pk.Hex(), "cost_log2", *cost)
	if *out != "" {
		return storeio.WriteKeyFile(*out, []byte(encoded+"\n"))
	}
	fmt.Println(encoded)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	passphrase := fs.String("passphrase", "", "import passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *passphrase == "" {
		return fmt.Errorf("import requires -passphrase and an ncryptsec string or file")
	}
	input := strings.TrimSpace(fs.Arg(0))
	if !strings.HasPrefix(input, "ncryptsec1") {
		raw, err := storeio.ReadKeyFile(input)
		if err != nil {
			return err
		}
		input = strings.TrimSpace(string(raw))
	}
	sk, _, err := nip49.Decrypt(input, *passphrase)
	if err != nil {
		return err
	}
	defer sk.Wipe()
	return printKey(sk)
}

func parseSecretKey(input string) (*keys.SecretKey, error) {
	if strings.HasPrefix(input, "nsec1") {
		_, value, err := nip19.Decode(input)
		if err != nil {
			return nil, err
		}
		sk, ok := value.(*keys.SecretKey)
		if !ok {
			return nil, fmt.Errorf("%q is not a secret key", input)
		}
		return sk, nil
	}
	return keys.FromHex(input)
}

func printKey(sk *keys.SecretKey) error {
	pk, err := sk.PublicKey()
	if err != nil {
		return err
	}
	skHex, err := sk.Hex()
	if err != nil {
		return err
	}
	nsec, err := nip19.EncodeSecretKey(sk)
	if err != nil {
		return err
	}
	npub, err := nip19.EncodePublicKey(pk.Hex())
	if err != nil {
		return err
	}
	fmt.Printf("secret (hex): %s\nnsec:         %s\npublic (hex): %s\nnpub:         %s\n", skHex, nsec, pk.Hex(), npub)
	return nil
}
