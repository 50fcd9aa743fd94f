// pnger hides payloads inside PNG and BMP images and recovers them.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pnger/internal/config"
	"pnger/internal/container"
	"pnger/internal/journal"
	"pnger/internal/logging"
	"pnger/internal/watcher"
	"pnger/pkg/stego"
	"pnger/pkg/stego/seed"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "embed":
		err = cmdEmbed(os.Args[2:])
	case "extract":
		err = cmdExtract(os.Args[2:])
	case "capacity":
		err = cmdCapacity(os.Args[2:])
	case "journal":
		err = cmdJournal(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pnger: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `pnger - hide payloads in PNG and BMP images

Usage: pnger <command> [options]

Commands:
  embed      Hide a payload inside a carrier image
  extract    Recover a payload from a carrier image
  capacity   Report how many payload bytes a carrier can hold
  journal    Print recent recorded operations
  watch      Process carrier images dropped into a directory
  help       Show this help message

Run 'pnger <command> -h' for command options.`)
}

// strategyFlags are the embedding options shared by embed, extract and
// capacity.
type strategyFlags struct {
	pattern     string
	bitIndex    int
	password    string
	seedHex     string
	obfuscate   bool
	noObfuscate bool
	key         string
}

func (sf *strategyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.pattern, "pattern", "", "bit pattern: linear or random (default from config)")
	fs.IntVar(&sf.bitIndex, "bit", -1, "carrier bit plane, 0 (LSB) to 7 (MSB) (default from config)")
	fs.StringVar(&sf.password, "password", "", "password keying the random pattern")
	fs.StringVar(&sf.seedHex, "seed", "", "manual 32-byte seed as hex")
	fs.BoolVar(&sf.noObfuscate, "no-obfuscate", false, "disable XOR payload obfuscation")
	fs.StringVar(&sf.key, "key", "", "XOR obfuscation key (default built-in)")
}

// resolve fills flag values the user left unset from the config defaults.
func (sf *strategyFlags) resolve(cfg *config.Config) {
	if sf.pattern == "" {
		sf.pattern = cfg.Defaults.Pattern
	}
	if sf.bitIndex < 0 {
		sf.bitIndex = cfg.Defaults.BitIndex
	}
	sf.obfuscate = cfg.Obfuscation.Enabled && !sf.noObfuscate
}

// options translates the flags into engine options. The config supplies
// defaults the flags did not override.
func (sf *strategyFlags) options(cfg *config.Config) (*stego.Options, error) {
	var opts *stego.Options
	switch sf.pattern {
	case "linear":
		opts = stego.LinearOptions()
	case "random":
		src, err := sf.seedSource(cfg)
		if err != nil {
			return nil, err
		}
		opts = stego.RandomOptions(src)
	default:
		return nil, fmt.Errorf("unknown pattern %q", sf.pattern)
	}

	if sf.bitIndex < 0 || sf.bitIndex > 7 {
		return nil, fmt.Errorf("bit index %d out of range 0..7", sf.bitIndex)
	}
	opts.WithBitIndex(uint8(sf.bitIndex))

	if sf.obfuscate {
		key := sf.key
		if key == "" {
			key = cfg.Obfuscation.Key
		}
		if key == "" {
			opts.WithObfuscation(nil) // built-in default key
		} else {
			opts.WithObfuscation([]byte(key))
		}
	}

	return opts, nil
}

func (sf *strategyFlags) seedSource(cfg *config.Config) (seed.Source, error) {
	if sf.seedHex != "" {
		raw, err := hex.DecodeString(sf.seedHex)
		if err != nil {
			return seed.Source{}, fmt.Errorf("decode seed: %w", err)
		}
		if len(raw) != seed.Size {
			return seed.Source{}, fmt.Errorf("seed must be %d bytes, got %d", seed.Size, len(raw))
		}
		var s [seed.Size]byte
		copy(s[:], raw)
		return seed.ManualSource(s), nil
	}
	if sf.password != "" {
		return seed.PasswordSource(sf.password), nil
	}
	switch cfg.Defaults.SeedSource {
	case "password":
		return seed.Source{}, fmt.Errorf("config default seed source is password, pass -password")
	case "manual":
		return seed.Source{}, fmt.Errorf("config default seed source is manual, pass -seed")
	default:
		return seed.AutoSource(), nil
	}
}

// seedSourceName is what gets recorded in the journal.
func (sf *strategyFlags) seedSourceName() string {
	switch {
	case sf.pattern == "linear":
		return "none"
	case sf.seedHex != "":
		return "manual"
	case sf.password != "":
		return "password"
	default:
		return "auto"
	}
}

func setup(fs *flag.FlagSet, configPath *string, args []string) (*config.Config, *slog.Logger, func(), error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if closer != nil {
			closer.Close()
		}
	}
	return cfg, logger, cleanup, nil
}

func record(cfg *config.Config, logger *slog.Logger, e *journal.Entry) {
	if !cfg.Journal.Enabled {
		return
	}
	j, err := journal.Open(cfg.Journal.Path, cfg.Journal.BusyTimeoutMs)
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
		return
	}
	defer j.Close()
	if _, err := j.Record(e); err != nil {
		logger.Warn("journal record failed", "error", err)
	}
}

func cmdEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	var (
		configPath  = fs.String("config", "", "path to config file")
		in          = fs.String("in", "", "carrier image (PNG or BMP)")
		out         = fs.String("out", "", "output image path (default: <in>.stego.<ext>)")
		payloadPath = fs.String("payload", "", "payload file (default: read stdin)")
		sf          strategyFlags
	)
	sf.register(fs)

	cfg, logger, cleanup, err := setup(fs, configPath, args)
	if err != nil {
		return err
	}
	defer cleanup()
	sf.resolve(cfg)

	if *in == "" {
		return fmt.Errorf("embed: -in is required")
	}

	var payload []byte
	if *payloadPath != "" {
		payload, err = os.ReadFile(*payloadPath)
	} else {
		payload, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	opts, err := sf.options(cfg)
	if err != nil {
		return err
	}

	img, err := container.Load(*in)
	if err != nil {
		return err
	}

	res, err := stego.Embed(img.Pix, payload, opts)
	if err != nil {
		return err
	}

	dest := *out
	if dest == "" {
		ext := filepath.Ext(*in)
		dest = (*in)[:len(*in)-len(ext)] + ".stego" + ext
	}
	if err := container.Save(dest, img); err != nil {
		return err
	}

	logger.Info("payload embedded",
		"carrier", *in,
		"output", dest,
		"payload_bytes", len(payload),
		"header_bytes", res.HeaderSize,
		"pattern", sf.pattern,
		"bit", sf.bitIndex)

	record(cfg, logger, &journal.Entry{
		Kind:         "embed",
		CarrierPath:  dest,
		CarrierBytes: len(img.Pix),
		PayloadBytes: len(payload),
		Pattern:      sf.pattern,
		BitIndex:     sf.bitIndex,
		SeedSource:   sf.seedSourceName(),
		Obfuscated:   sf.obfuscate,
	})

	fmt.Printf("Embedded %d bytes into %s\n", len(payload), dest)
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "path to config file")
		in         = fs.String("in", "", "carrier image (PNG or BMP)")
		out        = fs.String("out", "", "payload output file (default: stdout)")
		sf         strategyFlags
	)
	sf.register(fs)

	cfg, logger, cleanup, err := setup(fs, configPath, args)
	if err != nil {
		return err
	}
	defer cleanup()
	sf.resolve(cfg)

	if *in == "" {
		return fmt.Errorf("extract: -in is required")
	}

	// The header inside the image describes pattern and bit index; only
	// the secret (if any) and the XOR key come from the caller.
	opts := stego.DefaultOptions()
	if sf.seedHex != "" || sf.password != "" {
		src, err := sf.seedSource(cfg)
		if err != nil {
			return err
		}
		opts = stego.RandomOptions(src)
	}
	key := sf.key
	if key == "" {
		key = cfg.Obfuscation.Key
	}
	if key != "" {
		opts.WithObfuscation([]byte(key))
	}

	img, err := container.Load(*in)
	if err != nil {
		return err
	}

	res, err := stego.Extract(img.Pix, opts)
	if err != nil {
		return err
	}

	logger.Info("payload extracted",
		"carrier", *in,
		"payload_bytes", len(res.Payload),
		"seed_was_embedded", res.SeedWasEmbedded)

	record(cfg, logger, &journal.Entry{
		Kind:         "extract",
		CarrierPath:  *in,
		CarrierBytes: len(img.Pix),
		PayloadBytes: len(res.Payload),
		Pattern:      sf.pattern,
		BitIndex:     sf.bitIndex,
		SeedSource:   sf.seedSourceName(),
	})

	if *out != "" {
		if err := os.WriteFile(*out, res.Payload, 0o600); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		fmt.Printf("Extracted %d bytes to %s\n", len(res.Payload), *out)
		return nil
	}
	_, err = os.Stdout.Write(res.Payload)
	return err
}

func cmdCapacity(args []string) error {
	fs := flag.NewFlagSet("capacity", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "path to config file")
		in         = fs.String("in", "", "carrier image (PNG or BMP)")
		sf         strategyFlags
	)
	sf.register(fs)

	cfg, _, cleanup, err := setup(fs, configPath, args)
	if err != nil {
		return err
	}
	defer cleanup()
	sf.resolve(cfg)

	if *in == "" {
		return fmt.Errorf("capacity: -in is required")
	}

	opts, err := sf.options(cfg)
	if err != nil {
		return err
	}

	img, err := container.Load(*in)
	if err != nil {
		return err
	}

	n := stego.Capacity(len(img.Pix), opts)
	fmt.Printf("%s: %dx%d %s, %d payload bytes (%s pattern, bit %d)\n",
		*in, img.Width, img.Height, img.Format, n, sf.pattern, sf.bitIndex)
	return nil
}

func cmdJournal(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "path to config file")
		limit      = fs.Int("n", 20, "number of entries to show")
		carrier    = fs.String("carrier", "", "show entries for one carrier path")
	)

	cfg, _, cleanup, err := setup(fs, configPath, args)
	if err != nil {
		return err
	}
	defer cleanup()

	j, err := journal.Open(cfg.Journal.Path, cfg.Journal.BusyTimeoutMs)
	if err != nil {
		return err
	}
	defer j.Close()

	var entries []journal.Entry
	if *carrier != "" {
		entries, err = j.ByCarrier(*carrier)
	} else {
		entries, err = j.Recent(*limit)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No recorded operations.")
		return nil
	}
	for _, e := range entries {
		obf := ""
		if e.Obfuscated {
			obf = " obfuscated"
		}
		fmt.Printf("%6d  %-7s %-40s %7dB payload  %s/bit%d/%s%s\n",
			e.ID, e.Kind, e.CarrierPath, e.PayloadBytes,
			e.Pattern, e.BitIndex, e.SeedSource, obf)
	}
	return nil
}

func cmdWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var (
		configPath  = fs.String("config", "", "path to config file")
		inDir       = fs.String("in", "", "directory to watch (default from config)")
		outDir      = fs.String("out", "", "output directory (default from config)")
		payloadPath = fs.String("payload", "", "payload file embedded into every carrier")
		sf          strategyFlags
	)
	sf.register(fs)

	cfg, logger, cleanup, err := setup(fs, configPath, args)
	if err != nil {
		return err
	}
	defer cleanup()
	sf.resolve(cfg)

	if *inDir == "" {
		*inDir = cfg.Watch.InputDir
	}
	if *outDir == "" {
		*outDir = cfg.Watch.OutputDir
	}
	if *inDir == "" || *outDir == "" {
		return fmt.Errorf("watch: input and output directories are required")
	}
	if *payloadPath == "" {
		return fmt.Errorf("watch: -payload is required")
	}
	payload, err := os.ReadFile(*payloadPath)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	opts, err := sf.options(cfg)
	if err != nil {
		return err
	}

	debounce := durationMs(cfg.Watch.DebounceMs)
	w, err := watcher.New(*inDir, cfg.Watch.IncludePatterns, debounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("watching for carriers", "dir", *inDir, "out", *outDir)

	for {
		select {
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := processCarrier(event.Path, *outDir, payload, opts, sf, cfg, logger); err != nil {
				logger.Error("carrier failed", "path", event.Path, "error", err)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func processCarrier(path, outDir string, payload []byte, opts *stego.Options,
	sf strategyFlags, cfg *config.Config, logger *slog.Logger) error {

	img, err := container.Load(path)
	if err != nil {
		return err
	}

	res, err := stego.Embed(img.Pix, payload, opts)
	if err != nil {
		return err
	}

	dest := filepath.Join(outDir, filepath.Base(path))
	if err := container.Save(dest, img); err != nil {
		return err
	}

	logger.Info("carrier processed",
		"in", path,
		"out", dest,
		"payload_bytes", len(payload),
		"header_bytes", res.HeaderSize)

	record(cfg, logger, &journal.Entry{
		Kind:         "embed",
		CarrierPath:  dest,
		CarrierBytes: len(img.Pix),
		PayloadBytes: len(payload),
		Pattern:      sf.pattern,
		BitIndex:     sf.bitIndex,
		SeedSource:   sf.seedSourceName(),
		Obfuscated:   sf.obfuscate,
	})
	return nil
}

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
