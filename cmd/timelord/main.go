package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/eigerco/timelord/internal/config"
	"github.com/eigerco/timelord/internal/node"
	"github.com/eigerco/timelord/internal/store"
	"github.com/eigerco/timelord/pkg/db/pebble"
	"github.com/eigerco/timelord/pkg/log"
	"github.com/eigerco/timelord/pkg/serialization/codec"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:           "timelord",
		Short:         "Runs a timelord that follows a full node's peaks and unfinished blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFunc,
	}
	config.BindFlags(c.PersistentFlags())
	c.AddCommand(journalCommand())
	return c
}

func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	opts, err := cfg.LogOptions()
	if err != nil {
		return config.Config{}, err
	}
	log.Init(opts)
	return cfg, nil
}

func runFunc(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig(c.Flags())
	if err != nil {
		return err
	}

	n, err := node.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := n.Start(ctx); err != nil {
		return err
	}
	log.Root.Info().Str("addr", n.Addr().String()).Msg("waiting for full node connections")

	<-ctx.Done()
	log.Root.Info().Msg("shutting down")
	return n.Stop()
}

// journalEntry is the printed form of a journaled event.
type journalEntry struct {
	Seq        uint64    `json:"seq"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome,omitempty"`
	Height     uint32    `json:"height"`
	Iterations uint64    `json:"iterations,omitempty"`
	Hash       string    `json:"hash"`
	Time       time.Time `json:"time"`
}

func journalCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "journal",
		Short: "Prints the events journaled in --data-dir",
		RunE:  journalFunc,
	}
	c.Flags().Uint64("from", 1, "first sequence number to print")
	c.Flags().Int("limit", 100, "maximum number of events to print")
	c.Flags().Bool("latest-peak", false, "only print the latest adopted peak")
	return c
}

func journalFunc(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig(c.Flags())
	if err != nil {
		return err
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("--data-dir is required")
	}
	from, _ := c.Flags().GetUint64("from")
	limit, _ := c.Flags().GetInt("limit")
	latestPeak, _ := c.Flags().GetBool("latest-peak")

	kv, err := pebble.NewKVStore(pebble.WithPath(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	journal, err := store.NewJournal(kv)
	if err != nil {
		kv.Close()
		return err
	}
	defer journal.Close()

	var records []store.Record
	if latestPeak {
		r, err := journal.LatestPeak()
		if err != nil {
			return err
		}
		records = append(records, r)
	} else {
		records, err = journal.Events(from, limit)
		if err != nil {
			return err
		}
	}

	out := &codec.JSONCodec{}
	for _, r := range records {
		line, err := out.Marshal(journalEntry{
			Seq:        r.Seq,
			Kind:       string(r.Event.Kind),
			Outcome:    r.Event.Outcome,
			Height:     r.Event.Height,
			Iterations: r.Event.Iterations,
			Hash:       r.Event.Hash.String(),
			Time:       r.Event.Time,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), string(line))
	}
	return nil
}
