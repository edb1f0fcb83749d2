package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eigerco/timelord/internal/config"
	"github.com/eigerco/timelord/internal/pot"
	"github.com/eigerco/timelord/internal/store"
	"github.com/eigerco/timelord/internal/timelord"
	"github.com/eigerco/timelord/pkg/db/pebble"
	"github.com/eigerco/timelord/pkg/log"
	"github.com/eigerco/timelord/pkg/network/cert"
	"github.com/eigerco/timelord/pkg/network/handlers"
	"github.com/eigerco/timelord/pkg/network/protocol"
	"github.com/eigerco/timelord/pkg/network/transport"
)

const shutdownTimeout = 5 * time.Second

var ErrNotStarted = errors.New("node not started")

// Node runs a timelord behind a QUIC listener. Every event the timelord
// emits is appended to the journal, and its collectors are served over HTTP.
type Node struct {
	config    config.Config
	timelord  *timelord.Timelord
	sink      *timelord.ChannelSink
	journal   *store.Journal
	transport *transport.Transport
	registry  *prometheus.Registry

	metricsServer   *http.Server
	metricsListener net.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a node from cfg. Nothing listens until Start.
func New(cfg config.Config) (n *Node, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	consts, err := cfg.Constants()
	if err != nil {
		return nil, err
	}

	kv, err := pebble.NewKVStore(pebble.WithPath(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	journal, err := store.NewJournal(kv)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if err != nil {
			journal.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := timelord.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	sink := timelord.NewChannelSink(cfg.EventBuffer)
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timelord",
		Name:      "events_total",
		Help:      "events published by the timelord, by kind",
	}, []string{"kind"})
	registry.MustRegister(events, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "timelord",
		Name:      "events_dropped_total",
		Help:      "events dropped because the journal fell behind",
	}, func() float64 { return float64(sink.Dropped()) }))

	tl := timelord.New(consts, pot.NewClassifier(nil),
		timelord.WithBlueboxMode(cfg.Bluebox),
		timelord.WithEventSink(timelord.FanOut{sink, eventCounter{events}}),
		timelord.WithMetrics(metrics),
	)

	key, err := cert.LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	tlsCert, err := cert.NewGenerator(cert.Config{
		PrivateKey:         key,
		CertValidityPeriod: cfg.CertValidity,
	}).GenerateCertificate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}

	manager, err := protocol.NewManager(protocol.Config{
		Network: consts.Name,
		Bluebox: cfg.Bluebox,
		Handler: handlers.NewTimelordHandler(tl, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol manager: %w", err)
	}
	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		ListenAddr:    cfg.ListenAddr,
		CertValidator: cert.NewValidator(),
		Handler:       manager,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Node{
		config:    cfg,
		timelord:  tl,
		sink:      sink,
		journal:   journal,
		transport: tr,
		registry:  registry,
	}, nil
}

// eventCounter counts published events by kind. Counting does not block, so
// it may run under the timelord lock.
type eventCounter struct {
	events *prometheus.CounterVec
}

func (c eventCounter) Publish(e timelord.Event) {
	c.events.WithLabelValues(string(e.Kind)).Inc()
}

func (n *Node) Timelord() *timelord.Timelord {
	return n.timelord
}

func (n *Node) Journal() *store.Journal {
	return n.journal
}

// Addr is the QUIC listen address, nil before Start.
func (n *Node) Addr() net.Addr {
	return n.transport.Addr()
}

// MetricsAddr is the metrics listen address, nil when metrics are disabled
// or before Start.
func (n *Node) MetricsAddr() net.Addr {
	if n.metricsListener == nil {
		return nil
	}
	return n.metricsListener.Addr()
}

// Start begins journaling events, serving metrics and accepting full node
// connections. The node runs until ctx is done or Stop is called.
func (n *Node) Start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.drainEvents(ctx)
	}()

	if n.config.MetricsAddr != "" {
		l, err := net.Listen("tcp", n.config.MetricsAddr)
		if err != nil {
			n.cancel()
			n.wg.Wait()
			return fmt.Errorf("listen metrics: %w", err)
		}
		n.metricsListener = l
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
		n.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.metricsServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Root.Error().Err(err).Msg("metrics server failed")
			}
		}()
		log.Root.Info().Str("addr", l.Addr().String()).Msg("serving metrics")
	}

	if err := n.transport.Start(); err != nil {
		return multierror.Append(err, n.shutdown())
	}

	log.Root.Info().
		Str("network", n.timelord.Constants().Name).
		Bool("bluebox", n.timelord.BlueboxMode()).
		Msg("timelord started")
	return nil
}

// drainEvents appends published events to the journal until ctx is done,
// then flushes what is still buffered.
func (n *Node) drainEvents(ctx context.Context) {
	for {
		select {
		case e := <-n.sink.Events():
			n.journalEvent(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-n.sink.Events():
					n.journalEvent(e)
				default:
					return
				}
			}
		}
	}
}

func (n *Node) journalEvent(e timelord.Event) {
	seq, err := n.journal.Append(e)
	if err != nil {
		log.Store.Error().Err(err).Str("kind", string(e.Kind)).Msg("failed to journal event")
		return
	}
	log.Store.Trace().Uint64("seq", seq).Str("kind", string(e.Kind)).Msg("event journaled")
}

// Stop closes connections, flushes the event buffer and closes the journal.
func (n *Node) Stop() error {
	if n.cancel == nil {
		return ErrNotStarted
	}
	var result *multierror.Error
	if err := n.transport.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop transport: %w", err))
	}
	if err := n.shutdown(); err != nil {
		result = multierror.Append(result, err)
	}
	log.Root.Info().Msg("timelord stopped")
	return result.ErrorOrNil()
}

func (n *Node) shutdown() error {
	var result *multierror.Error
	if n.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := n.metricsServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop metrics server: %w", err))
		}
		cancel()
	}
	n.cancel()
	n.wg.Wait()
	if err := n.journal.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close journal: %w", err))
	}
	return result.ErrorOrNil()
}
