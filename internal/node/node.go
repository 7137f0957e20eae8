// Package node wires the configured components into a runnable
// daemon: ledger, treasury, token, journal, optional relational
// index, and the RPC, WebSocket, and metrics listeners.
package node

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yieldprotocol/principald/internal/config"
	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/core/ledger"
	"github.com/yieldprotocol/principald/internal/core/principal"
	"github.com/yieldprotocol/principald/internal/core/treasury"
	"github.com/yieldprotocol/principald/internal/journal"
	"github.com/yieldprotocol/principald/internal/metrics"
	"github.com/yieldprotocol/principald/internal/rpc"
	"github.com/yieldprotocol/principald/internal/storage/relationaldb"
	"github.com/yieldprotocol/principald/internal/storage/relationaldb/postgres"
)

// Node is the assembled daemon.
type Node struct {
	cfg *config.Config
	log *logrus.Logger

	ledger   *ledger.Ledger
	treasury *treasury.Treasury
	token    *principal.Token
	journal  *journal.Journal
	index    relationaldb.RecordIndex

	services  *rpc.Services
	rpcServer *rpc.Server
	wsServer  *rpc.WebSocketServer
}

// New builds a node from configuration. Genesis allocations are
// minted and the treasury funded before any listener starts.
func New(cfg *config.Config, log *logrus.Logger) (*Node, error) {
	maturity, err := cfg.Token.MaturityTime()
	if err != nil {
		return nil, fmt.Errorf("node: parse maturity: %w", err)
	}

	l := ledger.New()
	for account, value := range cfg.Genesis.Allocations {
		amt, err := amount.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("node: genesis allocation for %s: %w", account, err)
		}
		if err := l.Mint(account, amt); err != nil {
			return nil, fmt.Errorf("node: mint genesis allocation for %s: %w", account, err)
		}
	}

	tr := treasury.New(cfg.Token.Underlying)
	if cfg.Genesis.Reserve != "" {
		reserve, err := amount.Parse(cfg.Genesis.Reserve)
		if err != nil {
			return nil, fmt.Errorf("node: genesis reserve: %w", err)
		}
		if err := tr.Fund(reserve); err != nil {
			return nil, fmt.Errorf("node: fund treasury: %w", err)
		}
	}

	j, err := journal.Open(journal.Config{
		Backend:     cfg.Journal.Backend,
		Path:        cfg.Journal.Path,
		Compression: cfg.Journal.Compression,
		CacheSize:   cfg.Journal.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("node: open journal: %w", err)
	}

	n := &Node{
		cfg:      cfg,
		log:      log,
		ledger:   l,
		treasury: tr,
		journal:  j,
	}

	opts := []principal.Option{
		principal.WithRecorder(&journalRecorder{node: n}),
	}
	if cfg.Token.RateNum != 1 || cfg.Token.RateDen != 1 {
		opts = append(opts, principal.WithConverter(principal.Rate{
			Num: cfg.Token.RateNum,
			Den: cfg.Token.RateDen,
		}))
	}
	n.token = principal.New(cfg.Token.Underlying, maturity, l, tr, opts...)

	services := &rpc.Services{
		Token:    n.token,
		Ledger:   l,
		Treasury: tr,
		Journal:  j,
		Log:      log,
	}
	n.services = services
	n.rpcServer = rpc.NewServer(services, cfg.Server.Timeout())
	n.wsServer = rpc.NewWebSocketServer(services)

	// Committed records fan out to stream subscribers and, when
	// enabled, the relational index.
	j.Subscribe(n.wsServer.BroadcastRecord)

	if cfg.Index.Enabled {
		relCfg := cfg.Index.RelationalConfig()
		idx, err := postgres.NewIndex(&relCfg)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("node: record index config: %w", err)
		}
		if err := idx.Open(context.Background()); err != nil {
			j.Close()
			return nil, fmt.Errorf("node: open record index: %w", err)
		}
		n.index = idx
		j.Subscribe(n.indexRecord)
	}

	n.updateGauges()

	return n, nil
}

// journalRecorder appends committed redemptions to the journal. The
// ledger effects have already committed when this runs; an append
// failure is logged, never propagated back into the redemption.
type journalRecorder struct {
	node *Node
}

func (r *journalRecorder) RecordRedeem(rec principal.Record) {
	n := r.node
	stored, err := n.journal.Append(journal.Record{
		From:       rec.From,
		To:         rec.To,
		Principal:  rec.Principal,
		Underlying: rec.Underlying,
		Time:       rec.Time,
	})
	if err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"from": rec.From,
			"to":   rec.To,
		}).Error("failed to append redemption record")
		return
	}

	metrics.JournalRecords.Inc()
	n.updateGauges()

	n.log.WithFields(logrus.Fields{
		"seq":        stored.Seq,
		"from":       stored.From,
		"to":         stored.To,
		"principal":  stored.Principal.String(),
		"underlying": stored.Underlying.String(),
	}).Info("redemption recorded")
}

func (n *Node) indexRecord(rec journal.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := n.index.IndexRecord(ctx, rec); err != nil {
		n.log.WithError(err).WithField("seq", rec.Seq).Error("failed to index redemption record")
	}
}

func (n *Node) updateGauges() {
	if v, ok := n.ledger.TotalSupply().Uint64(); ok {
		metrics.TotalSupply.Set(float64(v))
	}
	if v, ok := n.treasury.Reserve().Uint64(); ok {
		metrics.TreasuryReserve.Set(float64(v))
	}
}

// Token exposes the engine, for CLI subcommands that run queries
// in-process.
func (n *Node) Token() *principal.Token {
	return n.token
}

// Journal exposes the redemption journal.
func (n *Node) Journal() *journal.Journal {
	return n.journal
}

// Services exposes the RPC service container, for in-process method
// execution.
func (n *Node) Services() *rpc.Services {
	return n.services
}

// Run serves the RPC, WebSocket, and metrics listeners until ctx is
// cancelled, then shuts them down and closes the node.
func (n *Node) Run(ctx context.Context) error {
	defer n.Close()

	rpcMux := http.NewServeMux()
	rpcMux.Handle("/", n.rpcServer)
	rpcMux.Handle("/rpc", n.rpcServer)
	rpcMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"principald"}`))
	})
	rpcMux.Handle("/metrics", metrics.Handler())

	wsMux := http.NewServeMux()
	wsMux.Handle("/", n.wsServer)
	wsMux.Handle("/ws", n.wsServer)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	host := n.cfg.Server.Host
	servers := []*http.Server{
		{Addr: fmt.Sprintf("%s:%d", host, n.cfg.Server.RPCPort), Handler: rpcMux},
		{Addr: fmt.Sprintf("%s:%d", host, n.cfg.Server.WSPort), Handler: wsMux},
		{Addr: fmt.Sprintf("%s:%d", host, n.cfg.Server.MetricsPort), Handler: metricsMux},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		n.log.WithField("addr", srv.Addr).Info("listener starting")
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(shutdownCtx)
		}
		return ctx.Err()
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// Close releases the journal and the record index.
func (n *Node) Close() error {
	var firstErr error
	if n.index != nil {
		if err := n.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		n.index = nil
	}
	if n.journal != nil {
		if err := n.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		n.journal = nil
	}
	return firstErr
}
