// Package engine wires the block store, whitener sourcing, ingestion, and
// reconstruction packages behind a single entry point, mirroring the
// teacher's practice of exposing one top-level orchestrator (core.Node /
// core.Storage in the examples) that owns its collaborators' lifecycles.
package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"offs-core/block"
	"offs-core/checksum"
	"offs-core/diskstore"
	"offs-core/engine/errs"
	"offs-core/ingest"
	"offs-core/magnet"
	"offs-core/metaindex"
	"offs-core/offs"
	pkgconfig "offs-core/pkg/config"
	"offs-core/pool"
	"offs-core/reconstruct"
)

// Config is the subset of pkg/config.Config the engine needs to stand up
// its store and pipelines.
type Config struct {
	RootPath       string
	PrimePool      string
	WhitenerPool   string
	TupleSize      int
	CacheFraction  float64
	ChunkSize      int
	MetricsEnabled bool
}

// FromPkgConfig adapts a loaded pkg/config.Config into an engine Config.
func FromPkgConfig(cfg *pkgconfig.Config) Config {
	return Config{
		RootPath:       cfg.Store.RootPath,
		PrimePool:      cfg.Store.PrimePool,
		WhitenerPool:   cfg.Store.WhitenerPool,
		TupleSize:      cfg.Offs.TupleSize,
		CacheFraction:  cfg.Offs.CacheFraction,
		ChunkSize:      cfg.Offs.ChunkSize,
		MetricsEnabled: cfg.Metrics.Enabled,
	}
}

// Engine orchestrates the pooled store and the ingest/reconstruct
// pipelines. It must be initialized with Init before any other method is
// called (spec §6 "Uninitialized").
type Engine struct {
	mu  sync.Mutex
	cfg Config
	log *logrus.Logger

	store       pool.Store
	meta        metaindex.Index
	metrics     *pool.Metrics
	encryptor   offs.Encryptor
	decryptor   reconstruct.Decryptor
	initialized bool
}

// New returns an uninitialized Engine. Call Init before use.
func New(cfg Config, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{cfg: cfg, log: log}
}

// NewFromConfig builds and initializes an Engine directly from a loaded
// pkg/config.Config, the shape cmd/offsctl uses at startup.
func NewFromConfig(cfg *pkgconfig.Config, log *logrus.Logger) (*Engine, error) {
	e := New(FromPkgConfig(cfg), log)
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// WithEncryption attaches the ECIES collaborators used to support
// encrypted ingestion/reconstruction. Neither is required for plaintext
// operation.
func (e *Engine) WithEncryption(enc offs.Encryptor, dec reconstruct.Decryptor) *Engine {
	e.encryptor = enc
	e.decryptor = dec
	return e
}

// Init stands up the on-disk store and metadata index. Calling Init twice
// fails with AlreadyInitialized (spec §6).
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return errs.ErrAlreadyInitialized
	}

	meta := metaindex.New()
	var metrics *pool.Metrics
	if e.cfg.MetricsEnabled {
		metrics = pool.NewMetrics()
	}
	store, err := diskstore.New(e.cfg.RootPath, meta, metrics, e.log)
	if err != nil {
		return err
	}

	e.store = store
	e.meta = meta
	e.metrics = metrics
	e.initialized = true
	return nil
}

func (e *Engine) requireInit() error {
	if !e.initialized {
		return errs.ErrUninitialized
	}
	return nil
}

// Metrics returns the engine's Prometheus metrics, or nil if metrics were
// not enabled in Config.
func (e *Engine) Metrics() *pool.Metrics { return e.metrics }

// Store exposes the underlying pool.Store for callers that need direct
// access beyond the ingest/reconstruct pipelines (e.g. the CLI's pool
// subcommands).
func (e *Engine) Store() pool.Store { return e.store }

// IngestFile runs the ingestion pipeline against the engine's configured
// prime and whitener pools (spec §4.8).
func (e *Engine) IngestFile(p ingest.Params) ([]byte, error) {
	if err := e.requireInit(); err != nil {
		return nil, err
	}
	return ingest.IngestFile(ingest.Deps{
		Store:          e.store,
		PrimePoolId:    e.cfg.PrimePool,
		WhitenerPoolId: e.cfg.WhitenerPool,
		CacheFraction:  e.cfg.CacheFraction,
		ChunkSize:      e.cfg.ChunkSize,
		Encryptor:      e.encryptor,
	}, p)
}

// ReconstructFile runs the reconstruction pipeline against the engine's
// configured prime pool (spec §4.9).
func (e *Engine) ReconstructFile(payload []byte) ([]byte, error) {
	if err := e.requireInit(); err != nil {
		return nil, err
	}
	return reconstruct.ReconstructFile(reconstruct.Deps{
		Store:          e.store,
		PrimePoolId:    e.cfg.PrimePool,
		WhitenerPoolId: e.cfg.WhitenerPool,
		Decryptor:      e.decryptor,
	}, payload)
}

// MagnetFor returns a magnet URL identifying sum within poolId.
func (e *Engine) MagnetFor(sum checksum.Checksum, poolId string) (string, error) {
	return magnet.Encode(sum, poolId)
}

// ResolveMagnet decodes a magnet URL back into a checksum and pool id.
func (e *Engine) ResolveMagnet(url string) (checksum.Checksum, string, error) {
	return magnet.Decode(url)
}

// Pool operations (spec §4.3), delegated straight to the store once the
// engine is initialized.

func (e *Engine) ListPools() ([]string, error) {
	if err := e.requireInit(); err != nil {
		return nil, err
	}
	return e.store.ListPools()
}

func (e *Engine) PoolStats(poolId string) (pool.Stats, error) {
	if err := e.requireInit(); err != nil {
		return pool.Stats{}, err
	}
	return e.store.GetPoolStats(poolId)
}

func (e *Engine) ValidatePoolDeletion(poolId string) (pool.DependencyReport, error) {
	if err := e.requireInit(); err != nil {
		return pool.DependencyReport{}, err
	}
	return e.store.ValidatePoolDeletion(poolId)
}

func (e *Engine) DeletePool(poolId string, force bool) error {
	if err := e.requireInit(); err != nil {
		return err
	}
	if force {
		return e.store.ForceDeletePool(poolId)
	}
	return e.store.DeletePool(poolId)
}

func (e *Engine) BootstrapPool(poolId string, size block.Size, n int) error {
	if err := e.requireInit(); err != nil {
		return err
	}
	return e.store.BootstrapPool(poolId, size, n)
}
