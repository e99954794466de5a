package goToken

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goToken/internal/clock"
	"github.com/MrEthical07/goToken/jwt"
)

// Builder defines a public type used by goToken APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	logger *slog.Logger
	clock  Clock

	auditSink AuditSink

	headersLoader    HeadersLoader
	userClaimsLoader UserClaimsLoader
	identityLoader   IdentityLoader

	built bool
}

// New starts a Builder from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the structured logger. By default nothing is logged.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for iat, nbf, exp and freshness.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithAuditSink sets the destination for audit events. It only takes effect
// when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHeadersLoader pre-registers the headers loader.
func (b *Builder) WithHeadersLoader(fn HeadersLoader) *Builder {
	b.headersLoader = fn
	return b
}

// WithUserClaimsLoader pre-registers the user claims loader.
func (b *Builder) WithUserClaimsLoader(fn UserClaimsLoader) *Builder {
	b.userClaimsLoader = fn
	return b
}

// WithIdentityLoader pre-registers the identity loader.
func (b *Builder) WithIdentityLoader(fn IdentityLoader) *Builder {
	b.identityLoader = fn
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the issue and decode latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses the keys and returns the Engine.
// A Builder can be used only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clk := b.clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	manager, err := jwt.NewManager(jwt.Config{
		Algorithm:  cfg.JWT.Algorithm,
		SecretKey:  cloneBytes(cfg.JWT.SecretKey),
		PrivateKey: cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:  cloneBytes(cfg.JWT.PublicKey),
		KeyID:      cfg.JWT.KeyID,
		HeaderType: cfg.JWT.HeaderType,
		Leeway:     cfg.JWT.Leeway,
		Now:        clk.Now,
	})
	if err != nil {
		return nil, err
	}

	hooks := NewHookRegistry()
	hooks.RegisterHeadersLoader(b.headersLoader)
	hooks.RegisterUserClaimsLoader(b.userClaimsLoader)
	hooks.RegisterIdentityLoader(b.identityLoader)

	engine := &Engine{
		config:  cfg,
		manager: manager,
		hooks:   hooks,
		clock:   clk,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	for _, w := range cfg.Lint() {
		logger.Warn("Token configuration warning", slog.String("code", w.Code), slog.String("message", w.Message))
	}

	b.built = true

	return engine, nil
}
