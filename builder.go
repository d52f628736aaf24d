package authclient

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ledgerdocs/authclient/snapshot"
	"github.com/ledgerdocs/authclient/transport"
)

// Builder assembles a [Manager]. Obtain one with [New], configure it with
// the With* methods, and finish with [Builder.Build]. A Builder is
// single-use.
type Builder struct {
	config     Config
	httpClient *http.Client
	store      snapshot.Store
	logger     *zap.Logger
	sink       EventSink

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the remote API location without replacing the rest of
// the configuration.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithHTTPClient overrides the transport's http.Client. The caller takes
// over cookie handling and timeouts.
func (b *Builder) WithHTTPClient(h *http.Client) *Builder {
	b.httpClient = h
	return b
}

// WithSnapshotStore installs the persistence backend for the session
// restart cache. Required.
func (b *Builder) WithSnapshotStore(store snapshot.Store) *Builder {
	b.store = store
	return b
}

// WithLogger installs a structured logger. Defaults to zap.NewNop().
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink installs the session event receiver and enables event
// dispatch.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.config.Events.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process operation counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and constructs the Manager. The
// Manager holds no session until [Manager.Start] or a login operation runs.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, ErrSnapshotStoreRequired
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:  b.config,
		store:   b.store,
		log:     logger,
		metrics: NewMetrics(b.config.Metrics),
		events:  newEventDispatcher(b.config.Events, b.sink),
	}

	opts := []transport.Option{
		transport.WithTokenSource(m.currentToken),
	}
	if b.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(b.httpClient))
	}

	api, err := transport.NewClient(transport.Config{
		BaseURL: b.config.API.BaseURL,
		Timeout: b.config.API.RequestTimeout,
	}, opts...)
	if err != nil {
		m.events.Close()
		return nil, err
	}
	m.api = api

	b.built = true

	return m, nil
}
