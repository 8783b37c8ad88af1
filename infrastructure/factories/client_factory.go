package factories

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"spconnect/database"
	"spconnect/domain/contracts"
	"spconnect/infrastructure/config"
	"spconnect/infrastructure/repositories"
	"spconnect/infrastructure/session"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
	"spconnect/spauth"
)

// ClientFactory builds authenticated SharePoint clients from the application config.
type ClientFactory struct {
	cfg     *config.AppConfig
	metrics *session.Metrics
	logger  *logging.Logger
}

// NewClientFactory registers the session collectors on reg once; reg may be nil.
func NewClientFactory(cfg *config.AppConfig, reg prometheus.Registerer, logger *logging.Logger) *ClientFactory {
	if logger == nil {
		logger = logging.Default()
	}
	var metrics *session.Metrics
	if reg != nil {
		metrics = session.NewMetrics(reg)
	}
	return &ClientFactory{cfg: cfg, metrics: metrics, logger: logger}
}

// NewSession authenticates and returns a retrying session.
func (f *ClientFactory) NewSession(ctx context.Context) (*session.RobustSession, error) {
	connect, err := spauth.NewConnector(f.cfg.SharePoint)
	if err != nil {
		return nil, fmt.Errorf("sharepoint credentials: %w", err)
	}

	opts := []session.Option{session.WithLogger(f.logger)}
	if f.metrics != nil {
		opts = append(opts, session.WithMetrics(f.metrics))
	}
	return session.New(ctx, f.cfg.Session, connect, opts...)
}

// NewClient returns a client bound to the configured site. Close the session when done.
func (f *ClientFactory) NewClient(ctx context.Context) (spclient.SharePointClient, *session.RobustSession, error) {
	sess, err := f.NewSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	client := spclient.NewSharePointClient(sess, spclient.SiteFromAuth(f.cfg.SharePoint), spclient.WithLogger(f.logger))
	return client, sess, nil
}

// NewTriggerStateRepository returns the SQLite backed trigger state store.
func NewTriggerStateRepository(db *database.Database) contracts.TriggerStateRepository {
	return repositories.NewSqliteTriggerStateRepository(db)
}
