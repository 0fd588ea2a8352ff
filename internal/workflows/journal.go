package workflows

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/backup"
	"github.com/PolarWolf314/diario/internal/biometric"
	"github.com/PolarWolf314/diario/internal/configs"
	"github.com/PolarWolf314/diario/internal/dropbox"
	kerrors "github.com/PolarWolf314/diario/internal/errors"
	"github.com/PolarWolf314/diario/internal/kv"
	logger "github.com/PolarWolf314/diario/internal/logging"
	"github.com/PolarWolf314/diario/internal/records"
	"github.com/PolarWolf314/diario/internal/secrets"
	"github.com/PolarWolf314/diario/internal/tokens"
)

// Options configures Open.
type Options struct {
	// Settings locates the databases and audit log.
	Settings *configs.Settings

	// Config supplies security, WebAuthn and Dropbox settings. If nil, the
	// defaults are used.
	Config *configs.Config

	Logger logger.Logger

	// Now is the clock. If nil, time.Now is used.
	Now func() time.Time

	// Dropbox overrides endpoints and the HTTP client. AppKey, RedirectURI
	// and Folder come from Config when left empty.
	Dropbox dropbox.Config

	// Authenticator overrides the one selected by webauthn.authenticator.
	Authenticator biometric.Authenticator

	// KeyIterations sets the PBKDF2 work factor for new keys. Zero uses the
	// key manager default.
	KeyIterations int
}

// Journal is an opened diario data directory.
type Journal struct {
	settings *configs.Settings
	config   *configs.Config
	log      logger.Logger
	now      func() time.Time

	db         *kv.DB
	store      *records.Store
	keys       *secrets.KeyManager
	tokens     *tokens.Vault
	gate       *biometric.Gate
	reconciler *backup.Reconciler
	trail      *audit.Trail

	closing atomic.Bool
}

// Open opens the state and journal databases under opts.Settings and wires
// every component. The journal starts locked.
func Open(opts Options) (*Journal, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = configs.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger

	if err := opts.Settings.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := kv.OpenBolt(opts.Settings.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}
	store, err := records.Open(opts.Settings.JournalDBPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", kerrors.ErrStorageUnavailable, err)
	}

	durable := db.Bucket(kv.BucketSettings)

	keys := secrets.NewKeyManager(durable, secrets.Options{
		IdleTimeout:       cfg.Security.IdleTimeout.Std(),
		IdleCheckInterval: cfg.Security.IdleCheckInterval.Std(),
		MinPasswordLength: cfg.Security.MinPasswordLength,
		Iterations:        opts.KeyIterations,
		Now:               now,
		Logger:            log,
	})

	dbxCfg := opts.Dropbox
	if dbxCfg.AppKey == "" {
		dbxCfg.AppKey = cfg.Dropbox.AppKey
	}
	if dbxCfg.RedirectURI == "" {
		dbxCfg.RedirectURI = cfg.Dropbox.RedirectURI
	}
	if dbxCfg.Folder == "" {
		dbxCfg.Folder = cfg.Dropbox.Folder
	}
	if dbxCfg.Now == nil {
		dbxCfg.Now = now
	}
	client := dropbox.NewClient(dbxCfg, log)

	vault := tokens.New(tokens.Options{
		Durable:   durable,
		Transient: db.Bucket(kv.BucketTransient),
		Keys:      keys,
		Client:    client,
		Logger:    log,
		Now:       now,
	})

	auth := opts.Authenticator
	if auth == nil {
		auth = authenticatorFor(cfg, db, opts.Settings.StateDBPath, log)
	}
	gate := biometric.NewGate(durable, auth, biometric.Config{
		RPID:   cfg.WebAuthn.RPID,
		RPName: cfg.WebAuthn.RPName,
		Origin: cfg.WebAuthn.Origin,
		Now:    now,
		Logger: log,
	})

	j := &Journal{
		settings:   opts.Settings,
		config:     cfg,
		log:        log,
		now:        now,
		db:         db,
		store:      store,
		keys:       keys,
		tokens:     vault,
		gate:       gate,
		reconciler: backup.NewReconciler(keys, store, log),
		trail: &audit.Trail{
			Path:     opts.Settings.AuditLogPath,
			Device:   cfg.Device.Name,
			DeviceID: cfg.Device.ID,
			Now:      now,
		},
	}
	keys.OnLock(func() {
		if !j.closing.Load() {
			j.trail.Op(audit.OpLock)
		}
	})

	log.Debugf("Opened journal at %s", opts.Settings.DataPath)
	return j, nil
}

func authenticatorFor(cfg *configs.Config, db *kv.DB, statePath string, log logger.Logger) biometric.Authenticator {
	switch cfg.WebAuthn.Authenticator {
	case configs.AuthenticatorSoftware:
		log.Warnf("webauthn.authenticator is %q: the biometric vault can be opened by anyone who can read %s", configs.AuthenticatorSoftware, statePath)
		return biometric.NewSoftwareAuthenticator(db.Bucket(kv.BucketAuthn), cfg.WebAuthn.Origin)
	default:
		return biometric.Unsupported{}
	}
}

// Close locks the journal and closes both databases.
func (j *Journal) Close() error {
	j.closing.Store(true)
	j.keys.Lock()
	return errors.Join(j.store.Close(), j.db.Close())
}

// Keys returns the key manager, for callers that register lock hooks or
// record activity.
func (j *Journal) Keys() *secrets.KeyManager {
	return j.keys
}

// Config returns the configuration the journal was opened with.
func (j *Journal) Config() *configs.Config {
	return j.config
}

// Settings returns the locations the journal was opened with.
func (j *Journal) Settings() *configs.Settings {
	return j.settings
}
