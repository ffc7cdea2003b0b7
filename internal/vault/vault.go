// internal/vault/vault.go
//
// Vault client wrapper for the registrar.
//
// Context
// -------
//   - Provides a concurrency-safe client around the HashiCorp Vault Go SDK.
//   - Adds background token renewal, KV-v2 helpers, and a per-key TTL cache
//     whose misses are collapsed with singleflight, so a key rotation under
//     load costs one Vault round trip, not one per request.
//   - Serves the API keyring (`vault.keys_path`) and the database password
//     (`vault.password_path`).
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, cfg.Vault)            // during boot.
//  2. key, err := cli.GetKV(ctx, path, "create")        // anywhere in the app.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR   – scheme and host of the Vault server.
//   - VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/swregistry/internal/config"
)

// DefaultTTL applies when vault.ttl is zero.
const DefaultTTL = 5 * time.Minute

//
// SECTION 1.  Public façade
//

// kvReader reads one KV-v2 secret.  *vault.KVv2 satisfies it through
// apiReader; tests substitute a map.
type kvReader interface {
	Read(ctx context.Context, secretPath string) (map[string]any, error)
}

// Client is safe for concurrent use.  Create once at startup.
type Client struct {
	api    *vault.Client
	reader kvReader
	ttl    time.Duration
	now    func() time.Time

	group   singleflight.Group
	cacheMu sync.RWMutex
	cache   map[string]cached // path → secret data + expiry
}

type cached struct {
	data map[string]any
	exp  time.Time
}

// New constructs a Vault client and starts a background token-renewal loop
// that ends with ctx.
func New(ctx context.Context, cfg config.Vault) (*Client, error) {
	vcfg := vault.DefaultConfig()
	if err := vcfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(apiReader{apiCli}, cfg.TTL)
	c.api = apiCli
	go c.renewLoop(ctx)
	return c, nil
}

func newClient(r kvReader, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		reader: r,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cached),
	}
}

// GetKV fetches a single string key from a KV-v2 secret, served from the
// TTL cache when fresh.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	data, err := c.secret(ctx, secretPath)
	if err != nil {
		return "", err
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}
	return sval, nil
}

// Invalidate drops the cached copy of secretPath.
func (c *Client) Invalidate(secretPath string) {
	c.cacheMu.Lock()
	delete(c.cache, secretPath)
	c.cacheMu.Unlock()
}

func (c *Client) secret(ctx context.Context, secretPath string) (map[string]any, error) {
	c.cacheMu.RLock()
	cv, ok := c.cache[secretPath]
	c.cacheMu.RUnlock()
	if ok && c.now().Before(cv.exp) {
		return cv.data, nil
	}

	v, err, _ := c.group.Do(secretPath, func() (any, error) {
		data, err := c.reader.Read(ctx, secretPath)
		if err != nil {
			return nil, fmt.Errorf("vault get %s: %w", secretPath, err)
		}
		c.cacheMu.Lock()
		c.cache[secretPath] = cached{data: data, exp: c.now().Add(c.ttl)}
		c.cacheMu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// apiReader reads through the SDK's KVv2 helper.
type apiReader struct{ api *vault.Client }

func (a apiReader) Read(ctx context.Context, secretPath string) (map[string]any, error) {
	mount, rel := splitMount(secretPath)
	sec, err := a.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	log := zap.S().Named("vault")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warnw("token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Infow("token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			log.Warnw("lifetime watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, watcher, log)
	}
}

// watch runs one watcher until it stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.SugaredLogger) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				log.Warnw("token renewal stopped", "err", err)
			}
			backoff(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Debugw("token renewed", "ttl_seconds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
