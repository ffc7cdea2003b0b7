// internal/apikey/keyring.go
//
// API key classes and where their values come from.
//
// Context
// -------
// The registrar issues three keys.  Each endpoint accepts exactly one:
//
//	create                               → create key
//	activate, deactivate, refresh, revise → update key
//	verify                               → read key
//
// Keys are read either from configuration (`registrar.keys.*`) or, when
// `vault.enabled` is set, from the KV-v2 secret at `vault.keys_path`
// (fields "create", "update", "read").
package apikey

import (
	"context"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/registry"
)

// Class names a key.
type Class string

const (
	ClassCreate Class = "create"
	ClassUpdate Class = "update"
	ClassRead   Class = "read"
)

// ClassFor maps an API action to the key class it requires.
func ClassFor(a registry.Action) Class {
	switch a {
	case registry.ActionCreate:
		return ClassCreate
	case registry.ActionVerify:
		return ClassRead
	default:
		return ClassUpdate
	}
}

// Keyring returns the configured key for a class.  An empty key with a nil
// error means the class is unset and every request is refused.
type Keyring interface {
	Key(ctx context.Context, c Class) (string, error)
}

// Static serves keys from configuration, re-read on every call so a
// config reload takes effect immediately.
type Static struct {
	Get func() *config.Config
}

func (s Static) Key(_ context.Context, c Class) (string, error) {
	k := s.Get().Registrar.Keys
	switch c {
	case ClassCreate:
		return k.Create, nil
	case ClassUpdate:
		return k.Update, nil
	case ClassRead:
		return k.Read, nil
	}
	return "", nil
}

// SecretReader is the slice of the Vault client the keyring needs.
type SecretReader interface {
	GetKV(ctx context.Context, secretPath, key string) (string, error)
}

// Vault serves keys from a KV-v2 secret.
type Vault struct {
	Client SecretReader
	Path   string
}

func (v Vault) Key(ctx context.Context, c Class) (string, error) {
	return v.Client.GetKV(ctx, v.Path, string(c))
}
