// Package nameservice reads a folder of key files and creates a name service
// lookup for public keys. The name of a key is its file name without the
// extension.
package nameservice

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Key file extensions.
const (
	PrivateKeyExt = ".ecdsa"
	PublicKeyExt  = ".pub"
)

// NameService maintains a map of public keys for name lookup.
type NameService struct {
	names map[string]string
	keys  map[string]signature.PublicKey
}

// New constructs a name service with the keys found under the root folder.
// Both private key files and public key files are read.
func New(root string) (*NameService, error) {
	ns := NameService{
		names: make(map[string]string),
		keys:  make(map[string]signature.PublicKey),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() {
			return nil
		}

		var pk signature.PublicKey
		ext := filepath.Ext(fileName)

		switch ext {
		case PrivateKeyExt:
			privateKey, err := signature.LoadPrivateKey(fileName)
			if err != nil {
				return fmt.Errorf("%s: %w", fileName, err)
			}
			pk = signature.ToPublicKey(privateKey.PublicKey)

		case PublicKeyExt:
			pk, err = signature.LoadPublicKey(fileName)
			if err != nil {
				return fmt.Errorf("%s: %w", fileName, err)
			}

		default:
			return nil
		}

		name := strings.TrimSuffix(filepath.Base(fileName), ext)
		ns.names[pk.Hex()] = name
		ns.keys[name] = pk

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified public key. The hex form of the
// key is returned when the key is unknown.
func (ns *NameService) Lookup(pk signature.PublicKey) string {
	name, exists := ns.names[pk.Hex()]
	if !exists {
		return pk.Hex()
	}
	return name
}

// PublicKey returns the public key registered under the name.
func (ns *NameService) PublicKey(name string) (signature.PublicKey, bool) {
	pk, exists := ns.keys[name]
	return pk, exists
}

// Names returns the registered names in sorted order.
func (ns *NameService) Names() []string {
	names := make([]string, 0, len(ns.keys))
	for name := range ns.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Copy returns a copy of the map of public key hex to name.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.names))
	for pk, name := range ns.names {
		cpy[pk] = name
	}
	return cpy
}
