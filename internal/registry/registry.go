// Package registry remembers devices the user has authorized, so they can be
// reconnected later without prompting again
package registry

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Device kinds
const (
	KindUSB       = "usb"
	KindBluetooth = "bluetooth"
)

// Registry stores authorized devices keyed by identity
type Registry struct {
	filePath string
	data     map[string]*Device
	mu       sync.RWMutex
	now      func() time.Time
}

// Device is a persisted authorization
type Device struct {
	ID           string    `json:"id"`
	IdentityKey  string    `json:"identity_key"`
	Kind         string    `json:"kind"`
	VendorID     uint16    `json:"vendor_id,omitempty"`
	ProductID    uint16    `json:"product_id,omitempty"`
	Serial       string    `json:"serial,omitempty"`
	Address      string    `json:"address,omitempty"`
	Description  string    `json:"description"`
	Label        string    `json:"label,omitempty"` // user-set name
	AuthorizedAt time.Time `json:"authorized_at"`
}

// DeviceInfo identifies a device at authorization time
type DeviceInfo struct {
	Kind        string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Address     string
	Description string
}

// New opens the registry at filePath. An empty path keeps the registry in memory only.
func New(filePath string) (*Registry, error) {
	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*Device),
		now:      time.Now,
	}

	if filePath == "" {
		return r, nil
	}

	if err := r.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	return r, nil
}

// Authorize records a device and returns its persistent ID.
// Authorizing a known device returns the existing ID.
func (r *Registry) Authorize(info DeviceInfo) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(info)
	if entry, ok := r.data[key]; ok {
		return entry.ID, nil
	}

	entry := &Device{
		ID:           uuid.New().String(),
		IdentityKey:  key,
		Kind:         info.Kind,
		VendorID:     info.VendorID,
		ProductID:    info.ProductID,
		Serial:       info.Serial,
		Address:      info.Address,
		Description:  info.Description,
		AuthorizedAt: r.now(),
	}
	r.data[key] = entry

	if err := r.save(); err != nil {
		return entry.ID, fmt.Errorf("failed to save registry: %w", err)
	}
	return entry.ID, nil
}

// IsAuthorized reports whether the device was authorized before
func (r *Registry) IsAuthorized(info DeviceInfo) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.data[identityKey(info)]
	return ok
}

// Authorized returns the devices of the given kind, oldest authorization first.
// An empty kind returns every device.
func (r *Registry) Authorized(kind string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.data))
	for _, entry := range r.data {
		if kind == "" || entry.Kind == kind {
			out = append(out, *entry)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AuthorizedAt.Equal(out[j].AuthorizedAt) {
			return out[i].IdentityKey < out[j].IdentityKey
		}
		return out[i].AuthorizedAt.Before(out[j].AuthorizedAt)
	})
	return out
}

// Get returns a copy of the device with the given ID, or nil
func (r *Registry) Get(id string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.findByID(id); entry != nil {
		entryCopy := *entry
		return &entryCopy
	}
	return nil
}

// SetLabel sets a user-visible name for a device
func (r *Registry) SetLabel(id, label string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findByID(id)
	if entry == nil {
		return false, nil
	}
	entry.Label = label
	return true, r.save()
}

// Revoke forgets a device
func (r *Registry) Revoke(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.findByID(id)
	if entry == nil {
		return false, nil
	}
	delete(r.data, entry.IdentityKey)
	return true, r.save()
}

func (r *Registry) findByID(id string) *Device {
	for _, entry := range r.data {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

func (r *Registry) save() error {
	if r.filePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(r.filePath, data, 0644)
}

// identityKey derives a stable key from the device's characteristics
func identityKey(info DeviceInfo) string {
	switch info.Kind {
	case KindUSB:
		if info.VendorID != 0 && info.ProductID != 0 {
			if info.Serial != "" {
				return fmt.Sprintf("usb:%04x:%04x:%s", info.VendorID, info.ProductID, info.Serial)
			}
			return fmt.Sprintf("usb:%04x:%04x", info.VendorID, info.ProductID)
		}
	case KindBluetooth:
		if info.Address != "" {
			return fmt.Sprintf("bluetooth:%s", info.Address)
		}
	}

	hash := md5.Sum([]byte(info.Kind + "|" + info.Description))
	return fmt.Sprintf("hash:%x", hash)
}
