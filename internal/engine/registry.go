// Package engine wires the audio core's injected dependencies — the poll
// facility, the device registry, and the top-level run loop — the way
// controlplane/pkg/yncp assembles the control plane's long-lived
// components around a config and a logger.
package engine

import (
	"sync"

	"github.com/btpcm/ioengine/internal/pcmio"
)

// Registry is the in-process device registry the server's mixing and
// capture pipeline would actually consume. It satisfies pcmio.Registry.
type Registry struct {
	mu      sync.Mutex
	devices map[uint32][]*pcmio.PcmDevice
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[uint32][]*pcmio.PcmDevice)}
}

// Add implements pcmio.Registry.
func (r *Registry) Add(dev *pcmio.PcmDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := dev.ActiveNode().StableID
	r.devices[id] = append(r.devices[id], dev)
}

// Remove implements pcmio.Registry.
func (r *Registry) Remove(dev *pcmio.PcmDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node := dev.ActiveNode()
	if node == nil {
		return
	}
	devs := r.devices[node.StableID]
	for i, d := range devs {
		if d == dev {
			r.devices[node.StableID] = append(devs[:i], devs[i+1:]...)
			break
		}
	}
	if len(r.devices[node.StableID]) == 0 {
		delete(r.devices, node.StableID)
	}
}

// Devices returns every currently registered device for a stable id.
func (r *Registry) Devices(stableID uint32) []*pcmio.PcmDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*pcmio.PcmDevice(nil), r.devices[stableID]...)
}

// All returns every currently registered device.
func (r *Registry) All() []*pcmio.PcmDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*pcmio.PcmDevice
	for _, devs := range r.devices {
		all = append(all, devs...)
	}
	return all
}
