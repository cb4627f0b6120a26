package pcmio

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/btpcm/ioengine/internal/iopoll"
	"github.com/btpcm/ioengine/internal/timeops"
)

// Registry is the device registry external dependency: the factory
// attaches newly constructed devices to it and detaches them on destroy.
type Registry interface {
	Add(dev *PcmDevice)
	Remove(dev *PcmDevice)
}

// stableID derives a 32-bit device identity from the peer's MAC-style
// address string using a fast non-cryptographic hash, so the id is stable
// across reconnections without resorting to pointer arithmetic against a
// global table.
func stableID(addr string) uint32 {
	h := xxhash.Sum64String(addr)
	return uint32(h ^ (h >> 32))
}

// Deps bundles the dependencies every constructed device needs: the
// injected poll facility, timer wheel, clock, event sink, logger, and
// device registry.
type Deps struct {
	Poller   iopoll.Poller
	Timers   iopoll.Timers
	Clock    timeops.Clock
	Events   EventSink
	Log      *zap.SugaredLogger
	Registry Registry
}

// supportedFormats snapshots a transport's FillFormat response, freed on
// Destroy.
type supportedFormats struct {
	rates, formats, channelCounts []int
}

// CreateA2DP constructs an A2DP output device bound to transport,
// attaches a node carrying volume 100, populates the supported-format
// tables, and registers the device with the deps' Registry.
func CreateA2DP(transport A2DPTransport, rate, bits, channelMode int, deps Deps) (*PcmDevice, error) {
	dev := newDevice(KindA2DP, DirOutput, deps.Poller, deps.Timers, deps.Clock, deps.Events, deps.Log.With(zap.String("peer", transport.DisplayName()), zap.String("transport", "a2dp")))
	dev.a2dpTransport = transport

	rates, formats, channelCounts, err := transport.FillFormat(rate, bits, channelMode)
	if err != nil {
		return nil, fmt.Errorf("create a2dp device: fill_format: %w: %v", ErrTransport, err)
	}
	dev.supported = &supportedFormats{rates: rates, formats: formats, channelCounts: channelCounts}

	dev.activeNode = &Node{
		StableID:    stableID(transport.Addr()),
		Volume:      100,
		Type:        NodeTypeBluetooth,
		Flags:       NodeFlagFloss | NodeFlagA2DP,
		PluggedTime: time.Now(),
	}

	if deps.Registry != nil {
		deps.Registry.Add(dev)
	}
	return dev, nil
}

// CreateHFP constructs the paired input and output devices for an HFP
// transport. Both share the same transport handle; the transport's
// InputIodev/OutputIodev accessors must return the two devices returned
// here once the caller has stored them (typically by assigning them back
// onto the transport implementation immediately after this call returns).
func CreateHFP(transport HFPTransport, deps Deps) (input, output *PcmDevice, err error) {
	rates, formats, channelCounts, err := transport.FillFormat()
	if err != nil {
		return nil, nil, fmt.Errorf("create hfp devices: fill_format: %w: %v", ErrTransport, err)
	}
	shared := &supportedFormats{rates: rates, formats: formats, channelCounts: channelCounts}

	base := deps.Log.With(zap.String("peer", transport.DisplayName()), zap.String("transport", "hfp"))
	id := stableID(transport.Addr())

	input = newDevice(KindHFP, DirInput, deps.Poller, deps.Timers, deps.Clock, deps.Events, base.With(zap.String("direction", "input")))
	input.hfpTransport = transport
	input.supported = shared
	input.activeNode = &Node{
		StableID:    id,
		Volume:      100,
		Type:        NodeTypeBluetoothNBMic,
		Flags:       NodeFlagFloss | NodeFlagHFP,
		PluggedTime: time.Now(),
	}

	output = newDevice(KindHFP, DirOutput, deps.Poller, deps.Timers, deps.Clock, deps.Events, base.With(zap.String("direction", "output")))
	output.hfpTransport = transport
	output.supported = shared
	output.activeNode = &Node{
		StableID:    id,
		Volume:      100,
		Type:        NodeTypeBluetooth,
		Flags:       NodeFlagFloss | NodeFlagHFP,
		PluggedTime: time.Now(),
	}

	if deps.Registry != nil {
		deps.Registry.Add(input)
		deps.Registry.Add(output)
	}
	return input, output, nil
}

// Destroy closes the device if it has not already been closed, removes
// it from the registry, and releases its node and supported-format
// tables.
func Destroy(dev *PcmDevice, registry Registry) error {
	var closeErr error
	if dev.state != StateClosed {
		closeErr = dev.Close()
	}
	if registry != nil {
		registry.Remove(dev)
	}
	dev.activeNode = nil
	dev.supported = nil
	return closeErr
}
