package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/btpcm/ioengine/internal/pcmio"
)

// metricsEventSink is the engine's default pcmio.EventSink: it logs each
// event with the device's identity, giving a real deployment a single
// place to later wire counters without touching the core.
type metricsEventSink struct {
	log *zap.SugaredLogger
}

func (s metricsEventSink) fields(dev *pcmio.PcmDevice) []interface{} {
	node := dev.ActiveNode()
	var stableID uint32
	if node != nil {
		stableID = node.StableID
	}
	return []interface{}{
		zap.Uint32("stable_id", stableID),
		zap.String("kind", dev.Kind.String()),
		zap.String("direction", dev.Direction.String()),
	}
}

func (s metricsEventSink) Overrun(dev *pcmio.PcmDevice) {
	s.log.Infow("pcm overrun", s.fields(dev)...)
}

func (s metricsEventSink) ScheduleMiss(dev *pcmio.PcmDevice, by time.Duration, severe bool) {
	fields := append(s.fields(dev), zap.Duration("miss", by), zap.Bool("severe", severe))
	s.log.Infow("pcm schedule miss", fields...)
}

func (s metricsEventSink) SuspendScheduled(dev *pcmio.PcmDevice, after time.Duration) {
	fields := append(s.fields(dev), zap.Duration("after", after))
	s.log.Infow("pcm suspend scheduled", fields...)
}

func (s metricsEventSink) SuspendCancelled(dev *pcmio.PcmDevice) {
	s.log.Infow("pcm suspend cancelled", s.fields(dev)...)
}
