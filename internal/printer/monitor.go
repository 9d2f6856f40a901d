package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ScanFunc lists currently attached devices
type ScanFunc func(ctx context.Context) ([]Device, error)

// Monitor polls for attached devices and reports additions and removals
type Monitor struct {
	scan     ScanFunc
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	previous  map[string]Device
	onAdded   func(Device)
	onRemoved func(Device)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor polling scan every interval
func NewMonitor(scan ScanFunc, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		scan:     scan,
		interval: interval,
		logger:   logger.Named("monitor"),
		previous: make(map[string]Device),
	}
}

// OnAdded sets a callback for newly attached devices
func (m *Monitor) OnAdded(callback func(Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAdded = callback
}

// OnRemoved sets a callback for detached devices
func (m *Monitor) OnRemoved(callback func(Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = callback
}

// Start polls in the background until Stop is called or ctx ends
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop stops polling and waits for the poller to exit
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Check runs one poll and fires callbacks for changes since the previous poll
func (m *Monitor) Check(ctx context.Context) {
	devices, err := m.scan(ctx)
	if err != nil {
		m.logger.Warn("device scan failed", zap.Error(err))
		return
	}

	current := make(map[string]Device, len(devices))
	for _, d := range devices {
		current[d.ID] = d
	}

	m.mu.Lock()
	var added, removed []Device
	for id, d := range current {
		if _, ok := m.previous[id]; !ok {
			added = append(added, d)
		}
	}
	for id, d := range m.previous {
		if _, ok := current[id]; !ok {
			removed = append(removed, d)
		}
	}
	m.previous = current
	onAdded, onRemoved := m.onAdded, m.onRemoved
	m.mu.Unlock()

	for _, d := range added {
		m.logger.Info("printer added", zap.String("device", d.Description))
		if onAdded != nil {
			onAdded(d)
		}
	}
	for _, d := range removed {
		m.logger.Info("printer removed", zap.String("device", d.Description))
		if onRemoved != nil {
			onRemoved(d)
		}
	}
}
