package noise

import (
	"context"
	"io"
	"sync"

	"github.com/marusama/semaphore/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ChannelReadCallback receives the plaintext of each frame read from a
// monitored channel, in order.
type ChannelReadCallback func(data []byte)

// A SecureChannelMonitor reads many SecureChannels at once and hands their
// plaintext to callbacks. Each channel gets one watcher goroutine that blocks
// on the connection; decrypting and running the callback happen under a
// semaphore of MonitorConfig.Workers permits, so a slow callback holds up
// only its own channel and at most one permit.
//
// A channel added to a monitor must not be Read directly.
type SecureChannelMonitor struct {
	cfg    MonitorConfig
	sem    semaphore.Semaphore
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	channels map[*SecureChannel]ChannelReadCallback
	closed   bool
}

// NewSecureChannelMonitor returns a running monitor with no channels.
func NewSecureChannelMonitor(cfg MonitorConfig) *SecureChannelMonitor {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &SecureChannelMonitor{
		cfg:      cfg,
		sem:      semaphore.New(cfg.Workers),
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[*SecureChannel]ChannelReadCallback),
	}
}

// AddChannel starts watching ch. callback runs for every frame ch receives
// until ch fails or is closed, at which point ch is removed and closed.
func (m *SecureChannelMonitor) AddChannel(ch *SecureChannel, callback ChannelReadCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.WithStack(ErrMonitorClosed)
	}
	if !ch.IsOpen() {
		return &TransportError{Op: "add channel", Err: ErrChannelClosed}
	}
	if _, ok := m.channels[ch]; ok {
		return protocolError("add channel", "channel already monitored")
	}
	m.channels[ch] = callback
	m.wg.Add(1)
	go m.watch(ch, callback)
	return nil
}

// Channels returns the number of channels being watched.
func (m *SecureChannelMonitor) Channels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

func (m *SecureChannelMonitor) watch(ch *SecureChannel, callback ChannelReadCallback) {
	defer m.wg.Done()
	defer m.remove(ch)

	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		n, err := ch.conn.Read(buf)
		if n > 0 {
			if aerr := m.sem.Acquire(m.ctx, 1); aerr != nil {
				return
			}
			frames, derr := ch.absorb(buf[:n])
			for _, f := range frames {
				if callback != nil {
					callback(f)
				}
			}
			m.sem.Release(1)
			if derr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF && ch.IsOpen() {
				log.WithFields(logrus.Fields{
					"function": "SecureChannelMonitor.watch",
					"error":    errors.Wrap(err, "read channel"),
				}).Debug("Dropping channel after read error")
			}
			return
		}
	}
}

func (m *SecureChannelMonitor) remove(ch *SecureChannel) {
	m.mu.Lock()
	delete(m.channels, ch)
	m.mu.Unlock()
	ch.Close()
}

// Close stops every watcher, closes every channel and waits for the watchers
// to exit.
func (m *SecureChannelMonitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancel()
	channels := make([]*SecureChannel, 0, len(m.channels))
	for ch := range m.channels {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	m.wg.Wait()
	return nil
}
