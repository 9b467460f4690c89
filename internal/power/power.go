// Package power reports the supply state of the kiosk host. Displays that run
// off a UPS HAT expose their charge over I2C; everything else reports unknown.
package power

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"signage/internal/config"
	appLog "signage/internal/log"
)

// ErrUnavailable is returned by readers on hosts without a supported
// controller.
var ErrUnavailable = errors.New("power: reader unavailable")

// DefaultTTL bounds how often the controller is polled.
const DefaultTTL = 30 * time.Second

// Status is the supply state served on /health.
type Status struct {
	// Known is false when no controller answered.
	Known     bool `json:"known"`
	Percent   int  `json:"percent,omitzero"`
	VoltageMv int  `json:"voltage_mv,omitzero"`
}

type Reader interface {
	Read(ctx context.Context) (Status, error)
}

type unavailableReader struct{}

func (unavailableReader) Read(context.Context) (Status, error) {
	return Status{}, ErrUnavailable
}

// i2cReader talks to a PiSugar-style controller:
//   - 0x22 (high), 0x23 (low): voltage in millivolts
//   - 0x2A: charge percentage
type i2cReader struct {
	bus  string
	addr uint16
}

// NewI2CReader returns a reader for the controller at addr on bus ("" picks
// the default bus).
func NewI2CReader(bus string, addr uint16) Reader {
	return &i2cReader{bus: bus, addr: addr}
}

func (r *i2cReader) Read(ctx context.Context) (Status, error) {
	if runtime.GOOS != "linux" {
		return Status{}, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	if _, err := host.Init(); err != nil {
		return Status{}, err
	}

	bus, err := i2creg.Open(r.bus)
	if err != nil {
		return Status{}, err
	}
	defer bus.Close()

	dev := &i2c.Dev{Bus: bus, Addr: r.addr}
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := dev.Tx([]byte{reg}, buf); err != nil {
			return 0, err
		}
		return buf[0], nil
	}

	high, err := readReg(0x22)
	if err != nil {
		return Status{}, err
	}
	low, err := readReg(0x23)
	if err != nil {
		return Status{}, err
	}
	pct, err := readReg(0x2A)
	if err != nil {
		return Status{}, err
	}

	return decode(high, low, pct), nil
}

func decode(high, low, pct byte) Status {
	return Status{
		Known:     true,
		Percent:   min(int(pct), 100),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}
}

// NewReader picks the reader for cfg. Disabled power reporting always
// yields unknown.
func NewReader(cfg config.PowerConfig) Reader {
	if !cfg.Enabled {
		return unavailableReader{}
	}
	return NewI2CReader(cfg.Bus, cfg.Addr)
}

// Monitor caches the last reading for ttl so /health polls never hit the bus
// more than once per period.
type Monitor struct {
	reader Reader
	clock  clockwork.Clock
	ttl    time.Duration

	mu     sync.Mutex
	last   Status
	readAt time.Time
	warned bool
}

func NewMonitor(reader Reader, clock clockwork.Clock, ttl time.Duration) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Monitor{reader: reader, clock: clock, ttl: ttl}
}

// Status returns the cached reading, refreshing it once stale. Read errors
// yield an unknown status.
func (m *Monitor) Status(ctx context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if !m.readAt.IsZero() && now.Sub(m.readAt) < m.ttl {
		return m.last
	}

	st, err := m.reader.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) && !m.warned {
			appLog.Warn("power read failed", "reason", err.Error())
			m.warned = true
		}
		st = Status{}
	} else {
		m.warned = false
	}
	m.last, m.readAt = st, now
	return st
}
