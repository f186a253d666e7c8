package actuator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/ayusman/mudra/internal/kinematics"
)

// StepsPerRevolution is the resolution of an STS servo position register.
const StepsPerRevolution = 4096

// FeetechConfig describes a hand wired directly to a Feetech STS bus.
type FeetechConfig struct {
	BaudRate int `toml:"baud_rate"`

	// IDs are the servo IDs in wire order (index, ring, middle, thumb, pinky).
	IDs []int `toml:"ids"`

	// Offset is the raw position that corresponds to 0 degrees.
	Offset int `toml:"offset"`

	Timeout time.Duration `toml:"timeout"`
}

// DefaultFeetechConfig returns servo IDs 1-5 at 1 Mbaud.
func DefaultFeetechConfig() FeetechConfig {
	return FeetechConfig{
		BaudRate: 1_000_000,
		IDs:      []int{1, 2, 3, 4, 5},
		Timeout:  100 * time.Millisecond,
	}
}

// FeetechLink drives the servos directly. The address is the serial port;
// the bus is opened on the first Send and reopened when the port changes.
type FeetechLink struct {
	cfg FeetechConfig

	mu    sync.Mutex
	port  string
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

// NewFeetechLink creates a FeetechLink; zero config fields take defaults.
func NewFeetechLink(cfg FeetechConfig) *FeetechLink {
	def := DefaultFeetechConfig()
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = def.BaudRate
	}
	if len(cfg.IDs) != kinematics.NumFingers {
		cfg.IDs = def.IDs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &FeetechLink{cfg: cfg}
}

func (l *FeetechLink) Send(ctx context.Context, address string, cmd kinematics.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open(ctx, address); err != nil {
		return err
	}

	if err := l.group.SetPositions(ctx, l.positions(cmd)); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

func (l *FeetechLink) open(ctx context.Context, port string) error {
	if l.bus != nil && l.port == port {
		return nil
	}
	l.closeBus()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: l.cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  l.cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("open bus %s: %w", port, err)
	}

	group := feetech.NewServoGroupByIDs(bus, l.cfg.IDs...)
	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return fmt.Errorf("enable torque: %w", err)
	}

	l.bus = bus
	l.group = group
	l.port = port
	return nil
}

// positions converts a command into raw servo positions keyed by ID.
func (l *FeetechLink) positions(cmd kinematics.Command) feetech.PositionMap {
	out := make(feetech.PositionMap, len(cmd))
	for i, deg := range cmd {
		out[l.cfg.IDs[i]] = DegreesToSteps(deg, l.cfg.Offset)
	}
	return out
}

// DegreesToSteps converts an angle into a raw STS position, clamped to the
// register range.
func DegreesToSteps(deg float64, offset int) int {
	raw := offset + int(math.Round(deg*StepsPerRevolution/360))
	return max(0, min(StepsPerRevolution-1, raw))
}

func (l *FeetechLink) closeBus() error {
	if l.bus == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.group.DisableAll(ctx)

	err := l.bus.Close()
	l.bus = nil
	l.group = nil
	l.port = ""
	return err
}

// Close releases torque and closes the serial port.
func (l *FeetechLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeBus()
}
