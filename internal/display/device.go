package display

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/raster"
)

func init() {
	Register("device", newDevice)
}

// Input event codes from the Linux input subsystem.
const (
	evKey            = 0x01
	evAbs            = 0x03
	btnTouch         = 0x14a
	absX             = 0x00
	absMtPositionX   = 0x35
	inputTimevalSize = 2 * bits.UintSize / 8
	inputEventSize   = inputTimevalSize + 8
)

// deviceBackend drives an e-ink panel through its raw framebuffer and
// reads page taps from the touch input device. The panel is repainted
// whole on every Present; partial refresh is left to the display
// driver.
//
// Tapping the left third of the screen pages backwards, anywhere else
// pages forward.
type deviceBackend struct {
	fb     *os.File
	width  int
	height int

	events chan InputEvent
	stop   chan struct{}
	closed bool

	frame []byte
}

func newDevice(cfg config.Display) (Backend, error) {
	fb, err := os.OpenFile(cfg.Framebuffer, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("display: open framebuffer: %w", err)
	}

	b := &deviceBackend{
		fb:     fb,
		width:  cfg.Width,
		height: cfg.Height,
		events: make(chan InputEvent, 16),
		stop:   make(chan struct{}),
		frame:  make([]byte, cfg.Width*cfg.Height*2),
	}

	touch, err := os.Open(cfg.Input)
	if err != nil {
		// A panel without touch input still displays pages; captures
		// keep arriving over HTTP.
		logging.Logger().Warn("touch input unavailable", "path", cfg.Input, "error", err)
	} else {
		go b.readTouch(touch)
	}

	logging.Logger().Info("device backend ready",
		"framebuffer", cfg.Framebuffer, "width", cfg.Width, "height", cfg.Height)
	return b, nil
}

func (b *deviceBackend) Name() string { return "device" }

func (b *deviceBackend) Geometry() (int, int) { return b.width, b.height }

func (b *deviceBackend) Depth() int { return 1 }

// Present writes the surface to the framebuffer as RGB565 rows.
func (b *deviceBackend) Present(s *raster.Surface) error {
	if b.closed {
		return ErrClosed
	}
	if s.W != b.width || s.H != b.height {
		return fmt.Errorf("display: surface %dx%d does not match panel %dx%d", s.W, s.H, b.width, b.height)
	}
	for y := 0; y < s.H; y++ {
		row := b.frame[y*b.width*2:]
		for x := 0; x < s.W; x++ {
			g := uint16(s.GrayAt(x, y))
			// Gray replicated into the RGB565 channels.
			px := (g>>3)<<11 | (g>>2)<<5 | g>>3
			binary.LittleEndian.PutUint16(row[x*2:], px)
		}
	}
	// One write for the whole frame so a failure cannot leave the panel
	// half repainted.
	if _, err := b.fb.WriteAt(b.frame, 0); err != nil {
		return fmt.Errorf("display: write framebuffer: %w", err)
	}
	return nil
}

// readTouch turns raw evdev events into page turns. It tracks the last
// reported X position and decides the page direction when the touch
// lifts.
func (b *deviceBackend) readTouch(f *os.File) {
	defer f.Close()

	buf := make([]byte, inputEventSize)
	lastX := -1
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			logging.Logger().Warn("touch input closed", "error", err)
			return
		}
		typ := binary.LittleEndian.Uint16(buf[inputTimevalSize:])
		code := binary.LittleEndian.Uint16(buf[inputTimevalSize+2:])
		value := int32(binary.LittleEndian.Uint32(buf[inputTimevalSize+4:]))

		switch {
		case typ == evAbs && (code == absX || code == absMtPositionX):
			lastX = int(value)
		case typ == evKey && code == btnTouch && value == 0:
			if lastX < 0 {
				continue
			}
			ev := NextPage
			if lastX < b.width/3 {
				ev = PrevPage
			}
			select {
			case b.events <- ev:
			default:
			}
			lastX = -1
		}
	}
}

func (b *deviceBackend) PollInput() (InputEvent, error) {
	if b.closed {
		return None, ErrClosed
	}
	select {
	case ev := <-b.events:
		return ev, nil
	default:
		return None, nil
	}
}

func (b *deviceBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.stop)
	return b.fb.Close()
}
