package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/andrewjensen/skelly/internal/config"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/raster"
)

func init() {
	Register("window", newWindow)
}

// windowBackend shows pages in an X11 window. Arrow keys page through
// the document; q or Escape quits.
type windowBackend struct {
	x      *xgbutil.XUtil
	win    *xwindow.Window
	img    *xgraphics.Image
	width  int
	height int

	// events buffers key presses translated on the X event loop
	// goroutine until the controller polls them.
	events chan InputEvent
	closed bool
}

func newWindow(cfg config.Display) (Backend, error) {
	x, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("display: connect to X server: %w", err)
	}
	keybind.Initialize(x)

	win, err := xwindow.Generate(x)
	if err != nil {
		xevent.Quit(x)
		return nil, fmt.Errorf("display: allocate window: %w", err)
	}
	if err := win.CreateChecked(x.RootWin(), 0, 0, cfg.Width, cfg.Height,
		xproto.CwBackPixel, 0xffffff); err != nil {
		xevent.Quit(x)
		return nil, fmt.Errorf("display: create window: %w", err)
	}
	if err := win.Listen(xproto.EventMaskKeyPress); err != nil {
		win.Destroy()
		xevent.Quit(x)
		return nil, fmt.Errorf("display: select input: %w", err)
	}

	img := xgraphics.New(x, image.Rect(0, 0, cfg.Width, cfg.Height))
	if err := img.XSurfaceSet(win.Id); err != nil {
		win.Destroy()
		xevent.Quit(x)
		return nil, fmt.Errorf("display: attach surface: %w", err)
	}
	win.Map()

	b := &windowBackend{
		x:      x,
		win:    win,
		img:    img,
		width:  cfg.Width,
		height: cfg.Height,
		events: make(chan InputEvent, 16),
	}

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, e xevent.KeyPressEvent) {
		b.queue(translateKey(keybind.LookupString(xu, e.State, e.Detail)))
	}).Connect(x, win.Id)

	go xevent.Main(x)
	logging.Logger().Info("window backend ready", "width", cfg.Width, "height", cfg.Height)
	return b, nil
}

// queue drops events when the buffer is full rather than blocking the
// X event loop.
func (b *windowBackend) queue(ev InputEvent) {
	if ev.Kind == InputNone {
		return
	}
	select {
	case b.events <- ev:
	default:
	}
}

func translateKey(key string) InputEvent {
	switch key {
	case "Right", "Down", "Next", "space":
		return NextPage
	case "Left", "Up", "Prior", "BackSpace":
		return PrevPage
	case "q", "Escape":
		return Custom(ActionQuit)
	}
	return None
}

func (b *windowBackend) Name() string { return "window" }

func (b *windowBackend) Geometry() (int, int) { return b.width, b.height }

func (b *windowBackend) Depth() int { return 1 }

func (b *windowBackend) Present(s *raster.Surface) error {
	if b.closed {
		return ErrClosed
	}
	if s.W != b.width || s.H != b.height {
		return fmt.Errorf("display: surface %dx%d does not match window %dx%d", s.W, s.H, b.width, b.height)
	}
	for y := 0; y < s.H; y++ {
		for x := 0; x < s.W; x++ {
			b.img.Set(x, y, color.Gray{Y: s.GrayAt(x, y)})
		}
	}
	b.img.XDraw()
	b.img.XPaint(b.win.Id)
	return nil
}

func (b *windowBackend) PollInput() (InputEvent, error) {
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

func (b *windowBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	xevent.Quit(b.x)
	b.win.Destroy()
	return nil
}
