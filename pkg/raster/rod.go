package raster

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/matzehuels/chartforge/pkg/errors"
)

// readyJS resolves once a chartforge document reports a finished render.
const readyJS = `() => window.__chartReady === true`

// RodLauncher starts a fresh headless Chrome per session.
type RodLauncher struct {
	// Bin is the browser executable. Empty lets rod find or download one.
	Bin string
	// NoSandbox is needed when running as root in containers.
	NoSandbox bool
}

// Launch starts a browser, opens a blank page and fixes its viewport at
// exactly vp with a device scale factor of 1.
func (l RodLauncher) Launch(ctx context.Context, vp Viewport) (Session, error) {
	ln := launcher.New().Context(ctx).Headless(true).Set("disable-gpu").Set("hide-scrollbars")
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}
	if l.NoSandbox {
		ln = ln.NoSandbox(true)
	}
	controlURL, err := ln.Launch()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConversionCrash, err, "launch chrome")
	}

	s := &rodSession{launcher: ln, vp: vp}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.Close()
		return nil, errors.Wrap(errors.ErrCodeConversionCrash, err, "connect to chrome")
	}
	s.browser = browser

	s.page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, errors.Wrap(errors.ErrCodeConversionCrash, err, "create page")
	}
	err = proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}.Call(s.page)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(errors.ErrCodeConversionCrash, err, "set viewport")
	}
	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	vp       Viewport
	once     sync.Once
}

func (s *rodSession) Load(ctx context.Context, url string, opts LoadOptions) error {
	page := s.page.Context(ctx)
	if err := page.Timeout(opts.Timeout).Navigate(url); err != nil {
		return err
	}
	if err := page.Timeout(opts.Timeout).WaitLoad(); err != nil {
		return err
	}
	if opts.WaitReady {
		return page.Timeout(opts.ReadyTimeout).Wait(rod.Eval(readyJS))
	}

	timer := time.NewTimer(opts.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *rodSession) Capture(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      0,
			Y:      0,
			Width:  float64(s.vp.Width),
			Height: float64(s.vp.Height),
			Scale:  1,
		},
	})
}

func (s *rodSession) Close() error {
	var err error
	s.once.Do(func() {
		if s.browser != nil {
			err = s.browser.Close()
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return err
}
