package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	fyneapp "fyne.io/fyne/v2/app"

	"github.com/shashankmahajan99/interview-coder/src/bridge"
	"github.com/shashankmahajan99/interview-coder/src/clipboard"
	"github.com/shashankmahajan99/interview-coder/src/config"
	"github.com/shashankmahajan99/interview-coder/src/coordinator"
	"github.com/shashankmahajan99/interview-coder/src/hotkey"
	"github.com/shashankmahajan99/interview-coder/src/llm"
	"github.com/shashankmahajan99/interview-coder/src/logutil"
	"github.com/shashankmahajan99/interview-coder/src/screenshot"
	"github.com/shashankmahajan99/interview-coder/src/state"
	"github.com/shashankmahajan99/interview-coder/src/store"
	"github.com/shashankmahajan99/interview-coder/src/tray"
	"github.com/shashankmahajan99/interview-coder/src/window"
)

// enableDPIAwareness sets per-monitor DPI awareness on Windows so geometry
// math works in physical pixels. Must run before any window exists.
func enableDPIAwareness() {
	if runtime.GOOS != "windows" {
		return
	}
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		_, _, _ = setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		return
	}
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		_, _, _ = setProcessDPIAware.Call()
	}
}

func main() {
	enableDPIAwareness()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logutil.Setup(cfg.EnableFileLogging)

	if cfg.APIKey == "" {
		log.Fatalf("OPENROUTER_API_KEY is required. Set it in your .env file or at %s.", cfg.APIKeyPath)
	}

	llmClient := llm.New(llm.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		ExtractionModel: cfg.ExtractionModel,
		SolutionModel:   cfg.SolutionModel,
		DebuggingModel:  cfg.DebuggingModel,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = llmClient.Ping(pingCtx)
	pingCancel()
	if err != nil {
		log.Fatalf("API startup check failed: %v. Verify your key and network connectivity.", err)
	}
	log.Printf("API ping succeeded (%s)", logutil.RedactKey(cfg.APIKey))

	if err := clipboard.Init(); err != nil {
		log.Fatalf("Failed to initialize clipboard: %v", err)
	}

	st, err := store.New(cfg.ScreenshotDir, cfg.QueueCapacity)
	if err != nil {
		log.Fatalf("Failed to initialize screenshot store: %v", err)
	}

	bus := bridge.NewBus()
	coord := coordinator.New(llmClient, bus, cfg.Language, time.Duration(cfg.DeadlineSec)*time.Second)

	screen, err := screenshot.PrimaryDisplayBounds()
	if err != nil {
		log.Printf("Failed to query display bounds, assuming 1920x1080: %v", err)
		screen = image.Rect(0, 0, 1920, 1080)
	}

	fyneApp := fyneapp.NewWithID("com.interview-coder.overlay")
	host := window.NewFyneHost(fyneApp)
	win := window.New(host, screen)

	appState := state.New(st, win, coord, bus, state.Options{})

	srv := bridge.NewServer(bus)
	appState.RegisterOps(srv)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx, cfg.BridgePort); err != nil {
		// Busy port means another resident already owns the bridge.
		fmt.Printf("another instance is already running on port %d\n", cfg.BridgePort)
		os.Exit(1)
	}
	log.Printf("Bridge listening on port %d", srv.Port())

	dispatcher := hotkey.NewDispatcher()
	if err := appState.RegisterShortcuts(dispatcher, cfg.Hotkeys); err != nil {
		log.Fatalf("Failed to register global shortcuts: %v", err)
	}
	dispatcher.Start()

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			log.Printf("Shutting down")
			cancel()
			dispatcher.Close()
			coord.Cancel()
			if err := srv.Close(); err != nil {
				log.Printf("bridge close: %v", err)
			}
			appState.Close()
			bus.Close()
			tray.Quit()
			fyneApp.Quit()
		})
	}

	go tray.Run(tray.Config{
		Tooltip: fmt.Sprintf("Interview Coder - %s to capture, %s to solve", cfg.Hotkeys.Capture, cfg.Hotkeys.Solve),
		OnCapture: func() {
			go func() {
				if _, err := appState.CaptureScreenshot(); err != nil {
					log.Printf("tray capture: %v", err)
				}
			}()
		},
		OnToggleWindow: win.Toggle,
		OnQuit:         shutdown,
	})

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		shutdown()
	}()

	log.Printf("Interview Coder initialized (language=%s, models=%s/%s/%s)",
		cfg.Language, cfg.ExtractionModel, cfg.SolutionModel, cfg.DebuggingModel)

	win.Create()
	fyneApp.Run()
	shutdown()
}
