package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"fluxvoice/audiostore"
	"fluxvoice/beep"
	"fluxvoice/capture"
	"fluxvoice/config"
	"fluxvoice/doctor"
	"fluxvoice/history"
	"fluxvoice/hotkey"
	"fluxvoice/inject"
	"fluxvoice/log"
	"fluxvoice/login"
	"fluxvoice/session"
	"fluxvoice/shutdown"
	"fluxvoice/stats"
	"fluxvoice/transcriber"
)

var version = "dev"

var shutdownOnce sync.Once

func setLoginItem(on bool) error {
	if on {
		return login.Enable()
	}
	return login.Disable()
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func run() {
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	dataDirFlag := flag.String("datadir", "", "data directory for config, history and audio (default: OS-specific location)")
	backendFlag := flag.String("backend", os.Getenv("FLUXVOICE_BACKEND_URL"), "history backend URL; empty keeps history local-only")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run hotkey diagnostics and exit")
	noSoundFlag := flag.Bool("nosound", false, "Disable notification tones")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	hybridFlag := flag.Bool("hybrid", false, "Enable hybrid tap-to-toggle + hold-to-talk mode")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for hold-to-talk vs tap (e.g., 350ms)")
	toggleFlag := flag.Bool("toggle", false, "Treat each hotkey press as a start/stop toggle")
	flacFlag := flag.Bool("flac", false, "Compress uploads as FLAC before sending")
	statsFlag := flag.Bool("stats", false, "Print lifetime usage totals and exit")
	loginFlag := flag.String("login", "", "Set start-at-login: on or off (macOS only)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("fluxvoice %s\n", version)
		return
	}

	logDir, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Printf("Error resolving log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		fmt.Printf("Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	dataDir := *dataDirFlag
	if dataDir == "" {
		if dataDir, err = config.DefaultDir(); err != nil {
			fatalf("Error resolving data directory: %v", err)
		}
	}

	if *doctorFlag {
		os.Exit(doctor.Run(dataDir))
	}

	if *loginFlag != "" {
		if err := setLoginItem(*loginFlag == "on"); err != nil {
			fatalf("Error updating login item: %v", err)
		}
		fmt.Printf("start at login: %s\n", *loginFlag)
		return
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}

	reporter := stats.New(dataDir)
	if *statsFlag {
		totals := reporter.Totals()
		fmt.Printf("sessions: %d\ncharacters: %d\nseconds recorded: %d\n",
			totals.Sessions, totals.Characters, totals.Seconds)
		return
	}

	combo, err := hotkey.ParseCombo(cfg.Hotkey.Modifier1, cfg.Hotkey.Modifier2, cfg.Hotkey.Key)
	if err != nil {
		fatalf("Error in hotkey config: %v", err)
	}

	if *noSoundFlag {
		beep.Disable()
	}

	ctx := context.Background()

	blobs := audiostore.New(dataDir)
	var remote *history.Remote
	if *backendFlag != "" {
		remote = history.NewRemote(*backendFlag)
	}
	hist, err := history.New(dataDir, blobs, remote)
	if err != nil {
		fatalf("Error opening history store: %v", err)
	}
	if err := hist.Load(ctx); err != nil {
		log.Warnf("history load: %v", err)
	}

	recorder, err := capture.NewMalgoRecorder()
	if err != nil {
		fatalf("Error initializing audio capture: %v", err)
	}

	az := transcriber.NewAzure(transcriber.Config{
		SpeechKey:        cfg.Azure.SpeechKey,
		SpeechRegion:     cfg.Azure.SpeechRegion,
		OpenAIEndpoint:   cfg.Azure.OpenAIEndpoint,
		OpenAIKey:        cfg.Azure.OpenAIKey,
		OpenAIDeployment: cfg.Azure.OpenAIDeployment,
		Locales:          cfg.Language.SpeechLanguages,
		PolishEnabled:    cfg.Features.TextPolishingEnabled,
		CompressUploads:  *flacFlag,
	})

	sink := &appSink{autoInsert: cfg.Features.AutoInsertEnabled}
	ctrl := session.NewController(recorder, az, hist, reporter, sink, session.Options{
		StartTone: beep.PlayStart,
	})
	coord := session.NewCoordinator(ctrl, 0)

	log.SessionStart("azure", cfg.Features.TextPolishingEnabled)

	gracefulShutdown := func() {
		shutdownOnce.Do(func() {
			// Best-effort position flush; a failed write never blocks exit.
			if err := config.SaveWindowPosition(dataDir, cfg, cfg.UI.PositionX, cfg.UI.PositionY); err != nil {
				log.Warnf("window position flush: %v", err)
			}
			log.SessionEnd(len(hist.Items()))
			hist.Close()
			blobs.Close()
			recorder.Close()
			log.Close()
			tuiMu.Lock()
			if tuiProgram != nil {
				tuiProgram.Quit()
			}
			tuiMu.Unlock()
			os.Exit(0)
		})
	}

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(combo.String(),
			ctrl.ResetState,
			func() { hist.Clear(ctx) },
			func(text string) {
				if err := inject.Copy(text); err != nil {
					log.Warnf("clipboard copy failed: %v", err)
				}
			})
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()
	}

	// Mirror history into the TUI, both local changes and ones pushed
	// from other windows.
	go func() {
		tuiSend(HistoryMsg{Items: hist.Items()})
		for items := range hist.Subscribe() {
			tuiSend(HistoryMsg{Items: items})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	go beep.Init()

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		fatalf("Error registering hotkey %s: %v", combo, err)
	}
	defer hk.Unregister()
	log.Info("hotkey registered: " + combo.String())

	switch {
	case *hybridFlag:
		hy := hotkey.NewHybrid(hk, *longPressFlag)
		for {
			select {
			case <-hy.Start():
				log.Info("hotkey_start")
				coord.Press(ctx)
			case <-hy.StopChan():
				log.Info("hotkey_stop")
				coord.Release(ctx)
			}
		}
	case *toggleFlag:
		for {
			select {
			case <-hk.Keydown():
				log.Info("hotkey_toggle")
				coord.Toggle(ctx)
			case <-hk.Keyup():
			}
		}
	default:
		for {
			select {
			case <-hk.Keydown():
				log.Info("hotkey_down")
				coord.Press(ctx)
			case <-hk.Keyup():
				log.Info("hotkey_up")
				coord.Release(ctx)
			}
		}
	}
}
