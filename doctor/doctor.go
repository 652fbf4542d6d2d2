// Package doctor runs interactive system diagnostics: config, hotkey,
// microphone, clipboard.
package doctor

import (
	"context"
	"fmt"
	"time"

	"fluxvoice/capture"
	"fluxvoice/config"
	"fluxvoice/hotkey"
	"fluxvoice/inject"
)

// Run executes the diagnostic checks and returns an exit code
// (0 = all pass, 1 = any fail).
func Run(dataDir string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("fluxvoice doctor - system diagnostics")
	fmt.Println("=====================================")

	allPass := true

	combo, ok := checkConfig(dataDir)
	if !ok {
		allPass = false
	}
	if allPass && !checkHotkey(combo) {
		allPass = false
	}
	if allPass && !checkMicrophone() {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkConfig(dataDir string) (hotkey.Combo, bool) {
	fmt.Println()
	fmt.Println("[1/4] Configuration")

	cfg, err := config.Load(dataDir)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return hotkey.Combo{}, false
	}

	combo, err := hotkey.ParseCombo(cfg.Hotkey.Modifier1, cfg.Hotkey.Modifier2, cfg.Hotkey.Key)
	if err != nil {
		fmt.Printf("  FAIL: hotkey config: %v\n", err)
		return hotkey.Combo{}, false
	}

	if cfg.Azure.SpeechKey == "" {
		fmt.Println("  WARN: no Azure speech key configured (set AZURE_SPEECH_KEY or edit config.yaml); transcription will fail")
	} else {
		fmt.Printf("  PASS: speech region %s, hotkey %s\n", cfg.Azure.SpeechRegion, combo)
	}
	return combo, true
}

func checkHotkey(combo hotkey.Combo) bool {
	fmt.Println()
	fmt.Println("[2/4] Hotkey detection")
	fmt.Printf("Press %s...\n", combo)

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey press detected")
		return true
	case <-time.After(15 * time.Second):
		fmt.Println("  FAIL: no hotkey press within 15s")
		return false
	}
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[3/4] Microphone capture")
	fmt.Println("Recording 2 seconds, say something...")

	rec, err := capture.NewMalgoRecorder()
	if err != nil {
		fmt.Printf("  FAIL: audio init: %v\n", err)
		return false
	}
	defer rec.Close()

	ctx := context.Background()
	if err := rec.Begin(ctx); err != nil {
		fmt.Printf("  FAIL: could not start capture: %v\n", err)
		return false
	}

	var peak float64
	for i := 0; i < 40; i++ {
		time.Sleep(50 * time.Millisecond)
		if l := rec.Level(); l > peak {
			peak = l
		}
	}

	wav, err := rec.End(ctx)
	if err != nil {
		fmt.Printf("  FAIL: could not finish capture: %v\n", err)
		return false
	}
	if peak == 0 {
		fmt.Println("  FAIL: captured only silence (wrong input device, or mic muted?)")
		return false
	}
	fmt.Printf("  PASS: %d bytes captured, peak level %.0f%%\n", len(wav), peak*100)
	return true
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/4] Clipboard")

	if err := inject.Copy("fluxvoice doctor"); err != nil {
		fmt.Printf("  FAIL: clipboard write: %v\n", err)
		return false
	}
	fmt.Println("  PASS: clipboard write OK")
	return true
}
