package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Combo is a parsed hotkey combination: up to two modifiers plus one
// trigger key.
type Combo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
	Key   string // lowercase: a-z, 0-9, "space", f1-f12
}

// ParseCombo builds a Combo from config strings. Empty modifier slots
// are allowed; the trigger key is required.
func ParseCombo(modifier1, modifier2, key string) (Combo, error) {
	var c Combo
	for _, mod := range []string{modifier1, modifier2} {
		if mod == "" {
			continue
		}
		switch strings.ToLower(mod) {
		case "ctrl", "control":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		case "alt", "option":
			c.Alt = true
		case "super", "cmd", "meta", "win":
			c.Super = true
		default:
			return Combo{}, fmt.Errorf("unknown modifier %q", mod)
		}
	}

	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case k == "":
		return Combo{}, fmt.Errorf("hotkey key is required")
	case k == "space":
	case len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9'):
	case len(k) >= 2 && k[0] == 'f':
		n, err := strconv.Atoi(k[1:])
		if err != nil || n < 1 || n > 12 {
			return Combo{}, fmt.Errorf("unknown key %q", key)
		}
	default:
		return Combo{}, fmt.Errorf("unknown key %q", key)
	}
	c.Key = k
	return c, nil
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}
	if c.Super {
		parts = append(parts, "Super")
	}
	parts = append(parts, strings.ToUpper(c.Key))
	return strings.Join(parts, "+")
}
