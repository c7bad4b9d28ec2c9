package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// SysfsBacklight drives a Linux backlight class device, e.g.
// /sys/class/backlight/10-0045.
type SysfsBacklight struct {
	dir string
	max int
	log logrus.FieldLogger
}

// NewSysfsBacklight reads max_brightness from dir.
func NewSysfsBacklight(dir string, log logrus.FieldLogger) (*SysfsBacklight, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("read max_brightness: %w", err)
	}
	max, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || max <= 0 {
		return nil, fmt.Errorf("bad max_brightness %q", strings.TrimSpace(string(raw)))
	}
	return &SysfsBacklight{dir: dir, max: max, log: log}, nil
}

// SetBacklight scales level (0..100, clamped) to the device range. Write
// failures are logged, not returned.
func (b *SysfsBacklight) SetBacklight(level uint8) {
	if level > 100 {
		level = 100
	}
	v := (int(level)*b.max + 50) / 100
	path := filepath.Join(b.dir, "brightness")
	if err := os.WriteFile(path, []byte(strconv.Itoa(v)), 0o644); err != nil {
		b.log.Warnf("set backlight %d%%: %v", level, err)
	}
}
