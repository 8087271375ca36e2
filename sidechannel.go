package strata

import (
	"os"
	"path/filepath"
	"strings"
)

var labelSanitizer = strings.NewReplacer(" ", "_", "/", "_")

// writeSideChannel mirrors the raw input to <OutDir>/<label>.conf for
// external observability. Not part of the durable contract; failures are
// logged and ignored.
func (e *Engine) writeSideChannel(label string, data []byte) {
	if e.config.OutDir == "" {
		return
	}

	if err := os.MkdirAll(e.config.OutDir, 0o755); err != nil {
		e.log.WithError(err).Warn("Side-channel directory unavailable")
		return
	}

	path := filepath.Join(e.config.OutDir, labelSanitizer.Replace(label)+".conf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.log.WithError(err).Warn("Side-channel write failed")
		return
	}
	e.log.WithField("path", path).Debugf("Side-channel written (%d bytes)", len(data))
}
