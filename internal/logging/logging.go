package logging

import (
	"path/filepath"
	"strings"
	"time"
)

// StampLayout formats session and episode start times in file names.
const StampLayout = "20060102_150405"

var unsafeName = strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_")

// SafeName replaces characters that are not portable in file names.
func SafeName(s string) string {
	return unsafeName.Replace(s)
}

// LogFilePath builds the session log path. The command is part of the name
// so a repl session started next to a long run never appends to its file.
// The default command "run" is left out.
func LogFilePath(logsDir, appName, command string, sessionStart time.Time) string {
	name := appName
	if command != "" && command != "run" {
		name += "." + SafeName(command)
	}
	return filepath.Join(logsDir, name+"."+sessionStart.Format(StampLayout)+".log")
}

// ArtifactPath names a per-session file such as a backup database or a
// line-protocol spool: <dir>/<part>_<part>_..._<stamp><ext>. Empty parts
// are skipped.
func ArtifactPath(dir, ext string, sessionStart time.Time, parts ...string) string {
	kept := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if p != "" {
			kept = append(kept, SafeName(p))
		}
	}
	kept = append(kept, sessionStart.Format(StampLayout))
	return filepath.Join(dir, strings.Join(kept, "_")+ext)
}
