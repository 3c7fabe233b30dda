package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LogFileName is the name of the debug log file.
const LogFileName = "solrscout.log"

// DefaultLogDir returns the default log directory (~/.solrscout/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".solrscout", "logs")
	}
	return filepath.Join(home, ".solrscout", "logs")
}

// DefaultLogPath returns the default debug log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}

// LogPathFor returns the log file for a subcommand: solrscout-<name>.log,
// or the shared solrscout.log when name is empty or "solrscout".
func LogPathFor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "solrscout" {
		return DefaultLogPath()
	}
	return filepath.Join(DefaultLogDir(), "solrscout-"+name+".log")
}

// FindLogFile returns explicit if it exists. Otherwise it returns the most
// recently written solrscout*.log in the default directory.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	matches, _ := filepath.Glob(filepath.Join(DefaultLogDir(), "solrscout*.log"))
	var newest string
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	if newest != "" {
		return newest, nil
	}

	return "", fmt.Errorf("no log file found. Run with --debug first, e.g.:\n  solrscout --debug serve\nExpected in: %s", DefaultLogDir())
}
