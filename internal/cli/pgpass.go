package cli

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// pgpassPath returns the platform-appropriate .pgpass file path.
func pgpassPath(getenv func(string) string) string {
	if custom := getenv("PGPASSFILE"); custom != "" {
		return custom
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(getenv("APPDATA"), "postgresql", "pgpass.conf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// lookupPgpass returns the password of the first .pgpass entry matching cfg.
// Fields may be "*". A missing or unreadable file yields no match.
func lookupPgpass(path string, cfg *dlsync.ConnectionConfig) (string, bool) {
	if path == "" {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	want := []string{cfg.Host, strconv.Itoa(cfg.Port), cfg.Database, cfg.Username}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitPgpass(line)
		if len(fields) != 5 {
			continue
		}
		if matchesPgpass(fields[:4], want) {
			return fields[4], true
		}
	}
	return "", false
}

func matchesPgpass(fields, want []string) bool {
	for i, f := range fields {
		if f != "*" && f != want[i] {
			return false
		}
	}
	return true
}

// splitPgpass splits a .pgpass line on unescaped colons and unescapes fields.
func splitPgpass(line string) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case line[i] == ':' && len(fields) < 4:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	return append(fields, cur.String())
}
