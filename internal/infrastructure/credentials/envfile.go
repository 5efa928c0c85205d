package credentials

import (
	"bytes"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// readEnvFile parses a local env file without variable interpolation.
// Key names may contain hyphens (AZ-TENANT-ID); they are stored under
// envFileKey(name).
func readEnvFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return godotenv.UnmarshalBytes(prepareEnvFile(raw))
}

// envFileKey is the name a key is stored under after readEnvFile.
func envFileKey(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

// prepareEnvFile rewrites each assignment so godotenv accepts hyphenated keys
// and keeps every '$' literal. Single-quoted values are never expanded and
// are left untouched.
func prepareEnvFile(src []byte) []byte {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	lines := bytes.Split(src, []byte("\n"))

	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] == '#' {
			continue
		}

		sep := bytes.IndexAny(line, "=:")
		if sep < 0 {
			lines[i] = escapeDollar(line)
			continue
		}
		key := bytes.ReplaceAll(line[:sep], []byte("-"), []byte("_"))
		value := line[sep+1:]
		if !bytes.HasPrefix(bytes.TrimLeft(value, " \t"), []byte("'")) {
			value = escapeDollar(value)
		}

		out := make([]byte, 0, len(line)+8)
		out = append(out, key...)
		out = append(out, line[sep])
		out = append(out, value...)
		lines[i] = out
	}
	return bytes.Join(lines, []byte("\n"))
}

func escapeDollar(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("$"), []byte(`\$`))
}
