package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// fingerprintDir hashes name, size and modification time of each source file.
// Missing files hash as "missing" so that their later appearance changes the digest.
func fingerprintDir(dir string, files []CountryFile) (string, error) {
	h := xxhash.New()
	for _, cf := range files {
		_, _ = h.WriteString(cf.File)
		_, _ = h.WriteString("|")
		info, err := os.Stat(filepath.Join(dir, cf.File))
		switch {
		case err == nil:
			_, _ = h.WriteString(strconv.FormatInt(info.Size(), 10))
			_, _ = h.WriteString("|")
			_, _ = h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
		case os.IsNotExist(err):
			_, _ = h.WriteString("missing")
		default:
			return "", fmt.Errorf("fingerprint %s: %w", cf.File, err)
		}
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
