package files

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/plumgrid/pg-gateway/internal/config"
	"github.com/plumgrid/pg-gateway/internal/fsutil"
	"github.com/plumgrid/pg-gateway/internal/resources"
)

// AddLCMKey authorizes the lifecycle-manager public keys inside the gateway
// container. The option may hold several keys, one per line; each is added at
// most once. It never fails: problems are logged and the keys are skipped.
func (r *Reconciler) AddLCMKey(key string) {
	keys := splitKeys(key)
	if len(keys) == 0 {
		r.logger.Info("lcm key not specified")
		return
	}

	path := fsutil.Under(r.root, resources.AuthKeyPath)

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	prefix := ""
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		flags = os.O_WRONLY | os.O_APPEND
		if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
			prefix = "\n"
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		r.logger.WithError(err).Info("plumgrid-lxc not installed yet")
		return
	}

	present := lines(existing)
	var missing []string
	for _, k := range keys {
		if _, ok := present[k]; ok {
			continue
		}
		present[k] = struct{}{}
		missing = append(missing, k)
	}
	if len(missing) == 0 {
		r.logger.Info("key already added")
		return
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		r.logger.WithError(err).Warn("Error opening file to append")
		return
	}
	defer f.Close()

	if _, err := f.WriteString(prefix + strings.Join(missing, "\n") + "\n"); err != nil {
		r.logger.WithError(err).Warn("Error writing lcm key")
		return
	}
	r.logger.Infof("Added %d lcm key(s) to %s", len(missing), path)
}

// splitKeys returns the trimmed, non-empty lines of the option value. The
// "null" sentinel means no key.
func splitKeys(value string) []string {
	var keys []string
	for _, l := range strings.Split(value, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || l == config.NullKey {
			continue
		}
		keys = append(keys, l)
	}
	return keys
}

// lines returns the set of trimmed lines of data.
func lines(data []byte) map[string]struct{} {
	set := map[string]struct{}{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		set[strings.TrimSpace(sc.Text())] = struct{}{}
	}
	return set
}
