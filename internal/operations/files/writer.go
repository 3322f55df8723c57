package files

import (
	"fmt"
	"os"

	"github.com/plumgrid/pg-gateway/internal/fsutil"
	"github.com/plumgrid/pg-gateway/internal/resources"
	"github.com/plumgrid/pg-gateway/pkg/logger"
	"golang.org/x/sys/unix"
)

// SudoersRule lets nova drive the interface helper inside the gateway.
const SudoersRule = "\nnova ALL=(root) NOPASSWD: /opt/pg/bin/ifc_ctl_pp *\n"

// Reconciler keeps the auxiliary files the gateway needs in place.
type Reconciler struct {
	root   string
	logger *logger.Logger
	// chown is skipped when the process is not root.
	chown func(path string, uid, gid int) error
	isRoot func() bool
}

// NewReconciler returns a reconciler writing below root ("" in production).
func NewReconciler(root string, log *logger.Logger) *Reconciler {
	return &Reconciler{
		root:   root,
		logger: log,
		chown:  os.Chown,
		isRoot: func() bool { return unix.Geteuid() == 0 },
	}
}

// EnsureFiles writes the sudoers drop-in, owned by root:root with mode 0644.
// The content is fixed, so rewriting it every time is idempotent.
func (r *Reconciler) EnsureFiles() error {
	path := fsutil.Under(r.root, resources.SudoersConf)
	if err := fsutil.WriteFileAtomic(path, []byte(SudoersRule), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if r.isRoot() {
		if err := r.chown(path, 0, 0); err != nil {
			return fmt.Errorf("failed to chown %s: %w", path, err)
		}
	} else {
		r.logger.Debugf("not running as root, leaving ownership of %s", path)
	}

	r.logger.Infof("Ensured sudoers rule %s", path)
	return nil
}
