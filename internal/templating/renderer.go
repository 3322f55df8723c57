package templating

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/plumgrid/pg-gateway/internal/contexts"
	"github.com/plumgrid/pg-gateway/internal/fsutil"
	"github.com/plumgrid/pg-gateway/internal/openstack"
	"github.com/plumgrid/pg-gateway/internal/resources"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

//go:embed templates
var embedded embed.FS

// Templates returns the template tree shipped with the binary.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

type registration struct {
	path     string
	contexts []string
}

// Renderer renders registered files from a release-aware template tree.
//
// For a target file named N and release R, the template used is the first of
// R/N, each older release's N (newest first), then N at the tree root.
type Renderer struct {
	templates fs.FS
	release   string
	root      string
	providers map[string]contexts.Provider
	files     []registration
	logger    *logger.Logger
}

// NewRenderer builds an empty renderer. root prefixes every written path.
func NewRenderer(templates fs.FS, release, root string, log *logger.Logger) *Renderer {
	return &Renderer{
		templates: templates,
		release:   release,
		root:      root,
		providers: map[string]contexts.Provider{},
		logger:    log,
	}
}

// Release returns the release templates are resolved for.
func (r *Renderer) Release() string { return r.release }

// AddProvider makes a context provider available under its name.
func (r *Renderer) AddProvider(p contexts.Provider) {
	r.providers[p.Name()] = p
}

// Register adds (or replaces) a target file and the providers it renders with.
func (r *Renderer) Register(target string, contextNames []string) {
	for i := range r.files {
		if r.files[i].path == target {
			r.files[i].contexts = contextNames
			return
		}
	}
	r.files = append(r.files, registration{path: target, contexts: contextNames})
}

// Registered returns the target paths in registration order.
func (r *Renderer) Registered() []string {
	out := make([]string, len(r.files))
	for i, f := range r.files {
		out[i] = f.path
	}
	return out
}

// TemplatePath resolves the template file used for target.
func (r *Renderer) TemplatePath(target string) (string, error) {
	name := path.Base(filepath.ToSlash(target))
	candidates := make([]string, 0, len(openstack.Releases)+1)
	for _, rel := range openstack.UpTo(r.release) {
		candidates = append(candidates, path.Join(rel, name))
	}
	candidates = append(candidates, name)

	for _, c := range candidates {
		if _, err := fs.Stat(r.templates, c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no template for %s (release %s)", name, r.release)
}

// Render executes the template for target with its merged contexts. It
// returns an error wrapping contexts.ErrIncomplete when a provider is not ready.
func (r *Renderer) Render(ctx context.Context, target string) ([]byte, error) {
	return r.render(ctx, target, contextCache{})
}

type contextResult struct {
	ctx contexts.Context
	err error
}

// contextCache holds each provider's answer for the length of one pass.
type contextCache map[string]contextResult

func (c contextCache) get(ctx context.Context, p contexts.Provider) (contexts.Context, error) {
	if res, ok := c[p.Name()]; ok {
		return res.ctx, res.err
	}
	v, err := p.Context(ctx)
	c[p.Name()] = contextResult{ctx: v, err: err}
	return v, err
}

func (r *Renderer) render(ctx context.Context, target string, cache contextCache) ([]byte, error) {
	reg, ok := r.lookup(target)
	if !ok {
		return nil, fmt.Errorf("%s is not registered", target)
	}

	parts := make([]contexts.Context, 0, len(reg.contexts))
	for _, name := range reg.contexts {
		p, ok := r.providers[name]
		if !ok {
			return nil, fmt.Errorf("context provider %q for %s: %w", name, target, contexts.ErrIncomplete)
		}
		c, err := cache.get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("context provider %q for %s: %w", name, target, err)
		}
		parts = append(parts, c)
	}

	tmplPath, err := r.TemplatePath(target)
	if err != nil {
		return nil, err
	}
	src, err := fs.ReadFile(r.templates, tmplPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", tmplPath, err)
	}

	tmpl, err := template.New(tmplPath).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", tmplPath, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(contexts.Merge(parts...))); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", target, err)
	}
	return buf.Bytes(), nil
}

// Write renders target and writes it with mode 0644. It reports whether the
// file content changed. Incomplete contexts skip the file without error.
func (r *Renderer) Write(ctx context.Context, target string) (bool, error) {
	return r.write(ctx, target, contextCache{})
}

func (r *Renderer) write(ctx context.Context, target string, cache contextCache) (bool, error) {
	data, err := r.render(ctx, target, cache)
	if errors.Is(err, contexts.ErrIncomplete) {
		r.logger.WithError(err).Infof("Not writing %s, context incomplete", target)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	dst := fsutil.Under(r.root, target)
	if old, err := os.ReadFile(dst); err == nil && bytes.Equal(old, data) {
		r.logger.Debugf("%s unchanged", target)
		return false, nil
	}

	if err := fsutil.WriteFileAtomic(dst, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	r.logger.Infof("Wrote template %s", target)
	return true, nil
}

// WriteAll writes every registered file in order and returns the changed ones.
// It stops at the first hard error. Each provider is asked once per call.
func (r *Renderer) WriteAll(ctx context.Context) ([]string, error) {
	cache := contextCache{}
	var changed []string
	for _, f := range r.files {
		ok, err := r.write(ctx, f.path, cache)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, f.path)
		}
	}
	return changed, nil
}

func (r *Renderer) lookup(target string) (registration, bool) {
	for _, f := range r.files {
		if f.path == target {
			return f, true
		}
	}
	return registration{}, false
}

// ReleaseResolver picks the OpenStack release from installed packages.
type ReleaseResolver interface {
	OSRelease(ctx context.Context, pkg, base string) string
}

// Options configures RegisterConfigs.
type Options struct {
	// Release overrides detection when set.
	Release   string
	Resolver  ReleaseResolver
	Providers []contexts.Provider
	Root      string
	// Templates defaults to the embedded tree.
	Templates fs.FS
	Logger    *logger.Logger
}

const (
	releasePackage = "nova-compute"
	baseRelease    = "kilo"
)

// RegisterConfigs builds a renderer with every resource map file registered.
func RegisterConfigs(ctx context.Context, opts Options) *Renderer {
	release := opts.Release
	if release == "" {
		release = baseRelease
		if opts.Resolver != nil {
			release = opts.Resolver.OSRelease(ctx, releasePackage, baseRelease)
		}
	}

	tmpl := opts.Templates
	if tmpl == nil {
		tmpl = Templates()
	}

	r := NewRenderer(tmpl, release, opts.Root, opts.Logger)
	for _, p := range opts.Providers {
		r.AddProvider(p)
	}
	for _, e := range resources.New().Entries() {
		r.Register(e.Path, e.Contexts)
	}
	return r
}
