package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/mat-surgery/core"
)

// UglyOutput returns the path the rasterize fallback writes to.
func (s *Stripper) UglyOutput() string {
	return s.opts.RealName + core.Postfix + ".pdf"
}

// RemoveAllUgly rasterizes every page, strips the page images, reassembles
// them into a new PDF and strips that document's Info dictionary. Text and
// vector content are lost.
//
// Temporary state is released in reverse order of acquisition: the
// unfinished output first, then the page images, then their directory.
func (s *Stripper) RemoveAllUgly(ctx context.Context) (err error) {
	p := s.pipeline
	if p.Rasterizer == nil || p.Assembler == nil || p.StripImage == nil {
		return core.UnsupportedError(s.path, "rasterize fallback is not configured")
	}
	log := s.opts.Logger.With(zap.String("file", s.path))

	dir, err := os.MkdirTemp("", "mat-pages-")
	if err != nil {
		return core.IOError(s.path, "create page directory", err)
	}
	defer func() {
		if cerr := s.cleanupPages(dir); cerr != nil && err == nil {
			err = cerr
		}
	}()

	pages, err := p.Rasterizer.Rasterize(ctx, s.path, dir)
	if err != nil {
		return core.ExternalToolError(core.StageRasterize, s.path, "rasterize pages", err)
	}
	log.Debug("pages rasterized", zap.Int("pages", len(pages)))

	for _, page := range pages {
		if err := p.StripImage(page); err != nil {
			return stageError(core.StageStrip, s.path, "strip page image "+filepath.Base(page), err)
		}
	}

	out := s.UglyOutput()
	ready := false
	defer func() {
		if !ready {
			os.Remove(out)
			core.Discard(core.TempPath(out))
		}
	}()

	if err := p.Assembler.Assemble(ctx, pages, out); err != nil {
		return core.ExternalToolError(core.StageReassemble, s.path, "reassemble pages", err)
	}

	// The assembler stamps its own Producer and dates.
	rebuilt, err := New(out, core.Options{ShredPasses: s.opts.ShredPasses, Logger: s.opts.Logger}, Pipeline{})
	if err != nil {
		return stageError(core.StageReassemble, s.path, "read reassembled document", err)
	}
	if err := rebuilt.RemoveAll(); err != nil {
		return stageError(core.StageReassemble, s.path, "strip reassembled document", err)
	}

	// The output is now a complete stripped document; keep it even if the
	// commit fails.
	ready = true
	final, err := core.Commit(s.path, out, s.opts)
	if err != nil {
		return err
	}
	log.Info("pdf rasterized and stripped", zap.String("output", final), zap.Int("pages", len(pages)))
	return nil
}

// cleanupPages securely erases whatever is left in dir, then removes it.
func (s *Stripper) cleanupPages(dir string) error {
	entries, _ := os.ReadDir(dir)
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := core.SecureRemove(filepath.Join(dir, e.Name()), s.opts.ShredPasses); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		errs = append(errs, core.IOError(dir, "remove page directory", err))
	}
	return errors.Join(errs...)
}

// stageError tags err with stage, keeping the kind of a typed error.
func stageError(stage core.Stage, path, msg string, err error) error {
	kind := core.KindExternalTool
	var ce *core.Error
	if errors.As(err, &ce) {
		kind = ce.Kind
	}
	return &core.Error{Kind: kind, Stage: stage, Path: path, Message: msg, Err: err}
}
