package main

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/falconandy/spacetravelling/blog"
)

// Builder writes the whole site as static files: the index, one cumulative
// page per "load more" step, every post, the feed and the assets.
type Builder struct {
	source   ContentSource
	renderer *Renderer
	provider *RSSProvider
	logger   *zap.Logger
	outDir   string
	maxPages int
}

func NewBuilder(cfg Config, source ContentSource, renderer *Renderer, logger *zap.Logger) *Builder {
	return &Builder{
		source:   source,
		renderer: renderer,
		provider: NewRSSProvider(source, cfg.SiteURL, cfg.MaxPages),
		logger:   logger,
		outDir:   cfg.OutputDir,
		maxPages: cfg.MaxPages,
	}
}

func (b *Builder) Build(ctx context.Context) error {
	first, err := b.source.FirstPage(ctx)
	if err != nil {
		return err
	}

	paginator := blog.NewPaginator(first, b.source)
	state := paginator.State()
	for n := 1; ; n++ {
		if err := b.writeIndex(n, state); err != nil {
			return err
		}
		if !state.HasMore() || (b.maxPages > 0 && n >= b.maxPages) {
			break
		}
		if state, err = paginator.LoadMore(ctx); err != nil {
			return err
		}
	}
	b.logger.Info("index pages written", zap.Int("posts", len(state.Items)))

	for _, item := range state.Items {
		if err := b.writePost(ctx, item.UID); err != nil {
			return err
		}
	}

	feed := b.provider.feedOf(state.Items)
	rss, err := feed.ToRss()
	if err != nil {
		return errors.Wrap(err, "can't encode feed")
	}
	if err := b.writeFile("rss.xml", []byte(rss)); err != nil {
		return err
	}

	if err := b.copyAssets(); err != nil {
		return err
	}
	b.logger.Info("site built", zap.String("dir", b.outDir), zap.Int("posts", len(state.Items)))
	return nil
}

// writeIndex writes the n-th cumulative index page. The first one is also
// the site root.
func (b *Builder) writeIndex(n int, state blog.PaginationState) error {
	var buf bytes.Buffer
	next := "/page/" + strconv.Itoa(n+1) + "/"
	if b.maxPages > 0 && n >= b.maxPages {
		next = ""
	}
	if err := b.renderer.Index(&buf, state, next); err != nil {
		return err
	}

	if n == 1 {
		if err := b.writeFile("index.html", buf.Bytes()); err != nil {
			return err
		}
	}
	return b.writeFile(filepath.Join("page", strconv.Itoa(n), "index.html"), buf.Bytes())
}

func (b *Builder) writePost(ctx context.Context, uid string) error {
	if uid == "" || uid == "." || uid == ".." || strings.ContainsAny(uid, `/\`) {
		b.logger.Warn("post skipped, uid is not a valid path segment", zap.String("uid", uid))
		return nil
	}
	post, err := b.source.GetPostByUID(ctx, uid)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := b.renderer.Post(&buf, post); err != nil {
		return err
	}
	b.logger.Debug("post written", zap.String("uid", uid))
	return b.writeFile(filepath.Join("post", uid, "index.html"), buf.Bytes())
}

func (b *Builder) copyAssets() error {
	assets := staticFS()
	return fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(assets, path)
		if err != nil {
			return errors.Wrapf(err, "can't read asset %s", path)
		}
		return b.writeFile(filepath.Join("static", filepath.FromSlash(path)), content)
	})
}

func (b *Builder) writeFile(name string, content []byte) error {
	path := filepath.Join(b.outDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "can't create directory for %s", path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "can't write %s", path)
	}
	return nil
}
