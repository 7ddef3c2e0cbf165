package ingest

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/markup"
)

// imageFetchTimeout bounds the download of a single image.
const imageFetchTimeout = 15 * time.Second

// library holds the decoded images for one render job. It answers both
// the layout sizing query and the raster pixel query, so a document is
// measured and drawn from the same set of images.
type library struct {
	images map[string]image.Image
}

func (l *library) ImageSize(src string) (int, int, bool) {
	img, ok := l.images[src]
	if !ok {
		return 0, 0, false
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), true
}

func (l *library) Image(src string) (image.Image, bool) {
	img, ok := l.images[src]
	return img, ok
}

// collectImageSources walks the document and returns every distinct
// image URL, skipping data URIs and anything without a scheme.
func collectImageSources(doc *markup.Document) []string {
	seen := make(map[string]bool)
	var srcs []string
	add := func(src string) {
		if src == "" || seen[src] {
			return
		}
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return
		}
		seen[src] = true
		srcs = append(srcs, src)
	}
	var blocks func([]markup.Node)
	blocks = func(ns []markup.Node) {
		for _, n := range ns {
			switch b := n.(type) {
			case *markup.Image:
				add(b.Src)
			case *markup.List:
				for _, item := range b.Items {
					blocks(item.Blocks)
				}
			}
		}
	}
	blocks(doc.Blocks)
	return srcs
}

// loadImages downloads every image the document references. Failures
// are logged and skipped; the layout falls back to a placeholder for
// anything missing.
func (f *Fetcher) loadImages(ctx context.Context, doc *markup.Document) *library {
	lib := &library{images: make(map[string]image.Image)}
	log := logging.Logger()
	for _, src := range collectImageSources(doc) {
		fctx, cancel := context.WithTimeout(ctx, imageFetchTimeout)
		img, err := f.Image(fctx, src)
		cancel()
		if err != nil {
			log.Warn("skipping image", "src", src, "error", err)
			continue
		}
		lib.images[src] = img
	}
	return lib
}
