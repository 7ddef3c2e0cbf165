package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andrewjensen/skelly/internal/layout"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/markup"
	"github.com/andrewjensen/skelly/internal/pagination"
	"github.com/andrewjensen/skelly/internal/raster"
	"github.com/andrewjensen/skelly/internal/text"
)

// Pipeline turns accepted markdown into rendered documents: parse,
// image fetch, layout, raster, then hand-off to the pagination
// controller. Jobs run one at a time on the pipeline goroutine and are
// never cancelled mid-flight; the controller drops results that a
// newer submission has superseded.
type Pipeline struct {
	engine  *layout.Engine
	rast    *raster.Rasterizer
	geom    layout.Geometry
	fetcher *Fetcher
	ctrl    *pagination.Controller
	jobs    chan *pagination.RenderJob
}

func NewPipeline(shaper *text.Shaper, rast *raster.Rasterizer, geom layout.Geometry, ctrl *pagination.Controller) *Pipeline {
	return &Pipeline{
		engine:  layout.NewEngine(shaper),
		rast:    rast,
		geom:    geom,
		fetcher: NewFetcher(),
		ctrl:    ctrl,
		jobs:    make(chan *pagination.RenderJob, 8),
	}
}

// Submit queues markdown for rendering and returns the job ID. The new
// job immediately becomes the latest: anything still in flight will be
// discarded when it finishes. Submit never blocks; under a flood of
// captures the oldest queued job is shed first.
func (p *Pipeline) Submit(markdown, pageURL string) uuid.UUID {
	j := pagination.NewRenderJob(pageURL, markdown)
	p.ctrl.JobSubmitted(j.ID)
	for {
		select {
		case p.jobs <- j:
			return j.ID
		default:
		}
		select {
		case old := <-p.jobs:
			old.Advance(pagination.JobFailed)
			logging.Logger().Warn("shedding queued render", "job", old.ID)
		default:
		}
	}
}

// Run processes jobs until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.render(ctx, j)
		}
	}
}

func (p *Pipeline) render(ctx context.Context, j *pagination.RenderJob) {
	log := logging.Logger()
	start := time.Now()
	j.Advance(pagination.JobProcessing)

	doc := markup.Parse([]byte(j.Markup))
	for _, w := range doc.Warnings {
		log.Warn("markup degraded", "job", j.ID, "detail", w.Message)
	}

	lib := p.fetcher.loadImages(ctx, doc)

	res, err := p.engine.Layout(doc, p.geom, lib)
	if err != nil {
		log.Error("layout failed", "job", j.ID, "error", err)
		j.Advance(pagination.JobFailed)
		p.ctrl.Fail(ctx, j.ID, err)
		return
	}
	for _, w := range res.Warnings {
		log.Warn("layout degraded", "job", j.ID, "detail", w)
	}

	pages := make([]*raster.Surface, len(res.Pages))
	for i, pg := range res.Pages {
		pages[i] = p.rast.RenderPage(pg, res.Geometry, lib, i+1, len(res.Pages))
	}

	log.Info("render finished",
		"job", j.ID,
		"url", j.SourceURL,
		"pages", len(pages),
		"elapsed", time.Since(start))

	j.Advance(pagination.JobReady)
	p.ctrl.Complete(ctx, pagination.Document{JobID: j.ID, URL: j.SourceURL, Pages: pages})
}
