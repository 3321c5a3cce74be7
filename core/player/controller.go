package player

import (
	"errors"
	"time"

	"BerryBox/core/daemon"
	"BerryBox/logger"
	"BerryBox/model"
	"BerryBox/repository"
)

// Controller drives playback through the daemon and turns outcomes into
// typed results. Play is the only interesting path: it carries the
// resume lookup, the intent, and the confirmation wait; the transport
// controls are thin passthroughs.
type Controller struct {
	daemon   *daemon.Client
	agg      *Aggregator
	repo     repository.CatalogRepository
	confirms *ConfirmationRegistry
	saver    *Saver
}

// NewController creates the play controller.
func NewController(d *daemon.Client, agg *Aggregator, repo repository.CatalogRepository, confirms *ConfirmationRegistry, saver *Saver) *Controller {
	return &Controller{
		daemon:   d,
		agg:      agg,
		repo:     repo,
		confirms: confirms,
		saver:    saver,
	}
}

// Play starts playback of a context, resuming at the saved track and
// position unless fromBeginning is set. It blocks until the daemon
// confirms playback or the confirmation window lapses, so the caller
// gets a definitive result rather than an optimistic one.
func (c *Controller) Play(req *model.PlayRequest) *model.PlayResult {
	if req.URI == "" {
		return &model.PlayResult{Success: false, Reason: model.ReasonRequestFailed}
	}

	// Bank the outgoing context's position before it gets torn down.
	if c.saver != nil && c.agg.ContextURI() != "" && c.agg.ContextURI() != req.URI {
		c.saver.SaveNow()
	}

	var resume *model.ResumeRecord
	if !req.FromBeginning {
		// A record past the staleness window is deleted by the read
		// itself; a fresh one stays until the context finishes.
		resume = c.repo.Progress(req.URI)
	} else {
		if err := c.repo.ClearProgress(req.URI); err != nil {
			logger.Warn("failed to clear progress", logger.ErrorField(err))
		}
	}

	skipTo := ""
	if resume != nil {
		skipTo = resume.URI
	}

	c.agg.SetIntended(req.URI)
	confirmed := c.confirms.Register(req.URI)

	logger.Info("play request",
		logger.String("context", req.URI),
		logger.Bool("resume", resume != nil))

	if err := c.daemon.Play(req.URI, skipTo); err != nil {
		c.confirms.Cancel(req.URI)
		c.agg.ClearIntended(req.URI)
		return &model.PlayResult{
			Success: false,
			Context: req.URI,
			Reason:  classify(err),
		}
	}

	if ok := <-confirmed; !ok {
		c.agg.ClearIntended(req.URI)
		logger.Warn("play confirmation window lapsed", logger.String("context", req.URI))
		return &model.PlayResult{
			Success: false,
			Context: req.URI,
			Reason:  model.ReasonTimeout,
		}
	}

	result := &model.PlayResult{Success: true, Context: req.URI}

	if resume != nil {
		result.Resumed = true
		result.ResumedTrack = resume.Name
		result.Position = resume.Position
		if resume.Position > 0 {
			// The daemon starts the skipped-to track from zero; a short
			// settle before seeking avoids racing the track load.
			time.Sleep(200 * time.Millisecond)
			if err := c.daemon.Seek(resume.Position); err != nil {
				logger.Warn("resume seek failed",
					logger.Int64("position", resume.Position),
					logger.ErrorField(err))
			}
		}
	}

	return result
}

// Pause pauses playback and flushes the current position.
func (c *Controller) Pause() *model.SimpleResult {
	err := c.daemon.Pause()
	if err == nil && c.saver != nil {
		c.saver.SaveNow()
	}
	return simple(err, "pause")
}

// Resume resumes paused playback.
func (c *Controller) Resume() *model.SimpleResult {
	return simple(c.daemon.Resume(), "resume")
}

// Next skips to the next track.
func (c *Controller) Next() *model.SimpleResult {
	return simple(c.daemon.Next(), "next")
}

// Prev skips to the previous track.
func (c *Controller) Prev() *model.SimpleResult {
	return simple(c.daemon.Prev(), "prev")
}

// Seek seeks within the current track.
func (c *Controller) Seek(positionMs int64) *model.SimpleResult {
	return simple(c.daemon.Seek(positionMs), "seek")
}

// SetVolume sets the daemon volume.
func (c *Controller) SetVolume(level int) *model.SimpleResult {
	return simple(c.daemon.SetVolume(level), "volume")
}

func simple(err error, op string) *model.SimpleResult {
	if err != nil {
		logger.Warn("control failed", logger.String("op", op), logger.ErrorField(err))
		return &model.SimpleResult{Success: false}
	}
	return &model.SimpleResult{Success: true}
}

// classify maps daemon client errors onto failure reasons.
func classify(err error) model.FailureReason {
	switch {
	case errors.Is(err, daemon.ErrUnavailable):
		return model.ReasonUnavailable
	case errors.Is(err, daemon.ErrNetwork):
		return model.ReasonNetworkError
	default:
		return model.ReasonRequestFailed
	}
}
