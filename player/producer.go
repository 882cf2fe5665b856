package player

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// maxConsecutiveFailures ends production when the source keeps failing
const maxConsecutiveFailures = 100

// Producer moves decoded frames into the Frame Store and announces them on the Frame Queue
type Producer struct {
	src   FrameSource
	store *FrameStore
	queue *FrameQueue
	log   zerolog.Logger

	produced int
	skipped  int
}

// NewProducer creates a producer reading from src
func NewProducer(src FrameSource, store *FrameStore, queue *FrameQueue, log zerolog.Logger) *Producer {
	return &Producer{
		src:   src,
		store: store,
		queue: queue,
		log:   log,
	}
}

// Run decodes until the source is exhausted or ctx is done, then closes the queue.
// Frame-level failures leave a gap at that index and are not returned unless
// the source never recovers.
func (p *Producer) Run(ctx context.Context) error {
	defer p.queue.Close()

	failures := 0
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return nil
		}

		img, err := p.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.log.Debug().Int("frames", p.produced).Int("skipped", p.skipped).
					Uint64("dropped", p.queue.Dropped()).Msg("frame source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			p.skipped++
			failures++
			if failures >= maxConsecutiveFailures {
				return fmt.Errorf("frame source failed %d times in a row: %w", failures, err)
			}
			p.log.Warn().Err(err).Int("index", i).Msg("frame decode failed, skipping")
			continue
		}
		failures = 0

		h, err := p.store.Write(i, img)
		if err != nil {
			p.skipped++
			p.log.Warn().Err(err).Int("index", i).Msg("frame write failed, skipping")
			continue
		}
		p.produced++

		// never wait on the render loop
		p.queue.Push(h)
	}
}

// Produced returns how many frames reached the store
func (p *Producer) Produced() int {
	return p.produced
}
