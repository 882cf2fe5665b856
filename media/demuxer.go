package media

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
)

// Demuxer handles opening media and reading packets
type Demuxer struct {
	formatCtx   *astiav.FormatContext
	videoStream *astiav.Stream
	audioStream *astiav.Stream
	videoIdx    int
	audioIdx    int

	mu     sync.Mutex
	closed bool
}

// OpenDemuxer opens the file at path. It fails with ErrNoVideoStream if the
// file has no video.
func OpenDemuxer(path string) (*Demuxer, error) {
	d := &Demuxer{
		videoIdx: -1,
		audioIdx: -1,
	}

	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, fmt.Errorf("failed to allocate format context")
	}

	if err := d.formatCtx.OpenInput(path, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	// first stream of each kind wins
	for _, stream := range d.formatCtx.Streams() {
		switch stream.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if d.videoIdx == -1 {
				d.videoIdx = stream.Index()
				d.videoStream = stream
			}
		case astiav.MediaTypeAudio:
			if d.audioIdx == -1 {
				d.audioIdx = stream.Index()
				d.audioStream = stream
			}
		}
	}

	if d.videoIdx == -1 {
		d.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoVideoStream)
	}

	return d, nil
}

// VideoCodecParameters returns the video codec parameters
func (d *Demuxer) VideoCodecParameters() *astiav.CodecParameters {
	return d.videoStream.CodecParameters()
}

// AudioCodecParameters returns the audio codec parameters, nil without audio
func (d *Demuxer) AudioCodecParameters() *astiav.CodecParameters {
	if d.audioStream == nil {
		return nil
	}
	return d.audioStream.CodecParameters()
}

// HasAudio returns true if there's an audio stream
func (d *Demuxer) HasAudio() bool {
	return d.audioIdx != -1
}

// VideoTimeBase returns the video stream time base
func (d *Demuxer) VideoTimeBase() astiav.Rational {
	return d.videoStream.TimeBase()
}

// AudioTimeBase returns the audio stream time base
func (d *Demuxer) AudioTimeBase() astiav.Rational {
	return d.audioStream.TimeBase()
}

// VideoFrameRate returns the average source frame rate, 0 if unknown
func (d *Demuxer) VideoFrameRate() float64 {
	return rationalFloat(d.videoStream.AvgFrameRate())
}

// Duration returns the container duration in seconds, falling back to the
// video stream duration
func (d *Demuxer) Duration() float64 {
	if us := d.formatCtx.Duration(); us > 0 {
		return float64(us) / avTimeBase
	}
	return ptsSeconds(d.videoStream.Duration(), d.videoStream.TimeBase())
}

// ReadPacket reads the next packet of the given media type, skipping the other
// streams. Returns io.EOF when the stream ends. The caller frees the packet.
func (d *Demuxer) ReadPacket(kind astiav.MediaType) (*astiav.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("demuxer closed")
	}

	want := d.videoIdx
	if kind == astiav.MediaTypeAudio {
		want = d.audioIdx
	}
	if want == -1 {
		return nil, ErrNoAudioStream
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, fmt.Errorf("failed to allocate packet")
	}

	for {
		if err := d.formatCtx.ReadFrame(pkt); err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEof) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}
		if pkt.StreamIndex() == want {
			return pkt, nil
		}
		pkt.Unref()
	}
}

// Close releases all resources
func (d *Demuxer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
}
