package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
)

// VideoDecoder decodes video packets and scales them to the stored frame size
type VideoDecoder struct {
	demux    *Demuxer
	codecCtx *astiav.CodecContext
	swsCtx   *astiav.SoftwareScaleContext
	frame    *astiav.Frame
	rgbFrame *astiav.Frame

	srcWidth  int
	srcHeight int
	dstWidth  int
	dstHeight int

	timeBase astiav.Rational
	frameDur float64 // seconds per source frame, 0 if unknown
	flushed  bool

	mu     sync.Mutex
	closed bool
}

// NewVideoDecoder creates a decoder for the demuxer's video stream scaling to width x height
func NewVideoDecoder(demux *Demuxer, width, height int) (*VideoDecoder, error) {
	params := demux.VideoCodecParameters()
	v := &VideoDecoder{
		demux:     demux,
		timeBase:  demux.VideoTimeBase(),
		srcWidth:  params.Width(),
		srcHeight: params.Height(),
		dstWidth:  width,
		dstHeight: height,
	}

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("video codec not found: %s", params.CodecID())
	}

	v.codecCtx = astiav.AllocCodecContext(codec)
	if v.codecCtx == nil {
		return nil, fmt.Errorf("failed to allocate video codec context")
	}

	if err := params.ToCodecContext(v.codecCtx); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to copy video codec params: %w", err)
	}

	if err := v.codecCtx.Open(codec, nil); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to open video codec: %w", err)
	}

	if fps := demux.VideoFrameRate(); fps > 0 {
		v.frameDur = 1 / fps
	}

	v.frame = astiav.AllocFrame()
	v.rgbFrame = astiav.AllocFrame()

	return v, nil
}

func (v *VideoDecoder) initSwsContext() error {
	var err error
	v.swsCtx, err = astiav.CreateSoftwareScaleContext(
		v.srcWidth, v.srcHeight, v.codecCtx.PixelFormat(),
		v.dstWidth, v.dstHeight, astiav.PixelFormatRgb24,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("failed to create sws context: %w", err)
	}

	v.rgbFrame.SetWidth(v.dstWidth)
	v.rgbFrame.SetHeight(v.dstHeight)
	v.rgbFrame.SetPixelFormat(astiav.PixelFormatRgb24)

	if err := v.rgbFrame.AllocBuffer(1); err != nil {
		return fmt.Errorf("failed to allocate RGB frame buffer: %w", err)
	}
	return nil
}

// next decodes the next picture, reading packets as the codec asks for them.
// Returns io.EOF once the codec is drained.
func (v *VideoDecoder) next() (*timedFrame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, fmt.Errorf("video decoder closed")
	}

	for {
		err := v.codecCtx.ReceiveFrame(v.frame)
		if err == nil {
			return v.convert()
		}
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		if !errors.Is(err, astiav.ErrEagain) {
			return nil, fmt.Errorf("failed to receive video frame: %w", err)
		}
		if v.flushed {
			return nil, io.EOF
		}

		pkt, err := v.demux.ReadPacket(astiav.MediaTypeVideo)
		if errors.Is(err, io.EOF) {
			// a nil packet puts the codec in draining mode
			v.flushed = true
			if err := v.codecCtx.SendPacket(nil); err != nil {
				return nil, fmt.Errorf("failed to flush video decoder: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		err = v.codecCtx.SendPacket(pkt)
		pkt.Free()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			return nil, fmt.Errorf("failed to send video packet: %w", err)
		}
	}
}

// convert scales the current frame to RGB and copies it out
func (v *VideoDecoder) convert() (*timedFrame, error) {
	defer v.frame.Unref()

	pts := v.frame.Pts()

	if v.swsCtx == nil {
		if err := v.initSwsContext(); err != nil {
			return nil, err
		}
	}

	if err := v.swsCtx.ScaleFrame(v.frame, v.rgbFrame); err != nil {
		return nil, fmt.Errorf("failed to scale frame: %w", err)
	}

	rgbBytes, err := v.rgbFrame.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get RGB bytes: %w", err)
	}

	return &timedFrame{
		img:      rgbToImage(rgbBytes, v.dstWidth, v.dstHeight),
		pts:      ptsSeconds(pts, v.timeBase),
		duration: v.frameDur,
	}, nil
}

// rgbToImage copies tightly packed RGB24 pixels into a new RGBA image
func rgbToImage(rgb []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := min(width*height, len(rgb)/3)
	for i := 0; i < n; i++ {
		img.Pix[i*4] = rgb[i*3]
		img.Pix[i*4+1] = rgb[i*3+1]
		img.Pix[i*4+2] = rgb[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// Close releases all resources
func (v *VideoDecoder) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true

	if v.frame != nil {
		v.frame.Free()
		v.frame = nil
	}
	if v.rgbFrame != nil {
		v.rgbFrame.Free()
		v.rgbFrame = nil
	}
	if v.swsCtx != nil {
		v.swsCtx.Free()
		v.swsCtx = nil
	}
	if v.codecCtx != nil {
		v.codecCtx.Free()
		v.codecCtx = nil
	}
}

// Source decodes a video file into frames sampled at a fixed rate and scaled
// to a fixed width. It is read by a single goroutine.
type Source struct {
	demux   *Demuxer
	video   *VideoDecoder
	sampler *sampler
	info    Info
}

// OpenSource opens path for decoding at fps, scaling frames to wide columns
func OpenSource(path string, fps float64, wide int) (*Source, error) {
	demux, err := OpenDemuxer(path)
	if err != nil {
		return nil, err
	}

	params := demux.VideoCodecParameters()
	w, h := FrameSize(params.Width(), params.Height(), wide)
	if w == 0 {
		demux.Close()
		return nil, fmt.Errorf("%s: invalid video dimensions %dx%d", path, params.Width(), params.Height())
	}

	video, err := NewVideoDecoder(demux, w, h)
	if err != nil {
		demux.Close()
		return nil, fmt.Errorf("failed to create video decoder: %w", err)
	}

	s := &Source{
		demux: demux,
		video: video,
		info: Info{
			Duration:  demux.Duration(),
			FPS:       fps,
			SourceFPS: demux.VideoFrameRate(),
			Width:     params.Width(),
			Height:    params.Height(),
			HasAudio:  demux.HasAudio(),
		},
	}
	s.info.TotalFrames = TotalFrames(s.info.Duration, fps)
	s.sampler = newSampler(fps, video.next)
	return s, nil
}

// Info returns what was learned about the file when it was opened
func (s *Source) Info() Info {
	return s.info
}

// FrameSize returns the dimensions of every frame Next returns
func (s *Source) FrameSize() (int, int) {
	return s.video.dstWidth, s.video.dstHeight
}

// Next returns the next sampled frame, or io.EOF at the end of the video
func (s *Source) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.sampler.Next()
}

// Close releases the decoder and the file
func (s *Source) Close() {
	s.video.Close()
	s.demux.Close()
}
