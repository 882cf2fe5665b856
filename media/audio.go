package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/njyeung/termvid/logs"
)

// bytesPerSample is one interleaved s16le stereo sample
const bytesPerSample = 4

// AudioFormat is the format of every extracted track
var AudioFormat = beep.Format{
	SampleRate:  beep.SampleRate(AudioSampleRate),
	NumChannels: 2,
	Precision:   2,
}

// AudioDecoder decodes the audio stream and resamples it to s16 stereo at
// AudioSampleRate. It implements beep.Streamer.
type AudioDecoder struct {
	demux    *Demuxer
	codecCtx *astiav.CodecContext
	swrCtx   *astiav.SoftwareResampleContext
	frame    *astiav.Frame
	log      zerolog.Logger

	// skipped counts packets and frames lost to decode or resample errors
	skipped int

	// pcm holds resampled bytes not yet streamed
	pcm     []byte
	flushed bool
	done    bool
	err     error
}

// NewAudioDecoder creates a decoder for the demuxer's audio stream
func NewAudioDecoder(demux *Demuxer) (*AudioDecoder, error) {
	params := demux.AudioCodecParameters()
	if params == nil {
		return nil, ErrNoAudioStream
	}

	a := &AudioDecoder{
		demux: demux,
		log:   logs.WithComponent("audio"),
		pcm:   make([]byte, 0, 192000), // ~1 second
	}

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("audio codec not found: %s", params.CodecID())
	}

	a.codecCtx = astiav.AllocCodecContext(codec)
	if a.codecCtx == nil {
		return nil, fmt.Errorf("failed to allocate audio codec context")
	}

	if err := params.ToCodecContext(a.codecCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to copy audio codec params: %w", err)
	}

	if err := a.codecCtx.Open(codec, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open audio codec: %w", err)
	}

	a.frame = astiav.AllocFrame()

	// configured from the first frame
	a.swrCtx = astiav.AllocSoftwareResampleContext()
	if a.swrCtx == nil {
		a.Close()
		return nil, fmt.Errorf("failed to allocate swr context")
	}

	return a, nil
}

// Stream fills samples from the decoded track
func (a *AudioDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if len(a.pcm) < bytesPerSample {
			if a.done {
				break
			}
			if err := a.decodeMore(); err != nil {
				if !errors.Is(err, io.EOF) {
					a.err = err
				}
				a.done = true
			}
			continue
		}

		k := decodeS16(a.pcm, samples[n:])
		a.pcm = a.pcm[k*bytesPerSample:]
		n += k
	}
	return n, n > 0
}

// skip records a packet or frame dropped on the way to pcm
func (a *AudioDecoder) skip(err error, pts int64, msg string) {
	a.skipped++
	a.log.Debug().Err(err).Int64("pts", pts).Int("skipped", a.skipped).Msg(msg + ", skipping")
}

// Skipped returns how many packets and frames were dropped as unreadable
func (a *AudioDecoder) Skipped() int {
	return a.skipped
}

// Err returns the error that ended the stream, if any
func (a *AudioDecoder) Err() error {
	return a.err
}

// decodeMore appends at least one resampled frame to pcm, or returns io.EOF
func (a *AudioDecoder) decodeMore() error {
	for {
		err := a.codecCtx.ReceiveFrame(a.frame)
		if err == nil {
			a.resample()
			return nil
		}
		if errors.Is(err, astiav.ErrEof) {
			return io.EOF
		}
		if !errors.Is(err, astiav.ErrEagain) {
			return fmt.Errorf("failed to receive audio frame: %w", err)
		}
		if a.flushed {
			return io.EOF
		}

		pkt, err := a.demux.ReadPacket(astiav.MediaTypeAudio)
		if errors.Is(err, io.EOF) {
			a.flushed = true
			if err := a.codecCtx.SendPacket(nil); err != nil {
				return fmt.Errorf("failed to flush audio decoder: %w", err)
			}
			continue
		}
		if err != nil {
			return err
		}

		// a corrupt packet costs a few milliseconds of sound, not the track
		if err := a.codecCtx.SendPacket(pkt); err != nil {
			a.skip(err, pkt.Pts(), "audio packet rejected")
		}
		pkt.Free()
	}
}

// resample converts the current frame and queues its bytes
func (a *AudioDecoder) resample() {
	defer a.frame.Unref()

	outFrame := astiav.AllocFrame()
	defer outFrame.Free()

	outFrame.SetSampleFormat(astiav.SampleFormatS16)
	outFrame.SetSampleRate(AudioSampleRate)
	outFrame.SetChannelLayout(astiav.ChannelLayoutStereo)

	// room for upsampling plus resampler delay
	nb := a.frame.NbSamples()
	if in := a.frame.SampleRate(); in > 0 {
		nb = nb*AudioSampleRate/in + 64
	}
	outFrame.SetNbSamples(nb)

	if err := outFrame.AllocBuffer(0); err != nil {
		a.skip(err, a.frame.Pts(), "audio buffer allocation failed")
		return
	}

	// skip frames that fail to resample instead of erroring
	if err := a.swrCtx.ConvertFrame(a.frame, outFrame); err != nil {
		a.skip(err, a.frame.Pts(), "audio resample failed")
		return
	}

	byteSize := outFrame.NbSamples() * bytesPerSample
	plane, err := outFrame.Data().Bytes(0)
	if err == nil && len(plane) < byteSize {
		err = fmt.Errorf("plane holds %d bytes, want %d", len(plane), byteSize)
	}
	if err != nil {
		a.skip(err, a.frame.Pts(), "audio plane unreadable")
		return
	}
	a.pcm = append(a.pcm, plane[:byteSize]...)
}

// Close releases all resources
func (a *AudioDecoder) Close() {
	if a.frame != nil {
		a.frame.Free()
		a.frame = nil
	}
	if a.swrCtx != nil {
		a.swrCtx.Free()
		a.swrCtx = nil
	}
	if a.codecCtx != nil {
		a.codecCtx.Free()
		a.codecCtx = nil
	}
}

// decodeS16 converts interleaved s16le stereo bytes into samples and returns
// how many samples were written
//
//	┌────┬────┬────┬────┬────┬─...
//	│ L0 │ L0 │ R0 │ R0 │ L1 │
//	│ lo │ hi │ lo │ hi │ lo │
//	└────┴────┴────┴────┴────┴─...
func decodeS16(buf []byte, samples [][2]float64) int {
	const maxInt16 = 32767
	n := min(len(samples), len(buf)/bytesPerSample)
	for i := 0; i < n; i++ {
		b := buf[i*bytesPerSample:]
		left := int16(b[0]) | int16(b[1])<<8
		right := int16(b[2]) | int16(b[3])<<8
		samples[i][0] = max(-1, float64(left)/maxInt16)
		samples[i][1] = max(-1, float64(right)/maxInt16)
	}
	return n
}

// ctxStreamer ends a stream early once ctx is done
type ctxStreamer struct {
	ctx context.Context
	s   beep.Streamer
}

func (c *ctxStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.ctx.Err() != nil {
		return 0, false
	}
	return c.s.Stream(samples)
}

func (c *ctxStreamer) Err() error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	return c.s.Err()
}

// ExtractAudio decodes the audio track of the video at path into a WAV file
// at out. It returns ErrNoAudioStream if the video is silent.
func ExtractAudio(ctx context.Context, path, out string) error {
	demux, err := OpenDemuxer(path)
	if err != nil {
		return err
	}
	defer demux.Close()

	if !demux.HasAudio() {
		return ErrNoAudioStream
	}

	dec, err := NewAudioDecoder(demux)
	if err != nil {
		return err
	}
	defer dec.Close()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	s := &ctxStreamer{ctx: ctx, s: dec}
	if err := wav.Encode(f, s, AudioFormat); err != nil {
		f.Close()
		os.Remove(out)
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := s.Err(); err != nil {
		f.Close()
		os.Remove(out)
		return fmt.Errorf("failed to decode audio: %w", err)
	}
	if n := dec.Skipped(); n > 0 {
		dec.log.Warn().Int("skipped", n).Str("video", path).Msg("audio track had unreadable packets")
	}
	return f.Close()
}
