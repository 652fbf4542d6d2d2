package capture

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"fluxvoice/encoder"
	"fluxvoice/log"
)

// captureRate is what we ask the device layer for; the recording is
// resampled down to encoder.SampleRate before upload.
const (
	captureRate     = 48000
	captureChannels = 1
	levelWindow     = 1000 // samples considered by Level
)

// MalgoRecorder captures from the default input device via miniaudio.
type MalgoRecorder struct {
	mu        sync.Mutex
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	buf       []int16
	recording bool
}

func NewMalgoRecorder() (*MalgoRecorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &MalgoRecorder{ctx: ctx}, nil
}

func (r *MalgoRecorder) Begin(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	r.buf = r.buf[:0]

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = captureChannels
	deviceConfig.SampleRate = captureRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			r.appendSamples(data)
		},
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture: %w", err)
	}

	r.device = device
	r.recording = true
	return nil
}

func (r *MalgoRecorder) appendSamples(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		r.buf = append(r.buf, int16(uint16(data[i])|uint16(data[i+1])<<8))
	}
}

// Level returns the RMS of the most recent samples scaled into [0,1].
func (r *MalgoRecorder) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rmsLevel(r.buf)
}

// End stops the device and returns the recording as 16kHz mono WAV.
// Recorder state is reset before any error is reported.
func (r *MalgoRecorder) End(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	device := r.device
	wasRecording := r.recording
	samples := r.buf
	r.device = nil
	r.buf = nil
	r.recording = false
	r.mu.Unlock()

	if device != nil {
		device.Stop()
		device.Uninit()
	}
	if !wasRecording {
		return nil, ErrNotRecording
	}

	log.Info(fmt.Sprintf("recording stopped: %d samples at %d Hz", len(samples), captureRate))
	resampled := resample(samples, captureRate, encoder.SampleRate)
	return encoder.WAV(resampled), nil
}

func (r *MalgoRecorder) Close() {
	r.mu.Lock()
	device := r.device
	r.device = nil
	r.recording = false
	r.mu.Unlock()

	if device != nil {
		device.Stop()
		device.Uninit()
	}
	r.ctx.Uninit()
	r.ctx.Free()
}

func rmsLevel(samples []int16) float64 {
	n := min(len(samples), levelWindow)
	if n == 0 {
		return 0
	}
	recent := samples[len(samples)-n:]
	var sumSquares float64
	for _, s := range recent {
		v := float64(s) / 32768.0
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(n))
	return math.Min(rms*10, 1.0)
}

// resample converts between rates with linear interpolation.
func resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outputLen := int(float64(len(samples)) / ratio)
	output := make([]int16, 0, outputLen)

	for i := 0; i < outputLen; i++ {
		srcIdx := float64(i) * ratio
		idxFloor := int(srcIdx)
		idxCeil := min(idxFloor+1, len(samples)-1)
		frac := srcIdx - float64(idxFloor)

		sample := float64(samples[idxFloor])*(1-frac) + float64(samples[idxCeil])*frac
		output = append(output, int16(sample))
	}
	return output
}
