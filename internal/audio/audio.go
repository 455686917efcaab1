package audio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/youpy/go-wav"

	"github.com/kottz/cgex/internal/services"
)

// Result is a validated sound member. Data is the input byte stream, unchanged.
type Result struct {
	Data          []byte
	Channels      int
	SampleRate    int
	BitsPerSample int
	Duration      time.Duration
}

// Process validates a RIFF/WAVE member and passes it through. Anything the
// header parser rejects, or a stream without playable data, is reported as
// services.ErrCorruptAudio.
func Process(raw []byte) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = corrupt(fmt.Sprintf("parser panic: %v", r), nil)
		}
	}()

	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return Result{}, corrupt("missing RIFF/WAVE header", nil)
	}
	reader := wav.NewReader(bytes.NewReader(raw))
	format, err := reader.Format()
	if err != nil {
		return Result{}, corrupt("read format chunk", err)
	}
	switch {
	case format.NumChannels == 0:
		return Result{}, corrupt("zero channels", nil)
	case format.SampleRate == 0:
		return Result{}, corrupt("zero sample rate", nil)
	case format.BlockAlign == 0:
		return Result{}, corrupt("zero block align", nil)
	case format.ByteRate == 0:
		return Result{}, corrupt("zero byte rate", nil)
	}
	duration, err := reader.Duration()
	if err != nil {
		return Result{}, corrupt("read data chunk", err)
	}
	if duration <= 0 {
		return Result{}, corrupt("no sample data", nil)
	}
	return Result{
		Data:          raw,
		Channels:      int(format.NumChannels),
		SampleRate:    int(format.SampleRate),
		BitsPerSample: int(format.BitsPerSample),
		Duration:      duration,
	}, nil
}

func corrupt(message string, err error) error {
	return services.Wrap(services.ErrCorruptAudio, "audio", "validate", message, err)
}
