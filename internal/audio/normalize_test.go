package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writePCMWAV writes interleaved 16-bit PCM data to a WAV file.
func writePCMWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// fakeDecoder returns a canned buffer or error and records calls.
type fakeDecoder struct {
	buf   *goaudio.IntBuffer
	err   error
	calls []string
}

func (d *fakeDecoder) Decode(_ context.Context, path string) (*goaudio.IntBuffer, error) {
	d.calls = append(d.calls, path)
	return d.buf, d.err
}

func TestLoadAtTargetRateIsPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono16k.wav")
	data := []int{0, 16384, -16384, 32767, -32768, 100}
	writePCMWAV(t, path, 16000, 1, data)

	n := NewNormalizer(nil, 16000, MixAverage)
	sig, err := n.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if sig.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", sig.SampleRate)
	}
	if len(sig.Samples) != len(data) {
		t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), len(data))
	}
	for i, v := range data {
		want := float32(float64(v) / 32768)
		if sig.Samples[i] != want {
			t.Errorf("Samples[%d] = %v, want %v", i, sig.Samples[i], want)
		}
	}
}

func TestLoadStereoIsCollapsed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo16k.wav")
	// L/R frames: (1000, 3000), (-2000, 2000), (0, 500)
	data := []int{1000, 3000, -2000, 2000, 0, 500}
	writePCMWAV(t, path, 16000, 2, data)

	tests := []struct {
		name string
		mix  Mix
		want []float32
	}{
		{"average", MixAverage, []float32{2000.0 / 32768, 0, 250.0 / 32768}},
		{"first", MixFirst, []float32{1000.0 / 32768, -2000.0 / 32768, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewNormalizer(nil, 16000, tt.mix).Load(context.Background(), path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(sig.Samples) != len(tt.want) {
				t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), len(tt.want))
			}
			for i := range tt.want {
				if sig.Samples[i] != tt.want[i] {
					t.Errorf("Samples[%d] = %v, want %v", i, sig.Samples[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadResamplesToTarget(t *testing.T) {
	tests := []struct {
		rate     int
		channels int
	}{
		{44100, 1},
		{48000, 2},
		{8000, 1},
		{22050, 2},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "in.wav")
		frames := tt.rate / 2
		data := make([]int, frames*tt.channels)
		for i := range data {
			data[i] = (i % 200) * 50
		}
		writePCMWAV(t, path, tt.rate, tt.channels, data)

		sig, err := NewNormalizer(nil, 16000, MixAverage).Load(context.Background(), path)
		if err != nil {
			t.Fatalf("Load(%d Hz) error = %v", tt.rate, err)
		}
		if sig.SampleRate != 16000 {
			t.Errorf("Load(%d Hz) SampleRate = %d, want 16000", tt.rate, sig.SampleRate)
		}
		if len(sig.Samples) != 8000 {
			t.Errorf("Load(%d Hz) len(Samples) = %d, want 8000", tt.rate, len(sig.Samples))
		}
	}
}

func TestLoadReusesResamplerPerRate(t *testing.T) {
	dec := &fakeDecoder{buf: &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           make([]int, 441),
		SourceBitDepth: 16,
	}}
	n := NewNormalizer(dec, 16000, MixAverage)

	for i := 0; i < 3; i++ {
		if _, err := n.Load(context.Background(), "clip.mp3"); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	if len(n.resamplers) != 1 {
		t.Errorf("resamplers = %d, want 1", len(n.resamplers))
	}
	if r := n.resamplers[44100]; r == nil || r.From() != 44100 || r.To() != 16000 {
		t.Errorf("resampler for 44100 = %+v", r)
	}
}

func TestLoadNonWAVUsesExternal(t *testing.T) {
	dec := &fakeDecoder{buf: &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           []int{1, 2, 3},
		SourceBitDepth: 16,
	}}
	n := NewNormalizer(dec, 16000, MixAverage)

	if _, err := n.Load(context.Background(), "/clips/a.flac"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(dec.calls) != 1 || dec.calls[0] != "/clips/a.flac" {
		t.Errorf("external decoder calls = %v, want [/clips/a.flac]", dec.calls)
	}
}

func TestLoadNonWAVWithoutExternalFails(t *testing.T) {
	_, err := NewNormalizer(nil, 16000, MixAverage).Load(context.Background(), "a.mp3")
	if !errors.Is(err, ErrNoDecoder) {
		t.Fatalf("Load() error = %v, want ErrNoDecoder", err)
	}
}

func TestLoadCorruptWAVFallsBackToExternal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("not a riff file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	dec := &fakeDecoder{err: errors.New("ffmpeg: invalid data")}

	_, err := NewNormalizer(dec, 16000, MixAverage).Load(context.Background(), path)
	if err == nil {
		t.Fatal("Load() on corrupt file should fail")
	}
	if len(dec.calls) != 1 {
		t.Errorf("external decoder calls = %d, want 1", len(dec.calls))
	}
}

func TestLoadCorruptWAVWithoutExternal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewNormalizer(nil, 16000, MixAverage).Load(context.Background(), path); err == nil {
		t.Fatal("Load() on truncated WAV should fail")
	}
}

// writeFloatExtensibleWAV writes mono 32-bit IEEE float samples using a
// WAVE_FORMAT_EXTENSIBLE header with the float subformat GUID.
func writeFloatExtensibleWAV(t *testing.T, path string, rate int, samples []float32) {
	t.Helper()
	floatGUID := []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}
	dataSize := uint32(len(samples) * 4)

	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("RIFF")
	_ = binary.Write(&b, le, uint32(4+8+40+8)+dataSize)
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, le, uint32(40))
	_ = binary.Write(&b, le, uint16(0xFFFE)) // format tag
	_ = binary.Write(&b, le, uint16(1))      // channels
	_ = binary.Write(&b, le, uint32(rate))
	_ = binary.Write(&b, le, uint32(rate*4)) // byte rate
	_ = binary.Write(&b, le, uint16(4))      // block align
	_ = binary.Write(&b, le, uint16(32))     // bits per sample
	_ = binary.Write(&b, le, uint16(22))     // extension size
	_ = binary.Write(&b, le, uint16(32))     // valid bits
	_ = binary.Write(&b, le, uint32(4))      // channel mask: front center
	b.Write(floatGUID)
	b.WriteString("data")
	_ = binary.Write(&b, le, dataSize)
	_ = binary.Write(&b, le, samples)

	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFloatExtensibleWAVUsesExternal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	writeFloatExtensibleWAV(t, path, 16000, sineWave(440, 16000, 1600))

	decoded := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           []int{0, 1000, -1000, 2000},
		SourceBitDepth: 16,
	}
	dec := &fakeDecoder{buf: decoded}

	sig, err := NewNormalizer(dec, 16000, MixAverage).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(dec.calls) != 1 {
		t.Fatalf("external decoder calls = %d, want 1", len(dec.calls))
	}
	if len(sig.Samples) != len(decoded.Data) {
		t.Fatalf("samples = %d, want %d from external decoder", len(sig.Samples), len(decoded.Data))
	}
	for i, v := range sig.Samples {
		if v < -1 || v > 1 {
			t.Errorf("sample %d = %v, outside [-1, 1]", i, v)
		}
	}
}

func TestLoadFloatExtensibleWAVWithoutExternal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	writeFloatExtensibleWAV(t, path, 16000, sineWave(440, 16000, 1600))

	_, err := NewNormalizer(nil, 16000, MixAverage).Load(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedWAV) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedWAV", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewNormalizer(nil, 16000, MixAverage).Load(context.Background(), "/nonexistent/a.wav")
	if err == nil {
		t.Fatal("Load() on missing file should fail")
	}
}

func TestLoadEmptyAudio(t *testing.T) {
	dec := &fakeDecoder{buf: &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
	}}

	_, err := NewNormalizer(dec, 16000, MixAverage).Load(context.Background(), "silent.mp3")
	if !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("Load() error = %v, want ErrEmptyAudio", err)
	}
}

func TestToMonoBitDepths(t *testing.T) {
	tests := []struct {
		depth int
		in    int
		want  float32
	}{
		{8, 128, 0},
		{8, 0, -1},
		{16, -32768, -1},
		{24, 4194304, 0.5},
		{32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
			Data:           []int{tt.in},
			SourceBitDepth: tt.depth,
		}
		got, err := toMono(buf, MixAverage)
		if err != nil {
			t.Fatalf("toMono(%d-bit) error = %v", tt.depth, err)
		}
		if got[0] != tt.want {
			t.Errorf("toMono(%d-bit, %d) = %v, want %v", tt.depth, tt.in, got[0], tt.want)
		}
	}

	_, err := toMono(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1},
		Data:           []int{1},
		SourceBitDepth: 12,
	}, MixAverage)
	if err == nil {
		t.Error("toMono with 12-bit depth should fail")
	}
}

func TestParseMix(t *testing.T) {
	if m, err := ParseMix("first"); err != nil || m != MixFirst {
		t.Errorf("ParseMix(first) = %v, %v", m, err)
	}
	if m, err := ParseMix("average"); err != nil || m != MixAverage {
		t.Errorf("ParseMix(average) = %v, %v", m, err)
	}
	if _, err := ParseMix("sum"); err == nil {
		t.Error("ParseMix(sum) should fail")
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	in := Signal{Samples: []float32{0, 0.5, -0.5, 1, -1, 2}, SampleRate: 16000}

	if err := WriteWAVFile(path, in); err != nil {
		t.Fatalf("WriteWAVFile() error = %v", err)
	}

	buf, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile() error = %v", err)
	}
	if buf.Format.SampleRate != 16000 || buf.Format.NumChannels != 1 {
		t.Errorf("format = %+v, want 16000 Hz mono", *buf.Format)
	}
	want := []int{0, 16384, -16384, 32767, -32767, 32767} // last sample clipped
	if len(buf.Data) != len(want) {
		t.Fatalf("len(Data) = %d, want %d", len(buf.Data), len(want))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("Data[%d] = %d, want %d", i, buf.Data[i], want[i])
		}
	}
}

func TestWriteWAVRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WriteWAVFile(path, Signal{SampleRate: 16000}); err == nil {
		t.Error("WriteWAVFile() with no samples should fail")
	}
}
