// ABOUTME: MP3 file block source
// ABOUTME: Decodes a file into timestamped 16-bit stereo blocks
package source

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/mediafold/renderwave/pkg/audio"
)

// MP3File decodes an mp3 file into a chain of decoded sample blocks.
// go-mp3 always emits 16-bit stereo, which is the engine's fixed format.
type MP3File struct {
	file    *os.File
	decoder *mp3.Decoder
	format  audio.Format
	clock   time.Duration
}

// OpenMP3 opens a file for block-wise decoding.
func OpenMP3(path string) (*MP3File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3: %w", err)
	}

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	format, err := audio.NewFormat(decoder.SampleRate())
	if err != nil {
		file.Close()
		return nil, err
	}

	return &MP3File{file: file, decoder: decoder, format: format}, nil
}

// Format returns the stream's wave format.
func (s *MP3File) Format() audio.Format { return s.format }

// Duration returns the total decoded length.
func (s *MP3File) Duration() time.Duration {
	return s.format.DurationFor(int(s.decoder.Length()))
}

// NextBlock decodes approximately d worth of audio into one block.
// It returns nil at end of stream.
func (s *MP3File) NextBlock(d time.Duration) (*audio.Block, error) {
	want := s.format.BytesFor(d)
	data := make([]byte, want)

	n, err := io.ReadFull(s.decoder, data)
	if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
		return nil, nil
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	n = s.format.AlignToFrame(n)
	if n == 0 {
		return nil, nil
	}

	block := audio.NewBlock(s.clock, data[:n])
	s.clock += s.format.DurationFor(n)
	return block, nil
}

// Close releases the underlying file.
func (s *MP3File) Close() error {
	return s.file.Close()
}
