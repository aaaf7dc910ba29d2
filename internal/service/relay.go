package service

import (
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ErrorChunkPrefix starts the single chunk written when generation fails.
const ErrorChunkPrefix = "[ERROR] "

// ChunkWriter is the client side of a chat relay. Transports implement it
// over a chunked HTTP body or a websocket.
type ChunkWriter interface {
	// WriteChunk sends one chunk and flushes it.
	WriteChunk(chunk string) error
	// Close ends the stream. The relay calls it exactly once.
	Close() error
}

// relay writes upstream tokens to a ChunkWriter one character per chunk.
// After the first write failure it stops writing but keeps accepting
// tokens, so the upstream is drained.
type relay struct {
	w     ChunkWriter
	delay time.Duration
	log   zerolog.Logger

	chars  int
	broken bool
	closed bool
}

func newRelay(w ChunkWriter, delay time.Duration, log zerolog.Logger) *relay {
	return &relay{w: w, delay: delay, log: log}
}

// emit splits token into characters. Invalid UTF-8 bytes are passed
// through one at a time so the byte sequence is preserved.
func (r *relay) emit(token string) {
	for len(token) > 0 {
		_, size := utf8.DecodeRuneInString(token)
		r.write(token[:size])
		token = token[size:]
	}
}

func (r *relay) write(chunk string) {
	if r.broken || r.closed {
		return
	}
	if err := r.w.WriteChunk(chunk); err != nil {
		r.broken = true
		r.log.Warn().Err(err).Int("chars", r.chars).Msg("client write failed, draining upstream")
		return
	}
	r.chars++
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
}

// fail writes the error chunk.
func (r *relay) fail(err error) {
	if r.broken || r.closed {
		return
	}
	if werr := r.w.WriteChunk(ErrorChunkPrefix + err.Error()); werr != nil {
		r.broken = true
		r.log.Warn().Err(werr).Msg("client write failed while reporting error")
	}
}

func (r *relay) close() {
	if r.closed {
		return
	}
	r.closed = true
	if err := r.w.Close(); err != nil && !r.broken {
		r.log.Debug().Err(err).Msg("close client stream")
	}
}
