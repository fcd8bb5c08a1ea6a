// Package modwrap runs TLS PRF test cases in a separate module process.
//
// Both directions use the same framing, with every integer big-endian:
//
//	uint32 argc
//	argc times: uint32 length, length bytes
//
// A request's first argument names the method. Replies start with "ok" or
// "err"; an error reply carries a kind and a message.
package modwrap

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
)

const (
	maxArgs   = 16
	maxArgLen = 1 << 20
)

// Reply status words
const (
	statusOK  = "ok"
	statusErr = "err"
)

// Error kinds carried in "err" replies
const (
	kindInvalid     = "invalid"
	kindUnsupported = "unsupported"
	kindInternal    = "internal"
)

// errMalformed reports framing that violates the limits above.
var errMalformed = errors.New("malformed message")

func encodeMessage(args ...[]byte) ([]byte, error) {
	if len(args) > maxArgs {
		return nil, fmt.Errorf("%w: %d arguments", errMalformed, len(args))
	}
	var b cryptobyte.Builder
	b.AddUint32(uint32(len(args)))
	for i, arg := range args {
		if len(arg) > maxArgLen {
			return nil, fmt.Errorf("%w: argument %d is %d bytes", errMalformed, i, len(arg))
		}
		b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(arg)
		})
	}
	return b.Bytes()
}

// writeMessage writes nothing when args break the framing limits.
func writeMessage(w io.Writer, args ...[]byte) error {
	msg, err := encodeMessage(args...)
	if err != nil {
		return err
	}
	_, err = w.Write(msg)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	var v uint32
	s := cryptobyte.String(buf[:])
	s.ReadUint32(&v)
	return v, nil
}

// readMessage returns io.EOF only when the stream ends cleanly before a new
// message starts.
func readMessage(r io.Reader) ([][]byte, error) {
	argc, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if argc == 0 || argc > maxArgs {
		return nil, fmt.Errorf("%w: %d arguments", errMalformed, argc)
	}

	args := make([][]byte, argc)
	for i := range args {
		n, err := readUint32(r)
		if err != nil {
			return nil, unexpected(err)
		}
		if n > maxArgLen {
			return nil, fmt.Errorf("%w: argument %d is %d bytes", errMalformed, i, n)
		}
		args[i] = make([]byte, n)
		if _, err := io.ReadFull(r, args[i]); err != nil {
			return nil, unexpected(err)
		}
	}
	return args, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func uint64Arg(v uint64) []byte {
	var b cryptobyte.Builder
	b.AddUint64(v)
	return b.BytesOrPanic()
}

func uint32Arg(v uint32) []byte {
	var b cryptobyte.Builder
	b.AddUint32(v)
	return b.BytesOrPanic()
}

func parseUint64(arg []byte) (uint64, bool) {
	var v uint64
	s := cryptobyte.String(arg)
	return v, s.ReadUint64(&v) && s.Empty()
}

func parseUint32(arg []byte) (uint32, bool) {
	var v uint32
	s := cryptobyte.String(arg)
	return v, s.ReadUint32(&v) && s.Empty()
}
