package modwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"acvp-tlskdf/kdftls"
)

// Server answers module requests with a local backend.
type Server struct {
	Backend kdftls.Backend
	// Hashes is returned verbatim by the capabilities method.
	Hashes []string
	Logger *zap.Logger
}

// Serve handles requests from rw until the peer closes the stream, ctx is
// done, or the framing breaks. A clean close returns nil. If rw is an
// io.Closer it is closed when ctx is done so a pending read returns, and
// Serve then reports ctx.Err().
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if c, ok := rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() {
			if err := c.Close(); err != nil {
				logger.Debug("Failed to close module stream", zap.Error(err))
			}
		})
		defer stop()
	}

	for served := 0; ; served++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		args, err := readMessage(rw)
		if err != nil && ctx.Err() != nil {
			logger.Debug("Module stream stopped", zap.Int("requests", served))
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			logger.Debug("Peer closed module stream", zap.Int("requests", served))
			return nil
		}
		if err != nil {
			return fmt.Errorf("module read: %w", err)
		}

		reply := s.handle(args)
		if err := writeMessage(rw, reply...); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("module write: %w", err)
		}
	}
}

func (s *Server) handle(args [][]byte) [][]byte {
	method := string(args[0])
	switch {
	case method == methodCapabilities:
		reply := [][]byte{[]byte(statusOK)}
		for _, h := range s.Hashes {
			reply = append(reply, []byte(h))
		}
		return reply
	case strings.HasPrefix(method, methodTLSKDFPrefix):
		return s.deriveTLS(strings.TrimPrefix(method, methodTLSKDFPrefix), args[1:])
	default:
		return errReply(kindInvalid, fmt.Sprintf("unknown method %q", method))
	}
}

func (s *Server) deriveTLS(hashName string, args [][]byte) [][]byte {
	if len(args) != 7 {
		return errReply(kindInvalid, fmt.Sprintf("TLSKDF takes 7 arguments, got %d", len(args)))
	}
	h, err := kdftls.ParseHash(hashName)
	if err != nil {
		return errReply(kindUnsupported, err.Error())
	}
	flags, ok := parseUint64(args[0])
	if !ok {
		return errReply(kindInvalid, "flags must be 8 bytes")
	}
	keyBlockBits, ok := parseUint32(args[1])
	if !ok {
		return errReply(kindInvalid, "key block length must be 4 bytes")
	}

	tc := &kdftls.TestCase{
		Hash:                h,
		PreMasterSecretBits: uint32(8 * len(args[2])),
		KeyBlockBits:        keyBlockBits,
		PreMasterSecret:     args[2],
		ClientHelloRandom:   args[3],
		ServerHelloRandom:   args[4],
		ClientRandom:        args[5],
		ServerRandom:        args[6],
	}
	defer clear(tc.PreMasterSecret)

	if err := tc.Validate(); err != nil {
		return errReply(kindInvalid, err.Error())
	}
	tc.MasterSecret = make([]byte, tc.MasterSecretLen())
	tc.KeyBlock = make([]byte, tc.KeyBlockLen())

	if err := s.Backend.DeriveTLS(tc, kdftls.Flags(flags)); err != nil {
		tc.ClearOutputs()
		return errReply(errorKind(err), err.Error())
	}
	return [][]byte{[]byte(statusOK), tc.MasterSecret, tc.KeyBlock}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, kdftls.ErrInvalidInput):
		return kindInvalid
	case errors.Is(err, kdftls.ErrUnsupportedHash):
		return kindUnsupported
	default:
		return kindInternal
	}
}

func errReply(kind, msg string) [][]byte {
	return [][]byte{[]byte(statusErr), []byte(kind), []byte(msg)}
}
