package modwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"acvp-tlskdf/kdftls"
)

const (
	methodCapabilities = "capabilities"
	methodTLSKDFPrefix = "TLSKDF/"
)

// ErrBroken is returned for every request after the stream to the module
// failed mid-message.
var ErrBroken = errors.New("module stream broken")

// Backend forwards test cases to a module over rw. Requests are serialised,
// so a Backend is safe for concurrent use.
type Backend struct {
	mu sync.Mutex
	rw io.ReadWriter
	// broken holds the error that left rw out of sync.
	broken error
}

var _ kdftls.Backend = (*Backend)(nil)

// NewBackend returns a Backend speaking the module protocol over rw.
func NewBackend(rw io.ReadWriter) *Backend {
	return &Backend{rw: rw}
}

func (b *Backend) transact(args ...[]byte) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroken, b.broken)
	}

	msg, err := encodeMessage(args...)
	if err != nil {
		return nil, fmt.Errorf("module request: %w", err)
	}
	if _, err := b.rw.Write(msg); err != nil {
		b.broken = err
		return nil, fmt.Errorf("module write: %w", err)
	}
	reply, err := readMessage(b.rw)
	if err != nil {
		b.broken = unexpected(err)
		return nil, fmt.Errorf("module read: %w", b.broken)
	}

	switch string(reply[0]) {
	case statusOK:
		return reply[1:], nil
	case statusErr:
		if len(reply) != 3 {
			return nil, fmt.Errorf("module reply: %w", errMalformed)
		}
		return nil, remoteError(string(reply[1]), string(reply[2]))
	default:
		return nil, fmt.Errorf("module reply: %w: status %q", errMalformed, reply[0])
	}
}

func remoteError(kind, msg string) error {
	switch kind {
	case kindInvalid:
		return fmt.Errorf("module: %w: %s", kdftls.ErrInvalidInput, msg)
	case kindUnsupported:
		return fmt.Errorf("module: %w: %s", kdftls.ErrUnsupportedHash, msg)
	default:
		return fmt.Errorf("module: %s", msg)
	}
}

// Capabilities returns the hash names the module serves.
func (b *Backend) Capabilities() ([]string, error) {
	reply, err := b.transact([]byte(methodCapabilities))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(reply))
	for i, r := range reply {
		names[i] = string(r)
	}
	return names, nil
}

// DeriveTLS sends tc to the module and copies the reply into its outputs.
// The outputs are only written once the module has returned both values at
// the expected lengths.
func (b *Backend) DeriveTLS(tc *kdftls.TestCase, flags kdftls.Flags) error {
	if tc.MasterSecretLen() > maxArgLen || tc.KeyBlockLen() > maxArgLen {
		return fmt.Errorf("module: %w: outputs of %d and %d bytes exceed the %d byte message limit",
			kdftls.ErrInvalidInput, tc.MasterSecretLen(), tc.KeyBlockLen(), maxArgLen)
	}
	reply, err := b.transact(
		[]byte(methodTLSKDFPrefix+kdftls.HashName(tc.Hash)),
		uint64Arg(uint64(flags)),
		uint32Arg(tc.KeyBlockBits),
		tc.PreMasterSecret,
		tc.ClientHelloRandom,
		tc.ServerHelloRandom,
		tc.ClientRandom,
		tc.ServerRandom,
	)
	if err != nil {
		return err
	}
	if len(reply) != 2 {
		return fmt.Errorf("module reply: %w: %d values", errMalformed, len(reply))
	}
	if len(reply[0]) != len(tc.MasterSecret) || len(reply[1]) != len(tc.KeyBlock) {
		return fmt.Errorf("module: %w", kdftls.ErrOutputLength)
	}
	copy(tc.MasterSecret, reply[0])
	copy(tc.KeyBlock, reply[1])
	clear(reply[0])
	return nil
}

// Process is a running module subprocess.
type Process struct {
	*Backend
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger
}

// Start launches the module at path and connects a Backend to its stdin and
// stdout. The module's stderr is passed through.
func Start(ctx context.Context, logger *zap.Logger, path string, args ...string) (*Process, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("module stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("module stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start module %s: %w", path, err)
	}
	logger.Info("Started module", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))

	rw := struct {
		io.Reader
		io.Writer
	}{stdout, stdin}

	return &Process{
		Backend: NewBackend(rw),
		cmd:     cmd,
		stdin:   stdin,
		logger:  logger,
	}, nil
}

// Close ends the session by closing the module's stdin and waits for it to
// exit.
func (p *Process) Close() error {
	closeErr := p.stdin.Close()
	waitErr := p.cmd.Wait()
	p.logger.Info("Module exited", zap.Error(waitErr))
	return errors.Join(closeErr, waitErr)
}
