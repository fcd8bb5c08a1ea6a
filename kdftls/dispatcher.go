package kdftls

import (
	"fmt"

	"go.uber.org/zap"

	"acvp-tlskdf/registry"
)

// Dispatcher routes test cases to the backend registered for Family.
type Dispatcher struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewDispatcher returns a dispatcher reading backends from r.
func NewDispatcher(r *registry.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: r, logger: logger.Named("kdftls")}
}

// Dispatch validates tc, sizes its outputs and runs the registered backend.
//
// On success tc.MasterSecret holds len(tc.PreMasterSecret) bytes and
// tc.KeyBlock holds tc.KeyBlockBits/8 bytes. On any failure both outputs are
// zeroed and set to nil.
func (d *Dispatcher) Dispatch(tc *TestCase, flags Flags) error {
	backend, err := registry.Lookup[Backend](d.registry, Family)
	if err != nil {
		return fmt.Errorf("test case %d: %w", tc.ID, err)
	}

	if err := tc.Validate(); err != nil {
		d.logger.Debug("Rejected test case", zap.Uint64("tc_id", tc.ID), zap.Error(err))
		return fmt.Errorf("test case %d: %w", tc.ID, err)
	}

	tc.MasterSecret = make([]byte, tc.MasterSecretLen())
	tc.KeyBlock = make([]byte, tc.KeyBlockLen())

	if err := backend.DeriveTLS(tc, flags); err != nil {
		tc.ClearOutputs()
		d.logger.Debug("Backend failed",
			zap.Uint64("tc_id", tc.ID),
			zap.String("hash", HashName(tc.Hash)),
			zap.Error(err))
		return fmt.Errorf("test case %d: %w", tc.ID, err)
	}

	if len(tc.MasterSecret) != tc.MasterSecretLen() || len(tc.KeyBlock) != tc.KeyBlockLen() {
		got, gotKB := len(tc.MasterSecret), len(tc.KeyBlock)
		tc.ClearOutputs()
		return fmt.Errorf("test case %d: %w: master secret %d/%d bytes, key block %d/%d bytes",
			tc.ID, ErrOutputLength, got, tc.MasterSecretLen(), gotKB, tc.KeyBlockLen())
	}

	d.logger.Debug("Derived key material",
		zap.Uint64("tc_id", tc.ID),
		zap.String("hash", HashName(tc.Hash)),
		zap.Uint32("key_block_bits", tc.KeyBlockBits),
		zap.Uint64("flags", uint64(flags)))
	return nil
}
