package main

import (
	"crypto"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"acvp-tlskdf/acvp"
	"acvp-tlskdf/kdftls"
	"acvp-tlskdf/modwrap"
	"acvp-tlskdf/prf"
	"acvp-tlskdf/registry"
	"acvp-tlskdf/shared"
)

var errTestsFailed = errors.New("one or more test cases failed")

type backendOptions struct {
	backend    string
	modulePath string
	flags      []string
}

func (o *backendOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "backend", "", "backend to register: builtin or module (overrides ACVP_BACKEND)")
	cmd.Flags().StringVar(&o.modulePath, "module-path", "", "module executable for the module backend (overrides ACVP_MODULE_PATH)")
	cmd.Flags().StringSliceVar(&o.flags, "flag", nil, "backend flag names, e.g. hello-randoms (overrides ACVP_FLAGS)")
}

// setup registers the selected backend and returns the parsed flags plus a
// cleanup function for module processes.
func (o *backendOptions) setup(cmd *cobra.Command, a *app, r *registry.Registry) (kdftls.Flags, func(), error) {
	cfg := *a.cfg
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.modulePath != "" {
		cfg.ModulePath = o.modulePath
	}
	if len(o.flags) > 0 {
		cfg.Flags = o.flags
	}
	if err := cfg.Validate(); err != nil {
		return 0, nil, err
	}

	flags, err := kdftls.ParseFlags(cfg.Flags)
	if err != nil {
		return 0, nil, err
	}

	switch cfg.Backend {
	case shared.BackendModule:
		proc, err := modwrap.Start(cmd.Context(), a.zlog(), cfg.ModulePath)
		if err != nil {
			return 0, nil, err
		}
		kdftls.Register(r, proc)
		return flags, func() {
			if err := proc.Close(); err != nil {
				a.zlog().Warn("Module did not exit cleanly", zap.Error(err))
			}
		}, nil
	default:
		kdftls.Register(r, prf.New())
		return flags, func() {}, nil
	}
}

func newRunCommand(a *app) *cobra.Command {
	var (
		opts     backendOptions
		expected string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "run VECTOR_SET",
		Short: "Process a vector set and write the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			r := registry.New(a.zlog())
			flags, cleanup, err := opts.setup(cmd, a, r)
			if err != nil {
				return err
			}
			defer cleanup()

			h := acvp.NewHarness(a.zlog())
			acvp.RegisterTLSKDF(h, kdftls.NewDispatcher(r, a.zlog()), flags, a.zlog())

			result, err := h.Run(doc)
			if err != nil {
				return err
			}
			encoded, err := result.Encode()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			} else if err := os.WriteFile(output, append(encoded, '\n'), 0o644); err != nil {
				return err
			}

			for _, f := range result.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL tg %d tc %d: %s\n", f.GroupID, f.TestID, f.Err)
			}

			failed := len(result.Failures) > 0
			if expected != "" {
				want, err := os.ReadFile(expected)
				if err != nil {
					return err
				}
				report, err := acvp.Compare(encoded, want)
				if err != nil {
					return err
				}
				for _, m := range report.Mismatches {
					fmt.Fprintf(cmd.ErrOrStderr(), "MISMATCH tg %d tc %d: %s\n", m.GroupID, m.TestID, m.Field)
				}
				for _, m := range report.Missing {
					fmt.Fprintf(cmd.ErrOrStderr(), "MISSING tg %d tc %d\n", m.GroupID, m.TestID)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d passed, %d mismatched, %d missing\n",
					report.Passed, len(report.Mismatches), len(report.Missing))
				failed = failed || !report.OK()
			}

			if failed {
				return errTestsFailed
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&expected, "expected", "", "expected-results document to compare against")
	cmd.Flags().StringVarP(&output, "output", "o", "", "response file (default stdout)")
	return cmd
}

func newDeriveCommand(a *app) *cobra.Command {
	var (
		opts         backendOptions
		hashName     string
		keyBlockBits uint32
		pmsHex       string
		crHex, srHex string
		chrHex       string
		shrHex       string
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the master secret and key block for one set of inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := kdftls.ParseHash(hashName)
			if err != nil {
				return err
			}

			tc := &kdftls.TestCase{Hash: h, KeyBlockBits: keyBlockBits}
			for _, f := range []struct {
				name string
				hex  string
				dst  *[]byte
			}{
				{"pre-master-secret", pmsHex, &tc.PreMasterSecret},
				{"client-random", crHex, &tc.ClientRandom},
				{"server-random", srHex, &tc.ServerRandom},
				{"client-hello-random", chrHex, &tc.ClientHelloRandom},
				{"server-hello-random", shrHex, &tc.ServerHelloRandom},
			} {
				if *f.dst, err = hex.DecodeString(f.hex); err != nil {
					return fmt.Errorf("--%s: %w", f.name, err)
				}
			}
			tc.PreMasterSecretBits = uint32(8 * len(tc.PreMasterSecret))

			r := registry.New(a.zlog())
			flags, cleanup, err := opts.setup(cmd, a, r)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := kdftls.NewDispatcher(r, a.zlog()).Dispatch(tc, flags); err != nil {
				return err
			}

			out, err := json.MarshalIndent(map[string]string{
				"hashAlg":      kdftls.HashName(tc.Hash),
				"masterSecret": hex.EncodeToString(tc.MasterSecret),
				"keyBlock":     hex.EncodeToString(tc.KeyBlock),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&hashName, "hash", kdftls.HashName(crypto.SHA256), "ACVP hash name (SHA-1 selects the TLS 1.0/1.1 PRF)")
	cmd.Flags().Uint32Var(&keyBlockBits, "key-block-bits", 1024, "key block length in bits")
	cmd.Flags().StringVar(&pmsHex, "pre-master-secret", "", "pre-master secret (hex)")
	cmd.Flags().StringVar(&crHex, "client-random", "", "client random (hex)")
	cmd.Flags().StringVar(&srHex, "server-random", "", "server random (hex)")
	cmd.Flags().StringVar(&chrHex, "client-hello-random", "", "client hello random (hex)")
	cmd.Flags().StringVar(&shrHex, "server-hello-random", "", "server hello random (hex)")
	return cmd
}

func newBackendsCommand(a *app) *cobra.Command {
	var opts backendOptions

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Show the registered backend, its hashes and the handled vector sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := registry.New(a.zlog())
			_, cleanup, err := opts.setup(cmd, a, r)
			if err != nil {
				return err
			}
			defer cleanup()

			backend, err := registry.Lookup[kdftls.Backend](r, kdftls.Family)
			if err != nil {
				return err
			}

			var hashes []string
			if m, ok := backend.(interface{ Capabilities() ([]string, error) }); ok {
				if hashes, err = m.Capabilities(); err != nil {
					return err
				}
			} else {
				for _, h := range prf.Hashes() {
					hashes = append(hashes, kdftls.HashName(h))
				}
			}

			h := acvp.NewHarness(a.zlog())
			acvp.RegisterTLSKDF(h, kdftls.NewDispatcher(r, a.zlog()), 0, a.zlog())

			out := cmd.OutOrStdout()
			for _, f := range r.Families() {
				fmt.Fprintf(out, "family %s: %T\n", f, backend)
			}
			fmt.Fprintf(out, "hashes: %v\n", hashes)
			fmt.Fprintf(out, "vector sets: %v\n", h.Algorithms())
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}
