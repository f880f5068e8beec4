package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/errors"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/pgp"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/quarantine"
	"github.com/ZebulonRouseFrantzich/pgp-cp/internal/testutil"
)

// fakeEngine implements pgp.Engine for testing.
type fakeEngine struct {
	verifyFunc func(ctx context.Context, file, sig string) (*pgp.Result, error)
	calls      []string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Verify(ctx context.Context, file, sig string) (*pgp.Result, error) {
	f.calls = append(f.calls, file)
	return f.verifyFunc(ctx, file, sig)
}

type copyFixture struct {
	env    *testutil.Env
	input  string
	sig    string
	output string
	data   []byte
	logs   *bytes.Buffer
}

// newCopyFixture writes an input signed by a fresh key whose ownertrust is
// trust, and a native keyring holding that key.
func newCopyFixture(t *testing.T, trust int) *copyFixture {
	t.Helper()

	env := testutil.SetupTestEnv(t)
	signer := testutil.NewSigner(t, "Release Bot")
	testutil.WriteKeyring(t, env.GPGHome, "pubring.asc", signer)
	testutil.WriteOwnertrust(t, env.GPGHome, map[*testutil.Signer]int{signer: trust})

	data := []byte("release-1.2.3.tar.gz contents\x00\x01")
	input := env.WriteFile(t, "release.tar.gz", data)
	sig := input + ".asc"
	signer.SignFile(t, input, sig, true)

	return &copyFixture{
		env:    env,
		input:  input,
		sig:    sig,
		output: filepath.Join(env.Work, "out", "release.tar.gz"),
		data:   data,
		logs:   &bytes.Buffer{},
	}
}

func (f *copyFixture) service(t *testing.T) *CopyService {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(f.output), 0o755); err != nil {
		t.Fatal(err)
	}
	engine, err := pgp.OpenNative(f.env.GPGHome, pgp.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("OpenNative() error = %v", err)
	}
	logger := zerolog.New(f.logs)
	return NewCopyService(engine, quarantine.NewStager(f.env.Quar, logger), &TestClock{FixedTime: time.Unix(1700000000, 0), Step: time.Second}, logger)
}

func (f *copyFixture) request(required pgp.TrustLevel) CopyRequest {
	return CopyRequest{Input: f.input, Sig: f.sig, Output: f.output, Required: required}
}

// assertQuarantineEmpty checks that only the quarantine root is left.
func assertQuarantineEmpty(t *testing.T, quar string) {
	t.Helper()

	entries, err := os.ReadDir(quar)
	if err != nil {
		t.Fatalf("read quarantine: %v", err)
	}
	for _, e := range entries {
		t.Errorf("quarantine not cleaned: %s left behind", e.Name())
	}
}

func TestCopyService_Execute(t *testing.T) {
	f := newCopyFixture(t, testutil.OwnertrustFull)
	svc := f.service(t)

	res, err := svc.Execute(context.Background(), f.request(pgp.TrustFull))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !bytes.Equal(got, f.data) {
		t.Error("output differs from input")
	}

	if res.Output != f.output {
		t.Errorf("Output = %q, want %q", res.Output, f.output)
	}
	if res.Replaced {
		t.Error("Replaced = true for a new output")
	}
	if res.Verification.Trust != pgp.TrustFull {
		t.Errorf("Trust = %v, want full", res.Verification.Trust)
	}
	if res.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", res.Duration)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}

	assertQuarantineEmpty(t, f.env.Quar)

	logs := f.logs.String()
	for _, want := range []string{`"run_id":"` + res.RunID + `"`, `"signer":"Release Bot (test) <release.bot@example.org>"`, "file verified and copied"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %s:\n%s", want, logs)
		}
	}

	if _, err := os.Stat(f.input); err != nil {
		t.Errorf("original input disturbed: %v", err)
	}
}

func TestCopyService_Execute_Refused(t *testing.T) {
	tests := []struct {
		name     string
		trust    int
		required pgp.TrustLevel
		tamper   bool
		wantKind errors.Kind
	}{
		{name: "marginal key, full required", trust: testutil.OwnertrustMarginal, required: pgp.TrustFull, wantKind: errors.InsufficientTrust},
		{name: "full key, ultimate required", trust: testutil.OwnertrustFull, required: pgp.TrustUltimate, wantKind: errors.InsufficientTrust},
		{name: "untrusted key", trust: testutil.OwnertrustNever, required: pgp.TrustMarginal, wantKind: errors.InsufficientTrust},
		{name: "tampered input", trust: testutil.OwnertrustUltimate, required: pgp.TrustMarginal, tamper: true, wantKind: errors.InvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCopyFixture(t, tt.trust)
			if tt.tamper {
				if err := os.WriteFile(f.input, []byte("evil"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			_, err := f.service(t).Execute(context.Background(), f.request(tt.required))
			errors.AssertIsKind(t, err, tt.wantKind)

			if _, err := os.Stat(f.output); !os.IsNotExist(err) {
				t.Error("output written despite refusal")
			}
			assertQuarantineEmpty(t, f.env.Quar)

			if !strings.Contains(f.logs.String(), "signature checked") {
				t.Error("verification result not logged before the decision")
			}
		})
	}
}

func TestCopyService_Execute_TruncatedSignature(t *testing.T) {
	f := newCopyFixture(t, testutil.OwnertrustFull)
	sig, err := os.ReadFile(f.sig)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.sig, sig[:len(sig)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = f.service(t).Execute(context.Background(), f.request(pgp.TrustFull))
	errors.AssertIsKind(t, err, errors.Verification)

	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Error("output written for truncated signature")
	}
	assertQuarantineEmpty(t, f.env.Quar)
}

func TestCopyService_Execute_ExistingOutput(t *testing.T) {
	t.Run("replaced by default", func(t *testing.T) {
		f := newCopyFixture(t, testutil.OwnertrustFull)
		svc := f.service(t)
		if err := os.WriteFile(f.output, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		res, err := svc.Execute(context.Background(), f.request(pgp.TrustFull))
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !res.Replaced {
			t.Error("Replaced = false")
		}
		got, _ := os.ReadFile(f.output)
		if !bytes.Equal(got, f.data) {
			t.Error("output not replaced")
		}
		if !strings.Contains(f.logs.String(), "replaced existing output file") {
			t.Error("replacement not logged")
		}
	})

	t.Run("kept with no clobber", func(t *testing.T) {
		f := newCopyFixture(t, testutil.OwnertrustFull)
		svc := f.service(t)
		if err := os.WriteFile(f.output, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		req := f.request(pgp.TrustFull)
		req.NoClobber = true
		_, err := svc.Execute(context.Background(), req)
		errors.AssertIsKind(t, err, errors.IO)

		got, _ := os.ReadFile(f.output)
		if string(got) != "old" {
			t.Errorf("output changed to %q", got)
		}
		assertQuarantineEmpty(t, f.env.Quar)
	})
}

func TestCopyService_Execute_QuarantineReused(t *testing.T) {
	f := newCopyFixture(t, testutil.OwnertrustFull)
	if err := os.MkdirAll(f.env.Quar, 0o700); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(f.env.Quar, "keep-me")
	if err := os.WriteFile(marker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := f.service(t).Execute(context.Background(), f.request(pgp.TrustFull)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing quarantine content removed: %v", err)
	}
}

func TestCopyService_Execute_VerifiesStagedCopy(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	input := env.WriteFile(t, "a.bin", []byte("data"))
	sig := env.WriteFile(t, "a.bin.sig", []byte("sig"))

	engine := &fakeEngine{verifyFunc: func(ctx context.Context, file, sig string) (*pgp.Result, error) {
		return &pgp.Result{Valid: true, Status: pgp.StatusGood, Trust: pgp.TrustUltimate}, nil
	}}
	svc := NewCopyService(engine, quarantine.NewStager(env.Quar, zerolog.Nop()), RealClock{}, zerolog.Nop())

	_, err := svc.Execute(context.Background(), CopyRequest{
		Input:    input,
		Sig:      sig,
		Output:   filepath.Join(env.Work, "out.bin"),
		Required: pgp.TrustFull,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(engine.calls) != 1 {
		t.Fatalf("Verify called %d times, want 1", len(engine.calls))
	}
	if !strings.HasPrefix(engine.calls[0], env.Quar+string(os.PathSeparator)) {
		t.Errorf("verified %s, want a path inside %s", engine.calls[0], env.Quar)
	}
}

func TestCopyService_Execute_EngineError(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	input := env.WriteFile(t, "a.bin", []byte("data"))
	sig := env.WriteFile(t, "a.bin.sig", []byte("sig"))

	engine := &fakeEngine{verifyFunc: func(ctx context.Context, file, sig string) (*pgp.Result, error) {
		return nil, errors.E("gpg exited unexpectedly")
	}}
	svc := NewCopyService(engine, quarantine.NewStager(env.Quar, zerolog.Nop()), RealClock{}, zerolog.Nop())

	_, err := svc.Execute(context.Background(), CopyRequest{
		Input:    input,
		Sig:      sig,
		Output:   filepath.Join(env.Work, "out.bin"),
		Required: pgp.TrustFull,
	})
	errors.AssertIsKind(t, err, errors.Verification)
	assertQuarantineEmpty(t, env.Quar)
}

func TestCopyService_Execute_InvalidRequest(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	engine := &fakeEngine{}
	svc := NewCopyService(engine, quarantine.NewStager(env.Quar, zerolog.Nop()), RealClock{}, zerolog.Nop())

	tests := []struct {
		name string
		req  CopyRequest
	}{
		{"trust level 5", CopyRequest{Input: "a", Sig: "b", Output: "c", Required: 5}},
		{"trust level 1", CopyRequest{Input: "a", Sig: "b", Output: "c", Required: pgp.TrustNever}},
		{"missing output", CopyRequest{Input: "a", Sig: "b", Required: pgp.TrustFull}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Execute(context.Background(), tt.req)
			errors.AssertIsKind(t, err, errors.Usage)
		})
	}

	if _, err := os.Stat(env.Quar); !os.IsNotExist(err) {
		t.Error("quarantine created for an invalid request")
	}
	if len(engine.calls) != 0 {
		t.Error("engine called for an invalid request")
	}
}

func TestCopyService_Execute_OutputLocked(t *testing.T) {
	f := newCopyFixture(t, testutil.OwnertrustFull)
	svc := f.service(t)
	if err := os.MkdirAll(f.env.Quar, 0o700); err != nil {
		t.Fatal(err)
	}

	lock, err := quarantine.AcquireLock(context.Background(), f.env.Quar, f.output)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer lock.Release()

	_, err = svc.Execute(context.Background(), f.request(pgp.TrustFull))
	errors.AssertIsKind(t, err, errors.IO)
	errors.Assert(t, err, quarantine.ErrLockExists)
}

func TestTestClock(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &TestClock{FixedTime: base, Step: time.Minute}

	if got := c.Now(); !got.Equal(base) {
		t.Errorf("first Now() = %v, want %v", got, base)
	}
	if got := c.Now(); !got.Equal(base.Add(time.Minute)) {
		t.Errorf("second Now() = %v, want %v", got, base.Add(time.Minute))
	}
}
