package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelys-lang/aelys/internal/diag"
)

func TestRunPlainArithmeticProgram(t *testing.T) {
	cfg := DefaultConfig()
	res, err := Run("test.aelys", []byte("let mut s = 0\nfor i in 0..5 { s += i }\ns\n"), cfg)
	require.NoError(t, err)
	n, ok := res.Value.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(10), n)
}

func TestRunRecursiveFunction(t *testing.T) {
	cfg := DefaultConfig()
	src := "fn fib(n) { if n < 2 { n } else { fib(n-1) + fib(n-2) } }\nfib(10)\n"
	res, err := Run("test.aelys", []byte(src), cfg)
	require.NoError(t, err)
	n, ok := res.Value.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(55), n)
}

func TestRunGrantedCapabilityResolvesModule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowFS = true
	res, err := Run("test.aelys", []byte("needs fs\n1\n"), cfg)
	require.NoError(t, err)
	n, ok := res.Value.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestRunDeniedCapabilityFailsAtCompileTime(t *testing.T) {
	cfg := DefaultConfig()
	_, err := Run("test.aelys", []byte("needs fs\n1\n"), cfg)
	require.Error(t, err)

	list, ok := err.(*diag.List)
	require.True(t, ok, "expected a *diag.List, got %T", err)
	require.NotEmpty(t, list.Errs)
	require.Equal(t, diag.Capability, list.Errs[0].Kind)
}

func TestRunUnknownModuleFailsAtCompileTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trusted = true
	_, err := Run("test.aelys", []byte("needs nosuchmodule\n1\n"), cfg)
	require.Error(t, err)

	list, ok := err.(*diag.List)
	require.True(t, ok, "expected a *diag.List, got %T", err)
	require.NotEmpty(t, list.Errs)
	require.Equal(t, diag.Module, list.Errs[0].Kind)
}

func TestCompileProducesEncodableFunction(t *testing.T) {
	cfg := DefaultConfig()
	fn, h, err := Compile("test.aelys", []byte("let x = 41\nx + 1\n"), cfg)
	require.NoError(t, err)
	require.NotNil(t, fn)
	require.NotNil(t, h)
}
