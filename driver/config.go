// Package driver implements program invocation (spec §6): it constructs a
// VM from a configuration and capability set, resolves the `needs`
// clauses of a program against the stdlib registry (the ffi loader is not
// consulted), compiles the program, and runs its
// top-level function. Grounded on the teacher's internal/maincmd, which
// played the same role (tokenize, parse, resolve, then hand off to
// lang/machine) for the stack-machine pipeline; adapted here for the
// lexer->sema->opt->compiler->bytecode->heap->vm pipeline and for Aelys's
// capability-gated module loading, which the teacher's language never had.
package driver

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/logutils"

	"github.com/aelys-lang/aelys/lang/opt"
	"github.com/aelys-lang/aelys/lang/stdlib"
	"github.com/aelys-lang/aelys/lang/vm"
)

// Config controls one program invocation (spec §6's "a configuration:
// max-heap, capability flags allow_fs/allow_net/allow_exec, trusted flag
// that enables all").
type Config struct {
	MaxHeapBytes int
	AllowFS      bool
	AllowNet     bool
	AllowExec    bool
	Trusted      bool
	Args         []string
	OptLevel     opt.Level

	MaxCallStackDepth int
	MaxSteps          uint64

	LogLevel string // one of TRACE, DEBUG, INFO, WARN, ERROR
}

// Capabilities builds the stdlib capability set implied by cfg.
func (cfg Config) Capabilities() stdlib.Capabilities {
	return stdlib.Capabilities{
		Trusted: cfg.Trusted,
		Fs:      cfg.AllowFS,
		Net:     cfg.AllowNet,
		Exec:    cfg.AllowExec,
	}
}

// Limits builds the VM execution limits implied by cfg.
func (cfg Config) Limits() vm.Limits {
	return vm.Limits{
		MaxCallStackDepth: cfg.MaxCallStackDepth,
		MaxSteps:          cfg.MaxSteps,
	}
}

// DefaultConfig returns an untrusted configuration with no capabilities
// granted and full optimization, the safe default for running an
// unfamiliar program.
func DefaultConfig() Config {
	return Config{
		OptLevel: opt.LevelFull,
		LogLevel: "INFO",
	}
}

// logLevels is the fixed severity ladder logutils filters against,
// matching the teacher's own ladder conventions (TRACE below DEBUG, since
// the VM's inline-cache rebuild/step accounting is chattier than plain
// debug logging).
var logLevels = []logutils.LogLevel{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

// FromEnv layers AELYS_* environment variables over a DefaultConfig,
// mirroring spec §6's program-invocation configuration without requiring
// a config file: AELYS_MAX_HEAP_BYTES, AELYS_ALLOW_FS/NET/EXEC,
// AELYS_TRUSTED, AELYS_OPT_LEVEL (none|basic|full), AELYS_MAX_CALL_DEPTH,
// AELYS_MAX_STEPS, AELYS_LOG_LEVEL.
func FromEnv() Config {
	cfg := DefaultConfig()
	if v, ok := os.LookupEnv("AELYS_MAX_HEAP_BYTES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxHeapBytes = n
		}
	}
	cfg.AllowFS = envBool("AELYS_ALLOW_FS", cfg.AllowFS)
	cfg.AllowNet = envBool("AELYS_ALLOW_NET", cfg.AllowNet)
	cfg.AllowExec = envBool("AELYS_ALLOW_EXEC", cfg.AllowExec)
	cfg.Trusted = envBool("AELYS_TRUSTED", cfg.Trusted)
	if v, ok := os.LookupEnv("AELYS_OPT_LEVEL"); ok {
		switch strings.ToLower(v) {
		case "none":
			cfg.OptLevel = opt.LevelNone
		case "basic":
			cfg.OptLevel = opt.LevelBasic
		case "full":
			cfg.OptLevel = opt.LevelFull
		}
	}
	if v, ok := os.LookupEnv("AELYS_MAX_CALL_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxCallStackDepth = n
		}
	}
	if v, ok := os.LookupEnv("AELYS_MAX_STEPS"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MaxSteps = n
		}
	}
	if v, ok := os.LookupEnv("AELYS_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToUpper(v)
	}
	return cfg
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetupLogging installs a level-filtered logger on the standard log
// package, gated by cfg.LogLevel (SPEC_FULL §A.1's ambient logging
// concern), the way _examples/qjcg-driving/main.go gates its own
// log.SetOutput behind a logutils.LevelFilter.
func SetupLogging(cfg Config) {
	level := cfg.LogLevel
	if level == "" {
		level = "INFO"
	}
	filter := &logutils.LevelFilter{
		Levels:   logLevels,
		MinLevel: logutils.LogLevel(level),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
	log.SetFlags(0)
}

// logf writes a single leveled line through the standard logger, in the
// "[LEVEL] message" form logutils.LevelFilter parses.
func logf(level, format string, args ...any) {
	log.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}
