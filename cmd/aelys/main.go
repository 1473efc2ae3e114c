// Command aelys is the Aelys driver's CLI front-end: a thin cobra wrapper
// exposing `run` and `compile` over the driver package (spec §6's program
// invocation). Grounded on _examples/ajroetker-goat/main.go's single
// cobra.Command-plus-PersistentFlags layout; the dynamic-loader mechanism
// and any richer flag surface are left to an external front-end
// (SPEC_FULL §D), so this stays deliberately thin.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aelys-lang/aelys/driver"
	"github.com/aelys-lang/aelys/internal/diag"
	"github.com/aelys-lang/aelys/lang/bytecode"
	"github.com/aelys-lang/aelys/lang/stdlib"
	"github.com/aelys-lang/aelys/lang/vm"
)

func configFromFlags(cmd *cobra.Command) driver.Config {
	cfg := driver.FromEnv()
	if v, err := cmd.Flags().GetBool("allow-fs"); err == nil && v {
		cfg.AllowFS = true
	}
	if v, err := cmd.Flags().GetBool("allow-net"); err == nil && v {
		cfg.AllowNet = true
	}
	if v, err := cmd.Flags().GetBool("allow-exec"); err == nil && v {
		cfg.AllowExec = true
	}
	if v, err := cmd.Flags().GetBool("trusted"); err == nil && v {
		cfg.Trusted = true
	}
	if v, err := cmd.Flags().GetInt("max-heap-bytes"); err == nil && v > 0 {
		cfg.MaxHeapBytes = v
	}
	if v, err := cmd.Flags().GetString("log-level"); err == nil && v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

func addCapabilityFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("allow-fs", false, "grant the fs capability")
	cmd.Flags().Bool("allow-net", false, "grant the net capability")
	cmd.Flags().Bool("allow-exec", false, "grant the exec capability")
	cmd.Flags().Bool("trusted", false, "grant every capability")
	cmd.Flags().Int("max-heap-bytes", 0, "heap byte budget (0 = unbounded)")
	cmd.Flags().String("log-level", "", "one of TRACE, DEBUG, INFO, WARN, ERROR")
}

var runCmd = &cobra.Command{
	Use:   "run <file.aelys> [args...]",
	Short: "compile and execute an Aelys program",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)
		cfg.Args = args[1:]
		driver.SetupLogging(cfg)

		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		res, err := driver.Run(args[0], src, cfg)
		if err != nil {
			return reportError(err)
		}
		if !res.Value.IsNull() {
			fmt.Fprintln(os.Stdout, stdlib.Display(res.Heap, res.Value))
		}
		return nil
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <file.aelys> -o <out.vbxq>",
	Short: "compile an Aelys program to a VBXQ bytecode envelope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromFlags(cmd)
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return fmt.Errorf("compile: -o/--output is required")
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fn, h, err := driver.Compile(args[0], src, cfg)
		if err != nil {
			return reportError(err)
		}
		w, err := os.Create(out)
		if err != nil {
			return err
		}
		defer w.Close()
		return bytecode.Encode(w, fn, h)
	},
}

func reportError(err error) error {
	if list, ok := err.(*diag.List); ok {
		for _, e := range list.Errs {
			fmt.Fprintln(os.Stderr, e.Error())
			if excerpt := e.Excerpt(); excerpt != "" {
				fmt.Fprintln(os.Stderr, excerpt)
			}
		}
		return fmt.Errorf("%d error(s)", len(list.Errs))
	}
	if rerr, ok := err.(*vm.RuntimeError); ok {
		return fmt.Errorf("runtime error: %s", rerr.Error())
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:   "aelys",
	Short: "Aelys language driver: compile and run .aelys programs",
}

func init() {
	addCapabilityFlags(runCmd)
	addCapabilityFlags(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "output path for the compiled VBXQ envelope")
	rootCmd.AddCommand(runCmd, compileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
