package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hyggelang/hyggec/pkg/astjson"
	"github.com/hyggelang/hyggec/pkg/codegen"
	"github.com/hyggelang/hyggec/pkg/config"
	"github.com/hyggelang/hyggec/pkg/optimizer"
	"github.com/hyggelang/hyggec/pkg/version"
	"github.com/hyggelang/hyggec/pkg/wat"
)

var (
	style      string
	peephole   bool
	allocStrat string
	outputFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:     "hyggec",
	Short:   "hyggec " + version.GetVersion(),
	Version: version.GetVersion(),
}

// compileWasmCmd is the one subcommand this driver implements — spec.md
// §6 names lex/parse/type-check/interpret/run-wasm/test as collaborators
// out of scope here.
var compileWasmCmd = &cobra.Command{
	Use:   "compile-wasm [ast.json]",
	Short: "lower a JSON-encoded typed Hygge AST into a WebAssembly text module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return compileWasm(args[0])
	},
}

func init() {
	compileWasmCmd.Flags().StringVar(&style, "style", "linear", "WAT writing style: linear|folded")
	compileWasmCmd.Flags().BoolVar(&peephole, "peep", true, "run the peephole optimizer before serializing")
	compileWasmCmd.Flags().StringVar(&allocStrat, "alloc", "external", "allocation strategy: internal|external")
	compileWasmCmd.Flags().StringVarP(&outputFile, "out", "o", "", "output .wat file (default: input name with .wat extension)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.AddCommand(compileWasmCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func compileWasm(inputFile string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := parseConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading AST file: %w", err)
	}

	top, err := astjson.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding AST: %w", err)
	}

	module, err := codegen.Generate(top, cfg)
	if err != nil {
		return fmt.Errorf("code generation: %w", err)
	}

	if err := optimizer.New(cfg.Peephole).Optimize(module); err != nil {
		return fmt.Errorf("optimization: %w", err)
	}

	text := wat.Print(module)

	out := outputFile
	if out == "" {
		base := filepath.Base(inputFile)
		ext := filepath.Ext(base)
		out = base[:len(base)-len(ext)] + ".wat"
	}
	if err := os.WriteFile(out, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	log.WithField("output", out).Debug("wrote WAT module")
	return nil
}

func parseConfig() (config.Config, error) {
	cfg := config.Default()
	cfg.Peephole = peephole

	switch strings.ToLower(style) {
	case "linear":
		cfg.Style = config.StyleLinear
	case "folded":
		cfg.Style = config.StyleFolded
	default:
		return cfg, fmt.Errorf("unrecognised --style %q (want linear|folded)", style)
	}

	switch strings.ToLower(allocStrat) {
	case "internal":
		cfg.AllocationStrategy = config.AllocInternal
	case "external":
		cfg.AllocationStrategy = config.AllocExternal
	default:
		return cfg, fmt.Errorf("unrecognised --alloc %q (want internal|external)", allocStrat)
	}

	return cfg, nil
}
