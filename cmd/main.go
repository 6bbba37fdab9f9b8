// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	assetreg "github.com/saferwall/assetreg"
)

var verboseCount int

// version is the module version this front-end reports, mirroring the
// teacher's own cmd/main.go "version" subcommand.
const version = "1.0.0"

// verboseLevel maps a repeated -v flag to a zap level, mirroring
// main.py's debug_levels table (warn -> info -> debug).
func verboseLevel(count int) zapcore.Level {
	switch {
	case count >= 2:
		return zapcore.DebugLevel
	case count == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(verboseLevel(verboseCount))
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// outputPath infers the sibling output file name by suffixing the input
// stem with newExt when out is empty (§6: "inferring output name by
// suffixing the stem").
func outputPath(in, out, newExt string) string {
	if out != "" {
		return out
	}
	stem := strings.TrimSuffix(in, filepath.Ext(in))
	return stem + newExt
}

func runDecode(cmd *cobra.Command, args []string) error {
	in := args[0]
	out, _ := cmd.Flags().GetString("output")
	out = outputPath(in, out, ".json")

	logger := newLogger()
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infof("decoding %s", in)

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	reg, err := assetreg.NewBytes(data, &assetreg.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("decode binary: %w", err)
	}

	doc, err := assetreg.EncodeTextual(reg)
	if err != nil {
		return fmt.Errorf("project textual: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(out, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	sugar.Infof("wrote %s", out)
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	in := args[0]
	out, _ := cmd.Flags().GetString("output")
	out = outputPath(in, out, ".bin")

	logger := newLogger()
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infof("encoding %s", in)

	jsonBytes, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	var doc assetreg.Document
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	reg, err := assetreg.DecodeTextual(&doc, &assetreg.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("ingest textual: %w", err)
	}

	binBytes, err := reg.EncodeBinary()
	if err != nil {
		return fmt.Errorf("encode binary: %w", err)
	}
	if err := os.WriteFile(out, binBytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	sugar.Infof("wrote %s", out)
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "assetregctl",
		Short: "A bidirectional codec for cooked asset registry files",
		Long:  "assetregctl decodes and re-encodes the binary asset registry blob used by a game engine's content pipeline, and its lossless editable JSON projection.",
	}
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "increase log verbosity (repeatable)")

	decodeCmd := &cobra.Command{
		Use:   "decode <in.bin>",
		Short: "Decode a binary asset registry into its textual JSON form",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}
	decodeCmd.Flags().StringP("output", "o", "", "output JSON path (default: input stem + .json)")

	encodeCmd := &cobra.Command{
		Use:   "encode <in.json>",
		Short: "Encode a textual JSON asset registry into its binary form",
		Args:  cobra.ExactArgs(1),
		RunE:  runEncode,
	}
	encodeCmd.Flags().StringP("output", "o", "", "output binary path (default: input stem + .bin)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the module version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("assetregctl version %s\n", version)
		},
	}

	rootCmd.AddCommand(decodeCmd, encodeCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
