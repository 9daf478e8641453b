package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/momo-tracker/internal/sample"
)

type generateCmd struct {
	Count int    `default:"100" help:"Number of SMS records to generate."`
	Out   string `default:"modified_sms_v2.xml" help:"File to write."`
	Seed  int64  `default:"42" help:"Random seed; equal seeds give equal output."`
}

func (g *generateCmd) Run(ctx *context) error {
	if g.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", g.Count)
	}

	if dir := filepath.Dir(g.Out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(g.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", g.Out, err)
	}
	defer f.Close()

	start := time.Now()
	if err := sample.WriteXML(f, sample.Generate(g.Count, g.Seed)); err != nil {
		return fmt.Errorf("write %s: %w", g.Out, err)
	}

	ctx.log.Info().
		Str("file", g.Out).
		Int("count", g.Count).
		Int64("seed", g.Seed).
		Dur("duration", time.Since(start)).
		Msg("Sample data generated")
	return f.Close()
}
