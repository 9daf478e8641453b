package main

import (
	stdctx "context"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/momo-tracker/internal/export"
	"github.com/dvloznov/momo-tracker/internal/loader"
	"github.com/dvloznov/momo-tracker/internal/store/inmemory"
)

type exportCmd struct {
	In             string `required:"" help:"XML or JSON source file."`
	Out            string `default:"jsonfile:transactions.json" help:"Where to write [jsonfile:/path/file.json es8:http://myelasticsearch:9200 postgres:DSN gcs:bucket/object bq:project.dataset.table]"`
	GCPCredentials string `name:"gcp-credentials" help:"Service account file for gcs and bq sinks; defaults to GOOGLE_APPLICATION_CREDENTIALS."`
}

func (e *exportCmd) Run(ctx *context) error {
	records, err := loader.LoadFile(e.In)
	if err != nil {
		return err
	}

	c, cancel := stdctx.WithTimeout(stdctx.Background(), 5*time.Minute)
	defer cancel()

	// Loading through the store assigns the same ids the API would serve.
	s := inmemory.NewStore()
	if err := s.Load(c, records); err != nil {
		return err
	}
	txns, err := s.List(c)
	if err != nil {
		return err
	}

	creds := e.GCPCredentials
	if creds == "" {
		creds = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	sink, err := export.Open(e.Out, export.Options{GCPCredentialsFile: creds, Log: ctx.log})
	if err != nil {
		return err
	}

	start := time.Now()
	if err := sink.Write(c, txns); err != nil {
		return fmt.Errorf("export to %s: %w", e.Out, err)
	}

	ctx.log.Info().
		Str("source", e.In).
		Str("sink", e.Out).
		Int("count", len(txns)).
		Dur("duration", time.Since(start)).
		Msg("Export completed")
	return nil
}
