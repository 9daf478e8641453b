package main

import (
	stdctx "context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/momo-tracker/internal/domain"
	"github.com/dvloznov/momo-tracker/internal/loader"
	"github.com/dvloznov/momo-tracker/internal/store"
	"github.com/dvloznov/momo-tracker/internal/store/inmemory"
)

type compareCmd struct {
	In     string  `required:"" help:"XML or JSON source file."`
	IDs    []int64 `name:"id" help:"Ids to look up; defaults to every loaded id."`
	Rounds int     `default:"1000" help:"Lookups per id and strategy."`
}

type lookupFunc func(stdctx.Context, int64) (*domain.Transaction, error)

func (c *compareCmd) Run(ctx *context) error {
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}

	records, err := loader.LoadFile(c.In)
	if err != nil {
		return err
	}

	bg := stdctx.Background()
	s := inmemory.NewStore()
	if err := s.Load(bg, records); err != nil {
		return err
	}

	ids := c.IDs
	if len(ids) == 0 {
		all, err := s.List(bg)
		if err != nil {
			return err
		}
		for _, t := range all {
			ids = append(ids, t.ID)
		}
	}

	mismatches, err := verifyLookups(bg, s, ids)
	if err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d ids returned different results from indexed and linear lookup", mismatches)
	}

	indexed := timeLookups(bg, s.Get, ids, c.Rounds)
	linear := timeLookups(bg, s.LinearSearch, ids, c.Rounds)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "strategy\tlookups\ttotal\tper lookup\n")
	n := len(ids) * c.Rounds
	for _, row := range []struct {
		name string
		d    time.Duration
	}{{"indexed", indexed}, {"linear", linear}} {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", row.name, n, row.d, perLookup(row.d, n))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ctx.log.Debug().Int("records", s.Len()).Int("ids", len(ids)).Msg("Comparison finished")
	return nil
}

// verifyLookups checks that both strategies agree on every id, including
// ids that are absent.
func verifyLookups(ctx stdctx.Context, s store.Store, ids []int64) (int, error) {
	mismatches := 0
	for _, id := range ids {
		a, errA := s.Get(ctx, id)
		b, errB := s.LinearSearch(ctx, id)
		if (errA == nil) != (errB == nil) || !reflect.DeepEqual(a, b) {
			mismatches++
			continue
		}
		if errA != nil && !errors.Is(errA, store.ErrNotFound) {
			return 0, errA
		}
	}
	return mismatches, nil
}

func timeLookups(ctx stdctx.Context, lookup lookupFunc, ids []int64, rounds int) time.Duration {
	start := time.Now()
	for i := 0; i < rounds; i++ {
		for _, id := range ids {
			_, _ = lookup(ctx, id)
		}
	}
	return time.Since(start)
}

func perLookup(d time.Duration, n int) time.Duration {
	if n == 0 {
		return 0
	}
	return d / time.Duration(n)
}
