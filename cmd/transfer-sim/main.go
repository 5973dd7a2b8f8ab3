// transfer-sim drives a bolt-backed set of tanks from the command line. Each
// invocation opens the database, performs one operation inside a root
// transaction, and either commits it or, with --abort, rolls it back so the
// database is left untouched. It exists to poke at the transaction machinery
// against real persisted state.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-transfer"
	"github.com/goliatone/go-transfer/pkg/boltstore"
	"github.com/goliatone/go-transfer/pkg/lifecycle"
)

type fluid string

func (f fluid) IsEmpty() bool { return f == "" }

type cli struct {
	DB       string `help:"Path to the tank database." default:"transfer.db"`
	Resource string `help:"Resource identity all tanks hold." default:"water"`
	Capacity int64  `help:"Tank capacity used when attaching." default:"1000"`
	Verbose  bool   `short:"v" help:"Print lifecycle events as they fire."`

	Status cmdStatus `cmd:"" help:"List tanks and their persisted levels."`
	Create cmdCreate `cmd:"" help:"Create an empty tank at a location."`
	Fill   cmdFill   `cmd:"" help:"Insert into a tank."`
	Drain  cmdDrain  `cmd:"" help:"Extract from a tank."`
	Move   cmdMove   `cmd:"" help:"Move between two tanks."`
	Drop   cmdDrop   `cmd:"" help:"Delete a tank record."`
}

// runContext carries the opened store and transaction machinery to the
// subcommands.
type runContext struct {
	store    *boltstore.Store
	mgr      *transfer.Manager
	resource fluid
	capacity int64
	stdout   *os.File
}

func (rc *runContext) tank(location string) (*boltstore.Tank[fluid], error) {
	return boltstore.NewTank[fluid](rc.store, location, rc.resource, rc.capacity)
}

// inTransaction runs op inside a root transaction, committing unless abort is
// set.
func (rc *runContext) inTransaction(abort bool, op func(tx *transfer.Transaction) error) error {
	tx, err := rc.mgr.OpenRoot()
	if err != nil {
		return err
	}
	if err := op(tx); err != nil {
		if abortErr := tx.Abort(); abortErr != nil {
			return fmt.Errorf("%w (rollback: %w)", err, abortErr)
		}
		return err
	}
	if abort {
		fmt.Fprintln(rc.stdout, "aborting: no changes kept")
		return tx.Abort()
	}
	return tx.Commit()
}

type cmdStatus struct{}

func (c *cmdStatus) Run(rc *runContext) error {
	locations, err := rc.store.Tanks()
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		fmt.Fprintln(rc.stdout, "no tanks")
		return nil
	}
	for _, location := range locations {
		amount, _, err := rc.store.TankAmount(location)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.stdout, "%s\t%d/%d %s\n", location, amount, rc.capacity, rc.resource)
	}
	return nil
}

type cmdCreate struct {
	Location string `arg:"" help:"Tank location key."`
}

func (c *cmdCreate) Run(rc *runContext) error {
	if _, err := rc.tank(c.Location); err != nil {
		return err
	}
	fmt.Fprintf(rc.stdout, "tank %s ready\n", c.Location)
	return nil
}

type cmdFill struct {
	Location string `arg:"" help:"Tank location key."`
	Amount   int64  `arg:"" help:"Amount to insert."`
	Abort    bool   `help:"Roll the insertion back instead of committing."`
}

func (c *cmdFill) Run(rc *runContext) error {
	tank, err := rc.tank(c.Location)
	if err != nil {
		return err
	}
	return rc.inTransaction(c.Abort, func(tx *transfer.Transaction) error {
		inserted, err := tank.Insert(rc.resource, c.Amount, tx)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.stdout, "inserted %d into %s\n", inserted, c.Location)
		return nil
	})
}

type cmdDrain struct {
	Location string `arg:"" help:"Tank location key."`
	Amount   int64  `arg:"" help:"Amount to extract."`
	Abort    bool   `help:"Roll the extraction back instead of committing."`
}

func (c *cmdDrain) Run(rc *runContext) error {
	tank, err := rc.tank(c.Location)
	if err != nil {
		return err
	}
	return rc.inTransaction(c.Abort, func(tx *transfer.Transaction) error {
		extracted, err := tank.Extract(rc.resource, c.Amount, tx)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.stdout, "extracted %d from %s\n", extracted, c.Location)
		return nil
	})
}

type cmdMove struct {
	From   string `arg:"" help:"Source tank location."`
	To     string `arg:"" help:"Target tank location."`
	Amount int64  `arg:"" help:"Maximum amount to move."`
	Abort  bool   `help:"Roll the move back instead of committing."`
}

func (c *cmdMove) Run(rc *runContext) error {
	from, err := rc.tank(c.From)
	if err != nil {
		return err
	}
	to, err := rc.tank(c.To)
	if err != nil {
		return err
	}
	return rc.inTransaction(c.Abort, func(tx *transfer.Transaction) error {
		moved, err := transfer.Move[fluid](from, to, rc.resource, c.Amount, tx)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.stdout, "moved %d from %s to %s\n", moved, c.From, c.To)
		return nil
	})
}

type cmdDrop struct {
	Location string `arg:"" help:"Tank location key."`
}

func (c *cmdDrop) Run(rc *runContext) error {
	if err := rc.store.DropTank(c.Location); err != nil {
		return err
	}
	fmt.Fprintf(rc.stdout, "dropped %s\n", c.Location)
	return nil
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("transfer-sim"),
		kong.Description("Simulate transactional resource transfers against a bolt database."),
		kong.UsageOnError(),
	)

	var hooks lifecycle.Hooks
	if args.Verbose {
		hooks = lifecycle.Hooks{lifecycle.HookFunc(func(_ context.Context, event lifecycle.Event) error {
			fmt.Fprintf(os.Stderr, "event: %s %v %v\n", event.Kind, event.Location, event.Metadata)
			return nil
		})}
	}

	mgr := transfer.NewManager()
	store, err := boltstore.Open(args.DB, mgr, transfer.NewVersionCounter(), boltstore.WithHooks(hooks))
	ctx.FatalIfErrorf(err)
	defer store.Close()

	rc := &runContext{
		store:    store,
		mgr:      mgr,
		resource: fluid(args.Resource),
		capacity: args.Capacity,
		stdout:   os.Stdout,
	}
	ctx.FatalIfErrorf(ctx.Run(rc))
}
