package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/subcommands"

	"github.com/utsingh/portfolio-api/internal/portfolio"
	"github.com/utsingh/portfolio-api/internal/portfolio/repository"
	"github.com/utsingh/portfolio-api/internal/portfolio/seed"
	"github.com/utsingh/portfolio-api/internal/portfolio/service"
)

var commands = []subcommands.Command{
	&seedCmd{},
	&getCmd{},
	&setSectionCmd{},
	&addItemCmd{},
	&replaceItemCmd{},
	&removeItemCmd{},
}

// run opens the service, calls fn and maps its error to an exit status.
func run(ctx context.Context, fn func(service.Service) error) subcommands.ExitStatus {
	svc, closeFn, err := openService(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	defer closeFn()
	if err := fn(svc); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "insert placeholder portfolio content into an empty store" }
func (*seedCmd) Usage() string {
	return `portfolioctl seed

  Inserts the placeholder portfolio when no document exists. An existing
  document is left untouched; delete it first to reseed.
`
}
func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(svc service.Service) error {
		inserted, err := seed.Run(ctx, svc)
		if err != nil {
			return err
		}
		if inserted {
			fmt.Fprintln(stdout, "Database seeded successfully!")
		} else {
			fmt.Fprintln(stdout, "Portfolio data already exists. Skipping seed operation.")
		}
		return nil
	})
}

type getCmd struct {
	section string
	path    string
}

func (*getCmd) Name() string     { return "get" }
func (*getCmd) Synopsis() string { return "print the portfolio data or one section as JSON" }
func (*getCmd) Usage() string {
	return `portfolioctl get [-section <name>] [-path <jsonpath>]

  Prints the whole data mapping, or one section. -path evaluates a JSONPath
  expression over the printed value, e.g. -path '$.about.skills[*].name'.
`
}

func (c *getCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Only print this section.")
	f.StringVar(&c.path, "path", "", "JSONPath expression evaluated over the result.")
}

func (c *getCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(svc service.Service) error {
		var v interface{}
		if c.section == "" {
			data, err := svc.GetAll(ctx)
			if err != nil {
				return err
			}
			v = data
		} else {
			var err error
			v, err = svc.GetSection(ctx, c.section)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("section '%s' not found", c.section)
			}
			if err != nil {
				return err
			}
		}
		if c.path != "" {
			var err error
			if v, err = evalPath(c.path, v); err != nil {
				return err
			}
		}
		return printJSON(v)
	})
}

// evalPath runs a JSONPath query over v after a JSON round trip, so store
// types such as ObjectIDs appear as they do over HTTP.
func evalPath(expr string, v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	out, err := jsonpath.Get(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return out, nil
}

type setSectionCmd struct {
	section string
	file    string
}

func (*setSectionCmd) Name() string     { return "set-section" }
func (*setSectionCmd) Synopsis() string { return "replace one section with the content of a JSON file" }
func (*setSectionCmd) Usage() string {
	return `portfolioctl set-section -section <name> -file <value.json|->
`
}

func (c *setSectionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Section to replace.")
	f.StringVar(&c.file, "file", "-", "JSON file holding the new value, - for stdin.")
}

func (c *setSectionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := portfolio.SectionTarget(c.section); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	value, err := readJSONFile(c.file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return run(ctx, func(svc service.Service) error {
		res, err := svc.ReplaceSection(ctx, c.section, value)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Message)
		return nil
	})
}

type addItemCmd struct {
	section string
	field   string
	file    string
}

func (*addItemCmd) Name() string     { return "add-item" }
func (*addItemCmd) Synopsis() string { return "append an item to an array field" }
func (*addItemCmd) Usage() string {
	return `portfolioctl add-item -section <name> -field <array> -file <item.json|->

  The item must be a JSON object. An _id is assigned when it has none; the
  stored item is printed.
`
}

func (c *addItemCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Section holding the array.")
	f.StringVar(&c.field, "field", "", "Array field inside the section.")
	f.StringVar(&c.file, "file", "-", "JSON file holding the item, - for stdin.")
}

func (c *addItemCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := portfolio.ArrayTarget(c.section, c.field); err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitUsageError
	}
	item, err := readItemFile(c.file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return run(ctx, func(svc service.Service) error {
		res, err := svc.AddItem(ctx, c.section, c.field, item)
		if err != nil {
			return err
		}
		return printJSON(res.Item)
	})
}

type replaceItemCmd struct {
	section string
	field   string
	id      string
	file    string
}

func (*replaceItemCmd) Name() string     { return "replace-item" }
func (*replaceItemCmd) Synopsis() string { return "overwrite the item with the given _id in an array field" }
func (*replaceItemCmd) Usage() string {
	return `portfolioctl replace-item -section <name> -field <array> -id <itemId> -file <item.json|->

  The item must be a JSON object. It keeps the addressed _id; the stored item
  is printed.
`
}

func (c *replaceItemCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Section holding the array.")
	f.StringVar(&c.field, "field", "", "Array field inside the section.")
	f.StringVar(&c.id, "id", "", "Item _id (ObjectID hex, integer or raw string).")
	f.StringVar(&c.file, "file", "-", "JSON file holding the item, - for stdin.")
}

func (c *replaceItemCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := portfolio.ArrayTarget(c.section, c.field); err != nil || c.id == "" {
		fmt.Fprintln(stderr, "replace-item needs -section, -field and -id")
		return subcommands.ExitUsageError
	}
	item, err := readItemFile(c.file)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return subcommands.ExitFailure
	}
	return run(ctx, func(svc service.Service) error {
		res, err := svc.ReplaceItem(ctx, c.section, c.field, c.id, item)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("item %s not found in %s.%s", c.id, c.section, c.field)
		}
		if err != nil {
			return err
		}
		return printJSON(res.Item)
	})
}

type removeItemCmd struct {
	section string
	field   string
	id      string
}

func (*removeItemCmd) Name() string     { return "remove-item" }
func (*removeItemCmd) Synopsis() string { return "remove items with the given _id from an array field" }
func (*removeItemCmd) Usage() string {
	return `portfolioctl remove-item -section <name> -field <array> -id <itemId>
`
}

func (c *removeItemCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.section, "section", "", "Section holding the array.")
	f.StringVar(&c.field, "field", "", "Array field inside the section.")
	f.StringVar(&c.id, "id", "", "Item _id (ObjectID hex, integer or raw string).")
}

func (c *removeItemCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	t, err := portfolio.ArrayTarget(c.section, c.field)
	if err != nil || c.id == "" {
		fmt.Fprintln(stderr, "remove-item needs -section, -field and -id")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(svc service.Service) error {
		res, err := svc.RemoveItem(ctx, c.section, c.field, c.id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("item %s not found in %s", c.id, t)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Message)
		return nil
	})
}
