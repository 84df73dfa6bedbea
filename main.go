package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/pdok/osmflex/config"
	"github.com/pdok/osmflex/copymgr"
	"github.com/pdok/osmflex/gazetteer"
	"github.com/pdok/osmflex/geombuilder"
	"github.com/pdok/osmflex/middle"
	"github.com/pdok/osmflex/osm"
	"github.com/pdok/osmflex/pgsql"
	"github.com/pdok/osmflex/processing"
	"github.com/pdok/osmflex/reproj"
	"github.com/pdok/osmflex/style"
)

const CONNINFO string = `conninfo`
const INPUT string = `input`
const APPEND string = `append`
const SRID string = `srid`
const SCHEMA string = `schema`
const TABLE string = `table`
const DATATABLESPACE string = `dataTablespace`
const INDEXTABLESPACE string = `indexTablespace`
const STYLE string = `style`
const MIDDLE string = `middle`
const COPYQUEUELEN string = `copyQueueLen`
const COPYBUFFERSIZE string = `copyBufferSize`
const VERBOSE string = `verbose`

//nolint:funlen
func main() {
	defaultConfig, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	app := cli.NewApp()
	app.Name = "osmflex"
	app.Usage = "Loads an OpenStreetMap change stream into a PostGIS place table"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     CONNINFO,
			Aliases:  []string{"d"},
			Usage:    "PostgreSQL connection string or URL. E.g.: postgres://user@localhost/gis",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(CONNINFO)},
		},
		&cli.StringFlag{
			Name:     INPUT,
			Aliases:  []string{"i"},
			Usage:    "Change stream with one JSON object per line, - for stdin",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(INPUT)},
		},
		&cli.BoolFlag{
			Name:     APPEND,
			Aliases:  []string{"a"},
			Usage:    "Update the existing place table instead of creating it from scratch",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(APPEND)},
		},
		&cli.IntFlag{
			Name:     SRID,
			Usage:    "SRID of the stored geometries, 4326 or 3857",
			Value:    defaultConfig.SRID,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(SRID)},
		},
		&cli.StringFlag{
			Name:     SCHEMA,
			Usage:    "Database schema of the place table",
			Value:    defaultConfig.Schema,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(SCHEMA)},
		},
		&cli.StringFlag{
			Name:     TABLE,
			Aliases:  []string{"t"},
			Usage:    "Name of the place table",
			Value:    defaultConfig.Table,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(TABLE)},
		},
		&cli.StringFlag{
			Name:     DATATABLESPACE,
			Usage:    "Tablespace for the place table",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(DATATABLESPACE)},
		},
		&cli.StringFlag{
			Name:     INDEXTABLESPACE,
			Usage:    "Tablespace for the indexes of the place table",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(INDEXTABLESPACE)},
		},
		&cli.StringFlag{
			Name:     STYLE,
			Aliases:  []string{"s"},
			Usage:    "Style file (JSON rules) deciding which objects are stored. The built in style is used when empty",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(STYLE)},
		},
		&cli.StringFlag{
			Name:     MIDDLE,
			Aliases:  []string{"m"},
			Usage:    "SQLite file keeping node locations and ways between runs. Required for append mode",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(MIDDLE)},
		},
		&cli.IntFlag{
			Name:     COPYQUEUELEN,
			Usage:    "Number of pending COPY buffers before reading waits for the database",
			Value:    defaultConfig.CopyQueueLen,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(COPYQUEUELEN)},
		},
		&cli.IntFlag{
			Name:     COPYBUFFERSIZE,
			Usage:    "Size in bytes of a COPY buffer",
			Value:    defaultConfig.CopyBufferSize,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(COPYBUFFERSIZE)},
		},
		&cli.BoolFlag{
			Name:     VERBOSE,
			Aliases:  []string{"v"},
			Usage:    "Log objects that are classified but get no geometry",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(VERBOSE)},
		},
	}

	app.Action = func(c *cli.Context) error {
		cfg := &config.Config{
			Conninfo:        c.String(CONNINFO),
			Input:           c.String(INPUT),
			Append:          c.Bool(APPEND),
			SRID:            c.Int(SRID),
			Schema:          c.String(SCHEMA),
			Table:           c.String(TABLE),
			DataTablespace:  c.String(DATATABLESPACE),
			IndexTablespace: c.String(INDEXTABLESPACE),
			StyleFile:       c.String(STYLE),
			MiddleFile:      c.String(MIDDLE),
			CopyQueueLen:    c.Int(COPYQUEUELEN),
			CopyBufferSize:  c.Int(COPYBUFFERSIZE),
			Verbose:         c.Bool(VERBOSE),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return load(c.Context, cfg)
	}

	err = app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func load(ctx context.Context, cfg *config.Config) error {
	proj, err := reproj.New(cfg.SRID)
	if err != nil {
		return err
	}
	st, err := loadStyle(cfg.StyleFile)
	if err != nil {
		return err
	}
	store, err := openMiddle(cfg.MiddleFile)
	if err != nil {
		return err
	}
	defer store.Close()

	input, err := openInput(cfg.Input)
	if err != nil {
		return err
	}
	defer input.Close()

	conn, err := pgsql.Connect(ctx, cfg.Conninfo)
	if err != nil {
		return err
	}
	thread := copymgr.NewThread(conn, cfg.CopyQueueLen)
	placeOpts := gazetteer.TableOptions{
		Schema:          cfg.Schema,
		Name:            cfg.Table,
		DataTablespace:  cfg.DataTablespace,
		IndexTablespace: cfg.IndexTablespace,
	}
	place, err := gazetteer.NewPlaceTable(placeOpts, proj.SRID(), copymgr.NewManager(thread, cfg.CopyBufferSize), cfg.Append)
	if err != nil {
		_ = thread.Finish(ctx)
		return err
	}
	output := gazetteer.New(place, st, store, geombuilder.New(proj))
	output.SetVerbose(cfg.Verbose)

	log.Println("=== start loading ===")
	defer func() { _ = output.Teardown(ctx) }()
	if err = output.Start(ctx, cfg.Conninfo); err != nil {
		_ = thread.Finish(ctx)
		return err
	}
	if _, err = processing.Run(ctx, osm.NewReader(input), store, output, cfg.Append); err != nil {
		_ = thread.Finish(ctx)
		return err
	}
	if err = output.Stop(ctx); err != nil {
		_ = thread.Finish(ctx)
		return err
	}
	if err = thread.Finish(ctx); err != nil {
		return err
	}
	log.Println("=== done loading ===")
	return nil
}

func loadStyle(path string) (*style.Style, error) {
	if path == "" {
		return style.Default()
	}
	return style.LoadFile(path)
}

func openMiddle(path string) (middle.Store, error) {
	if path == "" {
		return middle.NewRAM(), nil
	}
	return middle.OpenSQLite(path)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
