// Planwheel schedules shared resources (rooms, instructors, equipment)
// against events, prevents double-booking, and produces utilization reports.
// State lives in sqlite; the API is JSON plus a PDF report export.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/planwheel/planwheel/engine"
	"github.com/planwheel/planwheel/modules/allocations"
	"github.com/planwheel/planwheel/modules/apikey"
	"github.com/planwheel/planwheel/modules/events"
	"github.com/planwheel/planwheel/modules/metrics"
	"github.com/planwheel/planwheel/modules/reports"
	"github.com/planwheel/planwheel/modules/resources"
)

type Config struct {
	HttpAddr string `envDefault:":8080"`
	Dir      string `envDefault:"."`

	// DisableAuth leaves the mutating routes open. Local development only.
	DisableAuth bool
}

func main() {
	conf, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "PLANWHEEL_", UseFieldNameByDefault: true})
	if err != nil {
		panic(err)
	}

	app, _, err := newApp(conf)
	if err != nil {
		panic(err)
	}

	app.Run(context.TODO())
}

func newApp(conf Config) (*engine.App, *sql.DB, error) {
	app := engine.NewApp(conf.HttpAddr, engine.NewRouter())

	db, err := engine.OpenDB(filepath.Join(conf.Dir, "planwheel.sqlite3"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening db: %w", err)
	}

	// The authenticator has to be registered before any routes are attached.
	if !conf.DisableAuth {
		keys, err := apikey.New(db)
		if err != nil {
			return nil, nil, fmt.Errorf("creating apikey module: %w", err)
		}
		app.Add(keys)
	}

	app.Add(resources.New(db))
	app.Add(events.New(db))
	app.Add(allocations.New(db))
	app.Add(reports.New(db))
	app.Add(metrics.New(db))

	app.Router.HandleFunc("GET /healthz", engine.ServeHealthProbe(db))

	return app, db, nil
}
