// Command materialize backfills translations (and optionally audio) for
// collection items. Exactly one target is required:
//
//	materialize -item <id>
//	materialize -collection <id> [-audio]
//	materialize -user <id> [-audio]
//
// Results are printed to stdout as JSON.
//
// Exit codes: 0 = success, 1 = error, 2 = some items failed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Queyrouzec/vocappulary-server/internal/app"
	"github.com/Queyrouzec/vocappulary-server/internal/config"
	"github.com/Queyrouzec/vocappulary-server/internal/domain"
	"github.com/Queyrouzec/vocappulary-server/internal/service/collection"
	"github.com/Queyrouzec/vocappulary-server/pkg/ctxutil"
)

const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 2
)

type failure struct {
	ItemID uuid.UUID `json:"item_id"`
	Class  string    `json:"class"`
	Error  string    `json:"error"`
}

type report struct {
	Items    []collection.ItemView `json:"items"`
	Failures []failure             `json:"failures"`
}

func main() {
	os.Exit(run())
}

func run() int {
	itemFlag := flag.String("item", "", "materialize one collection item")
	collectionFlag := flag.String("collection", "", "materialize every item of a collection")
	userFlag := flag.String("user", "", "materialize every item of a user")
	withAudio := flag.Bool("audio", false, "also synthesize audio for the learned language")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(app.BuildVersion())
		return exitOK
	}

	target, id, err := parseTarget(*itemFlag, *collectionFlag, *userFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return exitError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxutil.WithRequestID(ctx, uuid.NewString())

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		return exitError
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", slog.String("error", err.Error()))
		}
	}()

	var res *collection.BulkResult
	switch target {
	case "item":
		var view *collection.ItemView
		view, err = a.Collections.Materialize(ctx, id, *withAudio)
		if err == nil {
			res = &collection.BulkResult{Items: []collection.ItemView{*view}}
		}
	case "collection":
		res, err = a.Collections.MaterializeCollection(ctx, id, *withAudio)
	case "user":
		res, err = a.Collections.MaterializeUser(ctx, id, *withAudio)
	}
	if err != nil {
		logger.Error("materialize failed",
			slog.String(target, id.String()),
			slog.String("class", domain.Classify(err).String()),
			slog.String("error", err.Error()),
		)
		return exitError
	}

	if err := writeReport(os.Stdout, res); err != nil {
		logger.Error("write report", slog.String("error", err.Error()))
		return exitError
	}
	if len(res.Failures) > 0 {
		return exitPartial
	}
	return exitOK
}

// parseTarget picks the single non-empty flag and parses its id.
func parseTarget(item, coll, user string) (string, uuid.UUID, error) {
	var name, raw string
	for _, f := range []struct{ name, value string }{
		{"item", item},
		{"collection", coll},
		{"user", user},
	} {
		if f.value == "" {
			continue
		}
		if name != "" {
			return "", uuid.Nil, errors.New("only one of -item, -collection, -user may be set")
		}
		name, raw = f.name, f.value
	}
	if name == "" {
		return "", uuid.Nil, errors.New("one of -item, -collection, -user is required")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("-%s: %w", name, err)
	}
	return name, id, nil
}

func writeReport(w io.Writer, res *collection.BulkResult) error {
	out := report{Items: res.Items, Failures: []failure{}}
	if out.Items == nil {
		out.Items = []collection.ItemView{}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, failure{
			ItemID: f.ItemID,
			Class:  domain.Classify(f.Err).String(),
			Error:  f.Err.Error(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
