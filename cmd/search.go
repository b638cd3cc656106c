package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trackpick/internal/search"
	"github.com/desertthunder/trackpick/internal/shared"
	"github.com/desertthunder/trackpick/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search runs a song search from the terminal and prints the ranked results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	r.reload(cmd.String("config"))

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: a search query is required", shared.ErrInvalidInput)
	}

	svc, err := r.ensureService(ctx)
	if err != nil {
		return err
	}

	count := cmd.Int("count")
	if count <= 0 || count > r.config.Search.MaxSongs {
		count = r.config.Search.MaxSongs
	}

	r.logger.Info("searching", "query", query, "count", count)

	tracks, err := svc.SearchSongs(ctx, query, count*r.config.Search.Overfetch)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	top := search.RankAndDedup(tracks, count)

	if cmd.Bool("json") {
		return r.writeJSON(top, cmd.Bool("pretty"))
	}

	return r.writePlain("%s", ui.TrackList(query, top))
}
