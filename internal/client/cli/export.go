package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/aiinterview/internal/client/router"
)

func (c *Cli) runExport(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: usage: export selected|project|session <id> [file]", ErrUsage)
	}

	// Выгрузка доступна со страницы списка интервью, только после входа
	route, err := c.router.Resolve(ctx, router.PathInterviewList)
	if err != nil {
		return err
	}
	if route.Path != router.PathInterviewList {
		return ErrLoginRequired
	}

	kind, id := args[0], args[1]
	filename := ""
	if len(args) == 3 {
		filename = args[2]
	}

	var path string
	switch kind {
	case "selected":
		ids := splitIDs(id)
		if len(ids) == 0 {
			return fmt.Errorf("%w: no session ids given", ErrUsage)
		}
		path, err = c.client.ExportSelectedSessions(ctx, ids, filename)
	case "project":
		path, err = c.client.ExportProjectSessions(ctx, id, filename)
	case "session":
		path, err = c.client.ExportSession(ctx, id, filename)
	default:
		return fmt.Errorf("%w: unknown export kind %q", ErrUsage, kind)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	c.logger.Debug("export finished", "kind", kind, "path", path)
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
