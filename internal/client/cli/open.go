package cli

import (
	"context"
	"fmt"
)

// runOpen показывает, куда приведет переход по пути с учетом проверки входа
func (c *Cli) runOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: open <path>", ErrUsage)
	}

	route, err := c.router.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	c.router.Navigate(args[0])

	if route.Path != args[0] {
		c.io.Printf("%s -> %s (%s)\n", args[0], route.Path, route.Name)
		return nil
	}
	c.io.Printf("%s (%s)\n", route.Path, route.Name)
	return nil
}
