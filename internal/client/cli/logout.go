package cli

import (
	"context"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.users.Logout(ctx); err != nil {
		return err
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
