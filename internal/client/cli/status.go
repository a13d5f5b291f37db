package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	if !c.users.CheckLoginStatus(ctx) {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'aiinterview login' to authenticate.")
		return nil
	}

	current := c.users.CurrentUser()
	c.io.Println("Status: Authenticated")
	c.io.Printf("Username: %s\n", current.Username)
	if current.UserID != "" {
		c.io.Printf("User ID: %s\n", current.UserID)
	}

	expiresAt, err := c.auth.ExpiresAt(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token expiry: %w", err)
	}
	if expiresAt.IsZero() {
		c.io.Println("Token expires: never")
		return nil
	}

	c.io.Printf("Token expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
	c.io.Printf("Time remaining: %s\n", time.Until(expiresAt).Round(time.Second))
	return nil
}
