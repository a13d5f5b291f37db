package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/aiinterview/internal/client/router"
	"github.com/iudanet/aiinterview/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	// Бэкенд принимает username или email
	identity, err := c.io.ReadInput("Username or email: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	req := api.LoginRequest{Password: password}
	if strings.Contains(identity, "@") {
		req.Email = identity
	} else {
		req.Username = identity
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	result, err := c.users.Login(ctx, req)
	if err != nil {
		return err
	}

	c.router.Navigate(router.PathHome)

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", result.Username)

	expiresAt, err := c.auth.ExpiresAt(ctx)
	if err == nil && !expiresAt.IsZero() {
		c.io.Printf("Access token expires: %s\n", expiresAt.Local().Format("2006-01-02 15:04:05"))
	}

	return nil
}
