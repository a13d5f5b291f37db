package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/aiinterview/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	// Подтверждение пароля
	confirmPassword, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	if password != confirmPassword {
		return fmt.Errorf("passwords do not match")
	}

	c.io.Println()
	c.io.Println("Registering user...")

	result, err := c.users.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("User ID: %s\n", result.UserID)
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Println()

	if !c.users.IsAuthenticated() {
		c.io.Println("Please run 'aiinterview login' to start using the service.")
	}
	return nil
}
