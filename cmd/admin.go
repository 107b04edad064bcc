package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/members"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or update the staff administrator",
	Long: `Creates the administrator account, or resets its password and staff flag
when it already exists. Username, email and password default to the admin
section of the config; a missing password is prompted for.`,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().String("username", "", "admin username (overrides config)")
	createAdminCmd.Flags().String("email", "", "admin email (overrides config)")
	createAdminCmd.Flags().String("password", "", "admin password (prompted when empty)")
	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if username == "" {
		username = cfg.Admin.Username
	}
	if email == "" {
		email = cfg.Admin.Email
	}
	if password == "" {
		password = cfg.Admin.Password
	}
	if username == "" {
		username = "admin"
	}
	if password == "" {
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	u, created, err := members.NewStore(database).EnsureAdmin(cmd.Context(), username, email, password)
	if err != nil {
		return fmt.Errorf("saving admin: %w", err)
	}
	if created {
		fmt.Fprintf(os.Stdout, "Created admin %q (id %d)\n", u.Username, u.ID)
	} else {
		fmt.Fprintf(os.Stdout, "Updated admin %q (id %d)\n", u.Username, u.ID)
	}
	return nil
}

func promptPassword() (string, error) {
	prompt := promptui.Prompt{
		Label: "Admin password",
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < 8 {
				return errors.New("at least 8 characters")
			}
			return nil
		},
	}
	password, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("password: %w", err)
	}
	confirm := promptui.Prompt{Label: "Confirm password", Mask: '*'}
	again, err := confirm.Run()
	if err != nil {
		return "", fmt.Errorf("password: %w", err)
	}
	if again != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
