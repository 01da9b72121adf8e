package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively generate a config file",
	Long: `Walk through the server settings and write a config file.

A fresh session signing secret is generated on every run. Existing
files are not overwritten unless --force is given.`,
	// Runs before any config file exists, so skip loading one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: runConfigure,
}

var (
	configureOutput string
	configureForce  bool
)

func init() {
	configureCmd.Flags().StringVarP(&configureOutput, "output", "o", "config.yaml", "path of the config file to write")
	configureCmd.Flags().BoolVarP(&configureForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(configureCmd)
}

// configFile mirrors the keys config.Load reads, shaped for yaml output.
type configFile struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Backend    string        `yaml:"backend"`
		BooksPath  string        `yaml:"books_path,omitempty"`
		CoversPath string        `yaml:"covers_path,omitempty"`
		S3         *s3ConfigFile `yaml:"s3,omitempty"`
	} `yaml:"storage"`
	Auth struct {
		SessionSecret string `yaml:"session_secret"`
		Admin         struct {
			Inline []adminPair `yaml:"inline"`
		} `yaml:"admin"`
	} `yaml:"auth"`
}

type s3ConfigFile struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url,omitempty"`
}

type adminPair struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func runConfigure(cmd *cobra.Command, args []string) error {
	if !configureForce {
		if _, err := os.Stat(configureOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configureOutput)
		}
	}

	var cfg configFile
	cfg.Server.Port = 5173
	cfg.Database.Type = "sqlite"
	cfg.Database.DSN = "library.db"

	username, err := (&promptui.Prompt{
		Label:   "Admin username",
		Default: "admin",
		Validate: func(s string) error {
			if s == "" {
				return errors.New("username must not be empty")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	password, err := (&promptui.Prompt{
		Label: "Admin password",
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	confirm, err := (&promptui.Prompt{
		Label: "Confirm password",
		Mask:  '*',
	}).Run()
	if err != nil {
		return err
	}
	if confirm != password {
		return errors.New("passwords do not match")
	}

	cfg.Auth.Admin.Inline = []adminPair{{Username: username, Password: password}}

	_, backend, err := (&promptui.Select{
		Label: "Storage backend",
		Items: []string{"local", "s3"},
	}).Run()
	if err != nil {
		return err
	}
	cfg.Storage.Backend = backend

	switch backend {
	case "local":
		cfg.Storage.BooksPath, err = (&promptui.Prompt{
			Label:   "Book storage directory",
			Default: "./uploads",
		}).Run()
		if err != nil {
			return err
		}

		cfg.Storage.CoversPath, err = (&promptui.Prompt{
			Label:   "Cover storage directory",
			Default: "./covers",
		}).Run()
		if err != nil {
			return err
		}

	case "s3":
		s3 := &s3ConfigFile{}

		s3.Endpoint, err = (&promptui.Prompt{
			Label: "Endpoint URL (empty for AWS)",
		}).Run()
		if err != nil {
			return err
		}

		s3.Region, err = (&promptui.Prompt{
			Label:   "Region",
			Default: "us-east-1",
		}).Run()
		if err != nil {
			return err
		}

		s3.Bucket, err = (&promptui.Prompt{
			Label: "Bucket",
			Validate: func(s string) error {
				if s == "" {
					return errors.New("bucket must not be empty")
				}
				return nil
			},
		}).Run()
		if err != nil {
			return err
		}

		s3.AccessKey, err = (&promptui.Prompt{
			Label: "Access key",
		}).Run()
		if err != nil {
			return err
		}

		s3.SecretKey, err = (&promptui.Prompt{
			Label: "Secret key",
			Mask:  '*',
		}).Run()
		if err != nil {
			return err
		}

		s3.PublicURL, err = (&promptui.Prompt{
			Label: "Public base URL (empty to derive from endpoint)",
		}).Run()
		if err != nil {
			return err
		}

		cfg.Storage.S3 = s3
	}

	cfg.Auth.SessionSecret, err = newSessionSecret()
	if err != nil {
		return fmt.Errorf("generate session secret: %w", err)
	}

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Credentials live in this file, keep it owner-only.
	if err := os.WriteFile(configureOutput, out, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	slog.Info("config written", "path", configureOutput)
	return nil
}

func newSessionSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
