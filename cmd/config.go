package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/covidchart/internal/config"
	"github.com/derickschaefer/covidchart/internal/render"
)

// configKeys lists the keys accepted by `config set`, in display order.
var configKeys = []string{
	"base_url", "default_format", "timeout", "rate", "db_path",
	"cache_ttl", "height", "latest", "margin",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage covidchart configuration",
	Long:  `Read and write covidchart configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Every key is optional; delete the ones you do not want to pin.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		out := cmd.OutOrStdout()
		if globalFlags.Format == render.FormatJSON {
			type configOut struct {
				BaseURL    string  `json:"base_url"`
				Format     string  `json:"default_format"`
				Timeout    string  `json:"timeout"`
				Rate       float64 `json:"rate"`
				DBPath     string  `json:"db_path"`
				CacheTTL   string  `json:"cache_ttl"`
				Height     int     `json:"height"`
				Latest     int     `json:"latest"`
				Margin     int     `json:"margin"`
				ConfigFile string  `json:"config_file"`
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				BaseURL:    cfg.BaseURL,
				Format:     cfg.Format,
				Timeout:    cfg.Timeout.String(),
				Rate:       cfg.Rate,
				DBPath:     cfg.DBPath,
				CacheTTL:   cfg.CacheTTL.String(),
				Height:     cfg.Height,
				Latest:     cfg.Latest,
				Margin:     cfg.Margin,
				ConfigFile: src,
			})
		}

		printKVTable(out, [][]string{
			{"base_url", cfg.BaseURL},
			{"default_format", cfg.Format},
			{"timeout", cfg.Timeout.String()},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"db_path", cfg.DBPath},
			{"cache_ttl", cfg.CacheTTL.String()},
			{"height", strconv.Itoa(cfg.Height)},
			{"latest", strconv.Itoa(cfg.Latest)},
			{"margin", strconv.Itoa(cfg.Margin)},
			{"config_file", src},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		path := config.DefaultConfigFile

		// Load existing file or start from template
		f := config.Template()
		existing, err := config.ReadFile(path)
		switch {
		case err == nil:
			f = *existing
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		if err := setConfigKey(&f, key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// setConfigKey validates val and stores it under key in f.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "base_url":
		f.BaseURL = val
	case "default_format", "format":
		switch val {
		case render.FormatText, render.FormatTable, render.FormatJSON, render.FormatCSV:
		default:
			return fmt.Errorf("default_format must be one of text, table, json, csv")
		}
		f.DefaultFormat = val
	case "timeout":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		f.Timeout = val
	case "cache_ttl":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("cache_ttl: %w", err)
		}
		f.CacheTTL = val
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "height":
		n, err := parsePositiveInt(val, key)
		if err != nil {
			return err
		}
		f.Height = n
	case "latest", "margin":
		n, err := parseNonNegativeInt(val, key)
		if err != nil {
			return err
		}
		if key == "latest" {
			f.Latest = &n
		} else {
			f.Margin = &n
		}
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(configKeys, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
