package atrium

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/atrium-app/atrium/domain"
	"github.com/spf13/viper"
)

// WithConfigDir configures the client to use the specified configuration directory.
// It creates the directory if it doesn't exist and initializes the configuration file
// using Viper, seeding the externally configurable constants with their defaults.
func WithConfigDir(appConfigDir string) func(*Client) error {
	return func(client *Client) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Println("[*] creating config dir")
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		// At this point, the directory exists or was created successfully
		client.ConfigDir = appConfigDir

		// VIPER
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appConfigDir)
		viper.SetDefault("search_cache_ttl", "24h")
		viper.SetDefault("sweep_max_age", "168h")
		viper.SetDefault("reconnect_delay", "5s")
		viper.SetDefault("cache_version", "v1")
		viper.SetDefault("channel_url", "")
		viper.SetDefault("api_base_url", "")
		err = viper.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Config file is not found
				err = viper.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		if err := viper.Unmarshal(&client.Config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}

		client.Config.ConfigDir = appConfigDir
		// Rewrite entire file from struct
		err = viper.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithRepo will take the Repository interface backing the local store.
// Replacing an existing repository closes the old one first.
func WithRepo(repo Repository) func(*Client) error {
	return func(client *Client) error {
		if client.Repo != nil {
			if err := client.Repo.Close(); err != nil {
				return err
			}
			client.Repo = nil
		}
		client.Repo = repo
		return nil
	}
}

// WithTransport sets the network boundary used for replays and fetches.
func WithTransport(transport Transport) func(*Client) error {
	return func(client *Client) error {
		if client.Transport != nil {
			return errors.New("client already has a transport defined")
		}
		client.Transport = transport
		return nil
	}
}

// WithAlerter registers the platform alerter used for incoming notifications.
func WithAlerter(alerter Alerter) func(*Client) error {
	return func(client *Client) error {
		if client.alerter != nil {
			return errors.New("client already has an alerter defined")
		}
		client.alerter = alerter
		return nil
	}
}

// WithBackgroundSync registers the platform-level replay hook used as a
// secondary guarantee after incomplete drains.
func WithBackgroundSync(hook BackgroundSync) func(*Client) error {
	return func(client *Client) error {
		if client.backgroundSync != nil {
			return errors.New("client already has a background sync hook defined")
		}
		client.backgroundSync = hook
		return nil
	}
}

// WithLogHandler takes a handler function that will be executed on each Log
func WithLogHandler(handler func(log domain.Log) error) func(*Client) error {
	return func(client *Client) error {
		if client.OnLog != nil {
			return errors.New("client already has a log handler defined")
		}
		client.OnLog = handler
		return nil
	}
}
