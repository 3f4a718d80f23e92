// Copyright 2025 James Ross
package gridclient

import "github.com/jamesross/dgrid-batch/internal/config"

// Environment is the user's session/environment: hostname, port, zone,
// username, default resource and collection. The spec treats discovery of
// this value as an opaque loader external to the core (spec §1); here it is
// just read straight off the loaded Config. It is loaded once, at startup;
// reopening or recycling the Connection does not reload it.
type Environment struct {
	Host              string
	Port              int
	Zone              string
	Username          string
	DefaultResource   string
	DefaultCollection string
}

// LoadEnvironment reads the environment from cfg.
func LoadEnvironment(cfg *config.Config) Environment {
	defaultCollection := cfg.Grid.DefaultCollection
	if defaultCollection == "" {
		defaultCollection = "/" + cfg.Grid.ZoneName + "/home/" + cfg.Grid.Username
	}
	return Environment{
		Host:              cfg.Grid.Host,
		Port:              cfg.Grid.Port,
		Zone:              cfg.Grid.ZoneName,
		Username:          cfg.Grid.Username,
		DefaultResource:   cfg.Grid.DefaultResource,
		DefaultCollection: defaultCollection,
	}
}
