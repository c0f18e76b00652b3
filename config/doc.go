// Package config loads the export engine configuration.
//
// It uses Viper to read a config.yml found in the standard locations, loads
// an optional .env file with godotenv and lets environment variables
// override any key. Underscore separated names bind to nested keys, so
// API_HOST sets api.host and AUTH_CLIENT_ID sets auth.client_id.
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("config.yml"))
//	if err != nil {
//	    return err
//	}
//	client, err := httpclient.New(httpclient.Config{BaseURL: cfg.API.Host})
package config
