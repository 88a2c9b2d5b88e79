// Package config loads the client and dev server settings.
//
// Values come from an optional YAML file and then the environment, using
// cleanenv struct tags. Durations accept ISO 8601 ("PT30S", "P30D") as well as
// Go syntax ("30s"):
//
//	cfg, err := config.LoadClient("")
//	if err != nil {
//		return err
//	}
//	timeout, _ := cfg.Timeout()
//
// Every Load* call validates the result and reports all invalid fields at once
// as ValidationErrors.
package config
