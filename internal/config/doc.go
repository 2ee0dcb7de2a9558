// Package config loads scrollkit's runtime configuration.
//
// Values come from, in increasing priority: built-in defaults, a
// scrollkit.yaml file, SCROLLKIT_* environment variables and command line
// flags bound by the CLI. Nested keys map to environment variables by
// upper-casing and replacing dots with underscores:
//
//	server.frame_interval   SCROLLKIT_SERVER_FRAME_INTERVAL
//	scroll.quiet_window     SCROLLKIT_SCROLL_QUIET_WINDOW
//	manifest.source         SCROLLKIT_MANIFEST_SOURCE
//
// # Example scrollkit.yaml
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  frame_interval: 16ms
//	scroll:
//	  quiet_window: 150ms
//	manifest:
//	  source: s3://my-bucket/site.yaml
//	  watch: false
//	log:
//	  level: info
//	  format: json
package config
