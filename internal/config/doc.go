// Package config loads projet.json (or projet.yaml).
//
// Every field has a default, so a project can start with an empty file.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "address": "localhost:8001",
//	    "upstream": "http://127.0.0.1:8000",
//	    "eventsPerSecond": 20,
//	    "metrics": true
//	  },
//	  "pages": { "dir": "pages", "watch": true, "static": "static" },
//	  "toast": { "success": "5s", "error": "7s", "warning": "6s", "info": "5s" },
//	  "loading": { "fallbackTimeout": "10s", "submitTimeout": "30s" },
//	  "theme": { "store": "s3", "prefer": "store", "s3": { "bucket": "prefs", "region": "eu-west-3" } },
//	  "tailwind": { "enabled": true, "output": "static/css/output.css" },
//	  "auth": { "cookieName": "session", "forwardCookie": true }
//	}
//
// Durations are Go duration strings or, in JSON, milliseconds.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
