// Package config provides configuration management for complexome.
// It covers two concerns: the application configuration (logging, the HTTP
// client used for remote services, telemetry) and the pipeline settings file
// that drives a single run.
//
// # Configuration Sources
//
// Application configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (complexome.yaml, configs/complexome.yaml or COMPLEXOME_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COMPLEXOME_* for namespacing:
//
//	COMPLEXOME_LOGGING_LEVEL=debug
//	COMPLEXOME_HTTP_TIMEOUT=90s
//	COMPLEXOME_HTTP_REQUESTS_PER_SECOND=0.5
//	COMPLEXOME_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/complexome.prom
//
// # Pipeline Settings
//
// The settings file keeps the key names laboratories already use
// (steps_dict, filtering_step, uniprot_step, mitocarta_step, clustering_step,
// make_excel_file_step). It is decoded into Settings and checked up front:
//
//	settings, err := config.LoadSettings("settings.json")
//	if err != nil {
//	    return err
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// Validation uses struct tags (batch_amount 1..100, request_idle_time > 1,
// clustering method and metric allow-lists, output directory exists) and
// collects every problem into a single ValidationError.
package config
