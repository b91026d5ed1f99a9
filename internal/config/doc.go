// Package config provides configuration parsing for signal tower processes.
//
// The configuration is stored in tower.json. Any value can be overridden
// by a TOWER_* environment variable, which is applied after the file.
//
// # Configuration File Structure
//
//	{
//	  "logging": {
//	    "level": "info",
//	    "format": "text",
//	    "tag": "signals"
//	  },
//	  "server": {
//	    "host": "localhost",
//	    "port": 7070,
//	    "sendBuffer": 64
//	  },
//	  "channels": {
//	    "terminalMsgReceived": 1
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "tower"
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "signaltower",
//	    "endpoint": "http://localhost:4318"
//	  },
//	  "snapshot": {
//	    "bucket": "diagnostics",
//	    "prefix": "tower/snapshots",
//	    "region": "us-east-1"
//	  },
//	  "appData": "./app-data.json"
//	}
//
// # Environment
//
//	TOWER_LOGGING_LEVEL, TOWER_LOGGING_FORMAT, TOWER_LOGGING_TAG
//	TOWER_SERVER_HOST, TOWER_SERVER_PORT, TOWER_SERVER_SEND_BUFFER
//	TOWER_METRICS_ENABLED, TOWER_METRICS_NAMESPACE
//	TOWER_TRACING_ENABLED, TOWER_TRACING_TRACER_NAME, TOWER_TRACING_ENDPOINT
//	TOWER_SNAPSHOT_BUCKET, TOWER_SNAPSHOT_PREFIX, TOWER_SNAPSHOT_REGION, TOWER_SNAPSHOT_ENDPOINT
//	TOWER_APP_DATA
//
// # Usage
//
//	cfg, err := config.Resolve("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
