// Package config loads the service configuration.
//
// Sources, in order of precedence:
//
//  1. MERCADO_* environment variables (a .env file in the working directory is
//     loaded first and never overrides variables that are already set)
//  2. A YAML file: MERCADO_CONFIG_FILE, config.yaml or configs/config.yaml
//  3. Defaults from the struct tags
//
// The bare PORT variable is honoured when MERCADO_SERVER_PORT is unset, which
// is what most hosting platforms provide. The default port is 10000.
//
//	MERCADO_SERVER_PORT=10000
//	MERCADO_DATA_WORKBOOK_PATH="Data/Base - Indicadores.xlsx"
//	MERCADO_DATA_CATEGORIES_FILE=categorias.yaml
//	MERCADO_DATA_RELOAD_INTERVAL=1m
//	MERCADO_LOGGING_LEVEL=debug
//
// A reload interval of zero disables the workbook watcher.
package config
