// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// which keeps the browser token and API secrets out of the file itself:
//
//	api:
//	  auth_token: ${MEXC_WEB_TOKEN}
//	  api_key: ${MEXC_API_KEY}
//	  secret_key: ${MEXC_SECRET_KEY}
package config
