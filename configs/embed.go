// Package configs provides embedded configuration templates for solrscout.
//
// Templates are embedded at build time so `solrscout config init` works from
// any distribution. See internal/config Load() for the precedence order:
//  1. Hardcoded defaults
//  2. User config (~/.config/solrscout/config.yaml)
//  3. Project config (.solrscout.yaml)
//  4. .env in the project directory
//  5. Environment variables (SOLRSCOUT_*)
package configs

import _ "embed"

// ProjectConfigTemplate is the template written to .solrscout.yaml by
// `solrscout config init`. It declares the models, their engine and the
// record store used for hydration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is the template written by `solrscout config init --user`.
// It carries machine-level settings such as the Solr URL and Redis address.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
