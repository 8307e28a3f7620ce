// Command lexdraft drafts legal documents with a large language model.
//
// Subcommands:
//
//	lexdraft generate   draft a document (blocking, --stream or --safe)
//	lexdraft types      list the supported document types
//	lexdraft models     show the configured and known models
//	lexdraft serve      run the HTTP and WebSocket API
//	lexdraft config     create or check the configuration file
package main
