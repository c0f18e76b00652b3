// Package logger provides structured logging for the export engine using
// zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("source")
//	log.Info("page fetched", logger.Fields(logger.FieldPage, 3, logger.FieldEntities, 500))
package logger
