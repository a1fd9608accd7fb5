// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, environment variables, zap and rotating log files for the
// CLI, plus the accessor for values carried on command contexts.
package utils
