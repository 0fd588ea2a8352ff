// Package logger prints diagnostic output for diario.
//
// A Logger is built once per command from the --verbose and --debug flags
// and handed to every component the command opens:
//
//	log := logger.Logger{Verbose: verbose, Debug: debug, Err: cmd.ErrOrStderr()}
//	log.Infof("Re-encrypting %d entries", n)
//
// Infof needs --verbose or --debug, Debugf needs --debug, and Warnf and
// Errorf always print. ErrorfAndReturn builds an error and logs it when
// verbose. Each level has its own colored prefix.
//
// On the success path components log at debug level only, so a command
// run without flags prints nothing but its own result.
package logger
