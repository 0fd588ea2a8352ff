// Package utils provides shared helpers for the diario command line.
//
// # Terminal Utilities
//
// Reading secrets and talking to the terminal:
//   - ReadPassphrase: prompts on stdin without echo
//   - ReadNewPassphrase: prompts twice and requires both to match
//   - ReadPassphraseFromTTY: prompts on /dev/tty when stdin carries data
//   - ClearScreen: clears the terminal for the interactive shell
//
// # I/O Utilities
//
//   - ReadStdin: reads piped data such as a backup file
//   - ReadPasswordStdin: reads a password from the first line of stdin
//   - WriteFileAtomic: writes exported backups without partial files
//
// # System Utilities
//
//   - DefaultDeviceName: the device name config.toml starts with
//   - SanitizeDeviceName: normalizes device names for config.toml
//
// # String Utilities
//
//   - Excerpt: a one-line preview of journal content
//   - IsValidDeviceName: checks a name given to config init
package utils
