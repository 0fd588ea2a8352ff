// Package configs manages diario's on-disk locations and user configuration.
//
// # Settings
//
// Settings resolves where diario keeps its files. By default configuration
// lives under the XDG config directory and data under XDG_DATA_HOME:
//
//   - ~/.config/diario/config.toml
//   - ~/.local/share/diario/journal.db (encrypted records)
//   - ~/.local/share/diario/state.db (key state, tokens, biometric records)
//   - ~/.local/share/diario/audit.jsonl
//
// Setting DIARIO_HOME places all of them in that one directory instead.
//
// # Configuration
//
// config.toml has four sections:
//
//   - [device]: a generated device id and a display name
//   - [security]: idle lock timeout and check interval, minimum password length
//   - [webauthn]: relying party identity, origin and authenticator kind
//   - [dropbox]: app key, redirect URI and backup folder
//
// Load fills anything missing with defaults, and every loaded or saved
// config is validated.
package configs
